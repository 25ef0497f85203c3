// Package laudo fills a property-inspection report template.
//
// A template is an ordinary Word document. Text placeholders are written as
// {{NAME}} and are replaced by the value submitted for field NAME, in body
// paragraphs and in the cells of top-level tables. A paragraph whose whole
// text is an image marker such as {{IMAGENS_SALA}} is emptied and receives
// the photos of that room, three inches wide.
//
// Replacement works run by run. A placeholder must therefore be typed in one
// go, with uniform formatting: if Word splits it over several runs it is
// left in the output as literal text.
//
// Basic usage:
//
//	gen, err := laudo.NewGenerator(laudo.Config{
//	    TemplatePath: "Vistoria_Modelo.docx",
//	    OutputDir:    "gerados",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	images := laudo.ImageBindings{}
//	images.Add(laudo.Sala, "uploads/sala-1.jpg")
//
//	res, err := gen.Generate(ctx, laudo.Request{
//	    Text:       laudo.BindText(map[string]string{"LOCATARIO_NOME_1": "Maria Silva"}),
//	    Images:     images,
//	    OutputName: "Laudo_Vistoria_Maria_Silva_3f2a1c.docx",
//	})
//
// Images that cannot be read are skipped and listed in Result.ImageFailures;
// a missing template fails with an error matching ErrTemplateMissing.
package laudo
