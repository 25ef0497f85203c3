package laudo

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	docxml "github.com/vistoriadocs/laudo/pkg/laudo/xml"
)

// Length is a distance in English Metric Units, the unit of DrawingML.
type Length int64

const emuPerInch = 914400

// Inches converts inches to a Length.
func Inches(in float64) Length {
	return Length(in * emuPerInch)
}

// Inches returns the length in inches.
func (l Length) Inches() float64 {
	return float64(l) / emuPerInch
}

// DefaultImageWidth is the display width of injected pictures.
var DefaultImageWidth = Inches(3)

// ErrUnsupportedImage is returned for files whose format cannot be embedded.
var ErrUnsupportedImage = errors.New("unsupported image format")

type imageFormat struct {
	ext         string
	contentType string
}

// Formats registered with the image package, keyed by image.DecodeConfig's name.
var imageFormats = map[string]imageFormat{
	"png":  {"png", "image/png"},
	"jpeg": {"jpeg", "image/jpeg"},
	"gif":  {"gif", "image/gif"},
	"bmp":  {"bmp", "image/bmp"},
	"tiff": {"tiff", "image/tiff"},
	"webp": {"webp", "image/webp"},
}

type picture struct {
	data          []byte
	format        imageFormat
	width, height int
}

// loadPicture reads an image file and its pixel dimensions. Only the header
// is decoded.
func loadPicture(path string) (*picture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupportedImage
		}
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	format, ok := imageFormats[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, name)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid image dimensions %dx%d", cfg.Width, cfg.Height)
	}
	return &picture{data: data, format: format, width: cfg.Width, height: cfg.Height}, nil
}

// InjectionReport tallies the outcome of InjectImages.
type InjectionReport struct {
	Added    int
	Failures []*ImageError
}

// InjectImages replaces each top-level body paragraph whose whole text equals
// a bound category's marker with that category's pictures, one run per
// image, in binding order. The paragraph keeps its properties and loses its
// text. Images that cannot be read or decoded are skipped and reported.
func (d *Document) InjectImages(b ImageBindings, width Length) InjectionReport {
	var report InjectionReport
	if len(b) == 0 {
		return report
	}
	if width <= 0 {
		width = DefaultImageWidth
	}

	for _, p := range d.main.Paragraphs() {
		c, ok := b.matching(p.Text())
		if !ok {
			continue
		}
		p.Clear()
		for _, path := range b[c] {
			if err := d.AddPicture(p, path, width); err != nil {
				report.Failures = append(report.Failures, &ImageError{Category: c, Path: path, Cause: err})
				continue
			}
			report.Added++
		}
	}
	return report
}

// AddPicture appends a run holding an inline picture to p, scaled to width.
// The image bytes are stored as a new media part.
func (d *Document) AddPicture(p *docxml.Paragraph, path string, width Length) error {
	pic, err := loadPicture(path)
	if err != nil {
		return err
	}

	if d.rels == nil {
		d.rels = newRelationshipsPart()
	}
	if d.types == nil {
		d.types = newContentTypesPart()
	}

	relID := d.rels.nextID()
	height := Length(int64(width) * int64(pic.height) / int64(pic.width))
	drawing, err := docxml.ParseFragment(inlinePicture(d.main.Prefix(), d.docPrID+1, filepath.Base(path), relID, width, height))
	if err != nil {
		return fmt.Errorf("failed to build picture markup: %w", err)
	}

	partName := d.nextMediaName(pic.format.ext)
	d.rels.add(relID, imageRelationshipType, strings.TrimPrefix(partName, "word/"))
	d.types.ensureDefault(pic.format.ext, pic.format.contentType)
	d.media = append(d.media, mediaPart{name: partName, data: pic.data})
	d.docPrID++
	p.AddRun().AppendChild(drawing)
	return nil
}

// nextMediaName returns an unused part name such as "word/media/laudo_image3.png".
func (d *Document) nextMediaName(ext string) string {
	for {
		d.imageSeq++
		name := fmt.Sprintf("word/media/laudo_image%d.%s", d.imageSeq, ext)
		if !d.reader.HasPart(name) {
			return name
		}
	}
}

const inlinePictureXML = `<%[1]s>` +
	`<wp:inline distT="0" distB="0" distL="0" distR="0"` +
	` xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"` +
	` xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"` +
	` xmlns:pic="http://schemas.openxmlformats.org/drawingml/2006/picture"` +
	` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">` +
	`<wp:extent cx="%[5]d" cy="%[6]d"/>` +
	`<wp:effectExtent l="0" t="0" r="0" b="0"/>` +
	`<wp:docPr id="%[2]d" name="Picture %[2]d"/>` +
	`<wp:cNvGraphicFramePr><a:graphicFrameLocks noChangeAspect="1"/></wp:cNvGraphicFramePr>` +
	`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">` +
	`<pic:pic><pic:nvPicPr><pic:cNvPr id="0" name="%[3]s"/><pic:cNvPicPr/></pic:nvPicPr>` +
	`<pic:blipFill><a:blip r:embed="%[4]s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>` +
	`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%[5]d" cy="%[6]d"/></a:xfrm>` +
	`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>` +
	`</pic:pic></a:graphicData></a:graphic></wp:inline></%[1]s>`

func inlinePicture(prefix string, id int, name, relID string, cx, cy Length) string {
	drawing := "drawing"
	if prefix != "" {
		drawing = prefix + ":drawing"
	}
	return fmt.Sprintf(inlinePictureXML, drawing, id, escapeAttr(name), relID, int64(cx), int64(cy))
}

func escapeAttr(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
