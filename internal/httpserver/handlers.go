package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vistoriadocs/laudo/internal/housekeeping"
	"github.com/vistoriadocs/laudo/internal/uploads"
	"github.com/vistoriadocs/laudo/pkg/laudo"
)

// Field whose value names the generated file.
const tenantField = "LOCATARIO_NOME_1"

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

const (
	msgTemplateMissing = "Erro Crítico: O arquivo modelo da vistoria não foi encontrado no servidor."
	msgUnexpected      = "Ocorreu um erro inesperado ao gerar o documento."
	msgTooLarge        = "O envio excede o tamanho máximo permitido. Envie menos fotos ou fotos menores."
	msgSuccess         = "Laudo gerado com sucesso."
)

type categoryView struct {
	Label     string
	FieldName string
}

type formPage struct {
	Title      string
	Flashes    []Flash
	Fields     []formField
	Categories []categoryView
	MaxFileMB  int64
}

type resultPage struct {
	Title       string
	Flashes     []Flash
	Filename    string
	DownloadURL string
	Retention   string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.sweeper != nil {
		s.sweeper.Sweep()
	}

	fields := make([]formField, len(formFields))
	copy(fields, formFields)
	for i := range fields {
		fields[i].Required = s.isRequired(fields[i].Name)
	}
	cats := make([]categoryView, 0, len(laudo.Categories()))
	for _, c := range laudo.Categories() {
		cats = append(cats, categoryView{Label: c.Label(), FieldName: c.FieldName()})
	}

	page := formPage{
		Title:      "Laudo de Vistoria",
		Flashes:    s.flashes.pop(w, r),
		Fields:     fields,
		Categories: cats,
		MaxFileMB:  s.store.MaxFileBytes() >> 20,
	}
	if err := s.pages.render(w, http.StatusOK, "form", page); err != nil {
		s.requestLogger(r).Error("failed to render form", zap.Error(err))
	}
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	logger := s.requestLogger(r)

	if s.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Warn("request body too large", zap.Int64("limit", tooLarge.Limit))
			s.redirectWithFlash(w, r, "/", Flash{Kind: flashError, Message: msgTooLarge})
			return
		}
		logger.Warn("invalid form submission", zap.Error(err))
		http.Error(w, "formulário inválido", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	fields := make(map[string]string, len(r.MultipartForm.Value))
	for name, values := range r.MultipartForm.Value {
		if len(values) > 0 {
			fields[name] = values[0]
		}
	}

	if err := laudo.ValidateRequired(fields, s.required); err != nil {
		var verr *laudo.ValidationError
		flashes := []Flash{{Kind: flashError, Message: err.Error()}}
		if errors.As(err, &verr) {
			flashes = flashes[:0]
			for _, field := range verr.Fields() {
				flashes = append(flashes, Flash{
					Kind:    flashError,
					Message: fmt.Sprintf("O campo '%s' é obrigatório para gerar o arquivo.", fieldLabel(field)),
				})
			}
		}
		logger.Info("required fields missing", zap.Error(err))
		s.redirectWithFlash(w, r, "/", flashes...)
		return
	}

	batch := s.store.NewBatch()
	defer func() {
		saved := batch.Len()
		if err := batch.Release(); err != nil {
			logger.Error("failed to remove uploads", zap.Int("uploads", saved), zap.Error(err))
			return
		}
		if saved > 0 {
			logger.Debug("uploads removed", zap.Int("uploads", saved))
		}
	}()

	images := laudo.ImageBindings{}
	var warnings []Flash
	for _, c := range laudo.Categories() {
		files := r.MultipartForm.File[c.FieldName()]
		if len(files) == 0 || files[0].Filename == "" {
			continue
		}
		// Bound even if every file is rejected, so the marker is cleared.
		images[c] = nil
		for _, fh := range files {
			if fh.Filename == "" {
				continue
			}
			path, err := saveUpload(batch, fh)
			switch {
			case errors.Is(err, uploads.ErrRejected):
				logger.Warn("upload rejected",
					zap.Stringer("category", c),
					zap.String("filename", fh.Filename),
					zap.Error(err),
				)
				warnings = append(warnings, Flash{
					Kind:    flashWarning,
					Message: fmt.Sprintf("A foto %q (%s) foi ignorada: formato ou tamanho não permitido.", fh.Filename, c.Label()),
				})
			case err != nil:
				logger.Error("failed to store upload",
					zap.Stringer("category", c),
					zap.String("filename", fh.Filename),
					zap.Error(err),
				)
				s.redirectWithFlash(w, r, "/", Flash{Kind: flashError, Message: msgUnexpected})
				return
			default:
				images.Add(c, path)
			}
		}
	}

	result, err := s.gen.Generate(r.Context(), laudo.Request{
		Text:       laudo.BindText(fields),
		Images:     images,
		OutputName: outputName(fields[tenantField]),
	})
	if err != nil {
		msg := msgUnexpected
		if errors.Is(err, laudo.ErrTemplateMissing) {
			msg = msgTemplateMissing
		}
		logger.Error("report generation failed", zap.Error(err))
		s.redirectWithFlash(w, r, "/", Flash{Kind: flashError, Message: msg})
		return
	}

	for _, f := range result.ImageFailures {
		warnings = append(warnings, Flash{
			Kind:    flashWarning,
			Message: fmt.Sprintf("Uma foto de %s não pôde ser lida e ficou fora do laudo.", f.Category.Label()),
		})
	}
	flashes := append([]Flash{{Kind: flashSuccess, Message: msgSuccess}}, warnings...)
	s.redirectWithFlash(w, r, "/resultado/"+url.PathEscape(filepath.Base(result.OutputPath)), flashes...)
}

func saveUpload(batch *uploads.Batch, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %q: %w", fh.Filename, err)
	}
	defer f.Close()
	return batch.Save(fh.Filename, f)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if _, err := s.outputFile(name); err != nil {
		s.notFound(w, r, name, err)
		return
	}

	page := resultPage{
		Title:       "Laudo gerado",
		Flashes:     s.flashes.pop(w, r),
		Filename:    name,
		DownloadURL: "/download/" + url.PathEscape(name),
		Retention:   humanDuration(s.retention()),
	}
	if err := s.pages.render(w, http.StatusOK, "resultado", page); err != nil {
		s.requestLogger(r).Error("failed to render result", zap.Error(err))
	}
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	path, err := s.outputFile(name)
	if err != nil {
		s.notFound(w, r, name, err)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		s.notFound(w, r, name, err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		s.requestLogger(r).Error("failed to stat document", zap.String("path", path), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", docxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

type healthResponse struct {
	Status    string `json:"status"`
	Template  string `json:"template"`
	UploadDir string `json:"upload_dir"`
	OutputDir string `json:"output_dir"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Template:  "ok",
		UploadDir: dirStatus(s.store.Dir()),
		OutputDir: dirStatus(s.gen.Config().OutputDir),
	}
	if err := s.gen.CheckTemplate(); err != nil {
		resp.Template = err.Error()
	}
	status := http.StatusOK
	if resp.Template != "ok" || resp.UploadDir != "ok" || resp.OutputDir != "ok" {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.requestLogger(r).Error("failed to write health response", zap.Error(err))
	}
}

func dirStatus(dir string) string {
	info, err := os.Stat(dir)
	switch {
	case err != nil:
		return err.Error()
	case !info.IsDir():
		return "not a directory"
	default:
		return "ok"
	}
}

// outputFile resolves a generated document by name. Names with path
// elements are refused.
func (s *Server) outputFile(name string) (string, error) {
	if !validDocumentName(name) {
		return "", fmt.Errorf("%w: %q", laudo.ErrInvalidOutputName, name)
	}
	path := filepath.Join(s.gen.Config().OutputDir, name)
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s is not a regular file", name)
	}
	return path, nil
}

func validDocumentName(name string) bool {
	return name != "" &&
		!strings.ContainsAny(name, `/\`) &&
		!strings.HasPrefix(name, ".") &&
		filepath.Base(name) == name &&
		strings.EqualFold(filepath.Ext(name), ".docx")
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request, name string, err error) {
	s.requestLogger(r).Info("document not found", zap.String("filename", name), zap.Error(err))
	http.Error(w, "documento não encontrado", http.StatusNotFound)
}

func (s *Server) redirectWithFlash(w http.ResponseWriter, r *http.Request, target string, flashes ...Flash) {
	if err := s.flashes.set(w, flashes); err != nil {
		s.requestLogger(r).Error("failed to store flash messages", zap.Error(err))
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	return laudo.LoggerFromContext(r.Context(), s.logger)
}

func (s *Server) isRequired(name string) bool {
	for _, f := range s.required {
		if f == name {
			return true
		}
	}
	return false
}

func (s *Server) retention() time.Duration {
	if s.sweeper == nil {
		return housekeeping.DefaultRetention
	}
	return s.sweeper.Retention()
}

// outputName builds "Laudo_Vistoria_<tenant>_<id>.docx", where id is the
// first six characters of a random UUID.
func outputName(tenant string) string {
	id := uuid.NewString()[:6]
	name := uploads.SecureFilename(strings.ReplaceAll(strings.TrimSpace(tenant), " ", "_"))
	if name == "" {
		return "Laudo_Vistoria_" + id + ".docx"
	}
	return "Laudo_Vistoria_" + name + "_" + id + ".docx"
}
