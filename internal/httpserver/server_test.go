package httpserver

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistoriadocs/laudo/internal/docxtest"
	"github.com/vistoriadocs/laudo/internal/housekeeping"
	"github.com/vistoriadocs/laudo/internal/uploads"
	"github.com/vistoriadocs/laudo/pkg/laudo"
)

type testEnv struct {
	server    *Server
	template  string
	uploadDir string
	outputDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	body := docxtest.P("Locatário: ", "{{LOCATARIO_NOME_1}}") +
		docxtest.P("{{IMAGENS_SALA}}") +
		docxtest.P("{{IMAGENS_COZINHA}}")
	template := docxtest.WriteTemplate(t, root, "Vistoria_Modelo.docx", body)

	env := &testEnv{
		template:  template,
		uploadDir: filepath.Join(root, "uploads"),
		outputDir: filepath.Join(root, "gerados"),
	}
	require.NoError(t, os.MkdirAll(env.outputDir, 0o755))

	gen, err := laudo.NewGenerator(laudo.Config{TemplatePath: template, OutputDir: env.outputDir})
	require.NoError(t, err)
	store, err := uploads.NewStore(env.uploadDir, uploads.DefaultPolicy(), nil)
	require.NoError(t, err)

	env.server, err = New(Options{
		Generator:       gen,
		Store:           store,
		Sweeper:         housekeeping.NewSweeper(24*time.Hour, []string{env.uploadDir, env.outputDir}),
		RequiredFields:  []string{"LOCATARIO_NOME_1"},
		MaxRequestBytes: 64 << 20,
		SecretKey:       []byte("test-secret"),
	})
	require.NoError(t, err)
	return env
}

type upload struct {
	field, filename string
	content         []byte
}

func multipartRequest(t *testing.T, fields map[string]string, files ...upload) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = fw.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/gerar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

// follow performs a GET on the redirect target carrying the response cookies.
func (e *testEnv) follow(t *testing.T, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, rec.Code)
	req := httptest.NewRequest(http.MethodGet, rec.Header().Get("Location"), nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return e.do(req)
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestIndex_RendersFormAndSweeps(t *testing.T) {
	env := newTestEnv(t)
	stale := docxtest.WriteFile(t, env.outputDir, "Laudo_Vistoria_antigo_abc123.docx", []byte("x"))
	old := time.Now().Add(-30 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Nome do Locatário 1")
	assert.Contains(t, body, `name="LOCATARIO_NOME_1"`)
	for _, c := range laudo.Categories() {
		assert.Contains(t, body, `name="`+c.FieldName()+`"`)
	}
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	assert.NoFileExists(t, stale)
}

func TestGenerate_MissingRequiredField(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(multipartRequest(t, map[string]string{"LOCATARIO_NOME_1": "   "}))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Empty(t, dirNames(t, env.outputDir))

	page := env.follow(t, rec)
	assert.Contains(t, page.Body.String(), "Nome do Locatário 1")
	assert.Contains(t, page.Body.String(), "é obrigatório para gerar o arquivo.")
}

func TestGenerate_Success(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(multipartRequest(t,
		map[string]string{"LOCATARIO_NOME_1": "Maria Silva", "ENDERECO_IMOVEL": "Rua A, 1"},
		upload{"imagens_sala", "sala 1.png", docxtest.PNG(t, 40, 20)},
		upload{"imagens_sala", "sala 2.jpg", docxtest.JPEG(t, 20, 20)},
		upload{"imagens_cozinha", "notas.txt", []byte("não é imagem")},
	))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	location := rec.Header().Get("Location")
	assert.Regexp(t, regexp.MustCompile(`^/resultado/Laudo_Vistoria_Maria_Silva_[0-9a-f]{6}\.docx$`), location)

	assert.Empty(t, dirNames(t, env.uploadDir), "uploads must be removed after generation")
	outputs := dirNames(t, env.outputDir)
	require.Len(t, outputs, 1)
	assert.Equal(t, strings.TrimPrefix(location, "/resultado/"), outputs[0])

	doc := docxtest.Open(t, filepath.Join(env.outputDir, outputs[0])).Document()
	assert.Contains(t, doc, "Maria Silva")
	assert.NotContains(t, doc, "{{LOCATARIO_NOME_1}}")
	assert.NotContains(t, doc, "{{IMAGENS_SALA}}")
	assert.Equal(t, 2, strings.Count(doc, "r:embed="))
	assert.NotContains(t, doc, "{{IMAGENS_COZINHA}}")

	page := env.follow(t, rec)
	require.Equal(t, http.StatusOK, page.Code)
	body := page.Body.String()
	assert.Contains(t, body, "Laudo gerado com sucesso.")
	assert.Contains(t, body, "foi ignorada")
	assert.Contains(t, body, "/download/"+outputs[0])
}

func TestGenerate_AllUploadsRejectedClearsMarker(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(multipartRequest(t,
		map[string]string{"LOCATARIO_NOME_1": "Maria Silva"},
		upload{"imagens_sala", "notas.txt", []byte("não é imagem")},
	))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	outputs := dirNames(t, env.outputDir)
	require.Len(t, outputs, 1)

	doc := docxtest.Open(t, filepath.Join(env.outputDir, outputs[0])).Document()
	assert.NotContains(t, doc, "{{IMAGENS_SALA}}")
	assert.NotContains(t, doc, "r:embed=")
	assert.Contains(t, doc, "{{IMAGENS_COZINHA}}")
	assert.Contains(t, env.follow(t, rec).Body.String(), "foi ignorada")
}

func TestGenerate_EmptyFileInputIsIgnored(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(multipartRequest(t,
		map[string]string{"LOCATARIO_NOME_1": "João"},
		upload{"imagens_sala", "", nil},
	))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/resultado/Laudo_Vistoria_Joao_"))
	assert.NotContains(t, env.follow(t, rec).Body.String(), "foi ignorada")
}

func TestGenerate_TemplateMissing(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.Remove(env.template))

	rec := env.do(multipartRequest(t,
		map[string]string{"LOCATARIO_NOME_1": "Maria"},
		upload{"imagens_sala", "sala.png", docxtest.PNG(t, 4, 4)},
	))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Empty(t, dirNames(t, env.outputDir))
	assert.Empty(t, dirNames(t, env.uploadDir))
	assert.Contains(t, env.follow(t, rec).Body.String(), "Erro Crítico: O arquivo modelo da vistoria não foi encontrado no servidor.")
}

func TestGenerate_CorruptTemplate(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(env.template, []byte("isto não é um docx"), 0o644))

	rec := env.do(multipartRequest(t, map[string]string{"LOCATARIO_NOME_1": "Maria"}))

	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Contains(t, env.follow(t, rec).Body.String(), "Ocorreu um erro inesperado ao gerar o documento.")
}

func TestGenerate_NotMultipart(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/gerar", strings.NewReader("LOCATARIO_NOME_1=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := env.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownload(t *testing.T) {
	env := newTestEnv(t)
	name := "Laudo_Vistoria_Maria_abc123.docx"
	content := docxtest.Build(docxtest.P("ok"))
	docxtest.WriteFile(t, env.outputDir, name, content)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/download/"+name, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, docxContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=`+name, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, content, rec.Body.Bytes())

	rec = env.do(httptest.NewRequest(http.MethodGet, "/download/inexistente.docx", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/resultado/inexistente.docx", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidDocumentName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Laudo_Vistoria_Maria_abc123.docx", true},
		{"LAUDO.DOCX", true},
		{"", false},
		{"../segredo.docx", false},
		{`..\segredo.docx`, false},
		{".oculto.docx", false},
		{"notas.txt", false},
		{"a/b.docx", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, validDocumentName(tt.name), tt.name)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	require.NoError(t, os.Remove(env.template))
	rec = env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.NotEqual(t, "ok", resp.Template)
}

func TestOutputName(t *testing.T) {
	pattern := regexp.MustCompile(`^Laudo_Vistoria_Ana_Maria_de_Sa_[0-9a-f]{6}\.docx$`)
	assert.Regexp(t, pattern, outputName(" Ana Maria de Sá "))
	assert.Regexp(t, regexp.MustCompile(`^Laudo_Vistoria_[0-9a-f]{6}\.docx$`), outputName("../"))
	assert.NotEqual(t, outputName("x"), outputName("x"))
}

func TestRequestID_ReusesSaneHeader(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	assert.Equal(t, "abc-123", env.do(req).Header().Get(requestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "<script>")
	assert.NotEqual(t, "<script>", env.do(req).Header().Get(requestIDHeader))
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}
