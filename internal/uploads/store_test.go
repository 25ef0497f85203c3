package uploads

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistoriadocs/laudo/internal/docxtest"
)

func newTestStore(t *testing.T, policy Policy) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), policy, nil)
	require.NoError(t, err)
	return s
}

func TestSecureFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"foto.jpg", "foto.jpg"},
		{"Área de Serviço.JPG", "Area_de_Servico.JPG"},
		{"../../etc/passwd", "etc_passwd"},
		{`C:\fotos\sala 1.png`, "C_fotos_sala_1.png"},
		{"  cozinha   nova .png", "cozinha_nova_.png"},
		{"...", ""},
		{"日本.png", "png"},
		{"con.jpg", "_con.jpg"},
		{"Maria Silva", "Maria_Silva"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SecureFilename(tt.in))
		})
	}
}

func TestStore_Allowed(t *testing.T) {
	s := newTestStore(t, DefaultPolicy())

	for _, name := range []string{"a.jpg", "A.JPEG", "b.png", "c.webp", `C:\x\d.Tif`} {
		assert.True(t, s.Allowed(name), name)
	}
	for _, name := range []string{"a.exe", "jpg", "b.png.sh", "c.svg", ""} {
		assert.False(t, s.Allowed(name), name)
	}
}

func TestNewStore_InvalidPolicy(t *testing.T) {
	_, err := NewStore(t.TempDir(), Policy{}, nil)
	assert.Error(t, err)

	_, err = NewStore(" ", DefaultPolicy(), nil)
	assert.Error(t, err)
}

func TestBatch_Save(t *testing.T) {
	png := docxtest.PNG(t, 20, 20)

	tests := []struct {
		name       string
		filename   string
		content    []byte
		maxBytes   int64
		wantReject string
	}{
		{name: "png accepted", filename: "Sala Ampla.png", content: png},
		{name: "jpeg with wrong extension still an image", filename: "foto.png", content: docxtest.JPEG(t, 8, 8)},
		{name: "extension not allowed", filename: "script.sh", content: png, wantReject: "not allowed"},
		{name: "text disguised as image", filename: "foto.jpg", content: []byte("hello world"), wantReject: "not an image"},
		{name: "empty file", filename: "vazia.png", content: nil, wantReject: "empty"},
		{name: "too large", filename: "grande.png", content: png, maxBytes: 16, wantReject: "larger than 16 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := DefaultPolicy()
			policy.MaxFileBytes = tt.maxBytes
			s := newTestStore(t, policy)
			batch := s.NewBatch()

			path, err := batch.Save(tt.filename, bytes.NewReader(tt.content))
			if tt.wantReject != "" {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrRejected))
				assert.Contains(t, err.Error(), tt.wantReject)
				assert.Zero(t, batch.Len())

				entries, _ := os.ReadDir(s.Dir())
				assert.Empty(t, entries)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, s.Dir(), filepath.Dir(path))
			assert.Regexp(t, regexp.MustCompile(`^[0-9a-f-]{36}_`+regexp.QuoteMeta(SecureFilename(tt.filename))+`$`), filepath.Base(path))

			saved, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.content, saved)
		})
	}
}

func TestBatch_ReleaseRemovesEverything(t *testing.T) {
	s := newTestStore(t, DefaultPolicy())
	batch := s.NewBatch()

	var paths []string
	for _, name := range []string{"a.png", "a.png", "b.png"} {
		p, err := batch.Save(name, bytes.NewReader(docxtest.PNG(t, 4, 4)))
		require.NoError(t, err)
		paths = append(paths, p)
	}
	assert.Equal(t, 3, batch.Len())
	assert.NotEqual(t, paths[0], paths[1])

	// One file already gone must not make Release fail.
	require.NoError(t, os.Remove(paths[2]))

	require.NoError(t, batch.Release())
	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.NoError(t, batch.Release())
	assert.Zero(t, batch.Len())
}

func TestBatch_SaveLargeFileWithinLimit(t *testing.T) {
	policy := DefaultPolicy()
	policy.MaxFileBytes = 1 << 20
	s := newTestStore(t, policy)

	content := append(docxtest.PNG(t, 4, 4), bytes.Repeat([]byte{0}, sniffLen*3)...)
	path, err := s.NewBatch().Save("grande.png", bytes.NewReader(content))
	require.NoError(t, err)

	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, len(content), len(saved))
	assert.True(t, strings.HasSuffix(path, "_grande.png"))
}
