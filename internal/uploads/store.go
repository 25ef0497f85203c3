// Package uploads stores the photos of one report request on disk for the
// time it takes to generate the document.
package uploads

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vistoriadocs/laudo/pkg/laudo"
)

// ErrRejected matches every upload refused by the store's policy.
var ErrRejected = errors.New("upload rejected")

// sniffLen is how much of a file is read to detect its content type.
const sniffLen = 3072

// RejectionError explains why an upload was refused.
type RejectionError struct {
	Filename string
	Reason   string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("upload %q rejected: %s", e.Filename, e.Reason)
}

// Is makes errors.Is(err, ErrRejected) true for every rejection.
func (e *RejectionError) Is(target error) bool {
	return target == ErrRejected
}

// Policy decides which uploads are accepted.
type Policy struct {
	// AllowedPatterns are glob patterns matched against the lower-cased
	// client file name, e.g. "*.jpg".
	AllowedPatterns []string
	// MaxFileBytes bounds the size of one file. Zero means no bound.
	MaxFileBytes int64
}

// DefaultPolicy accepts the usual photo formats up to 16 MiB each.
func DefaultPolicy() Policy {
	return Policy{
		AllowedPatterns: []string{"*.jpg", "*.jpeg", "*.png", "*.gif", "*.bmp", "*.tif", "*.tiff", "*.webp"},
		MaxFileBytes:    16 << 20,
	}
}

// Store writes uploads into one directory.
type Store struct {
	dir      string
	allow    []glob.Glob
	maxBytes int64
	logger   *zap.Logger
}

// NewStore creates a store writing into dir, creating it when needed.
func NewStore(dir string, policy Policy, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("upload directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{dir: dir, maxBytes: policy.MaxFileBytes, logger: logger.Named("uploads")}
	for _, pattern := range policy.AllowedPatterns {
		g, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid upload pattern %q: %w", pattern, err)
		}
		s.allow = append(s.allow, g)
	}
	if len(s.allow) == 0 {
		return nil, errors.New("at least one allowed upload pattern is required")
	}
	return s, nil
}

// Dir returns the directory uploads are written to.
func (s *Store) Dir() string {
	return s.dir
}

// MaxFileBytes returns the size bound of one upload. Zero means unbounded.
func (s *Store) MaxFileBytes() int64 {
	return s.maxBytes
}

// Allowed reports whether a client file name passes the extension allow-list.
func (s *Store) Allowed(filename string) bool {
	name := strings.ToLower(filepath.Base(strings.ReplaceAll(filename, `\`, "/")))
	for _, g := range s.allow {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// NewBatch starts a set of uploads that are released together.
func (s *Store) NewBatch() *Batch {
	return &Batch{store: s}
}

// Batch holds the files saved for one request. Release removes them; it is
// meant to be deferred right after the batch is created.
type Batch struct {
	store *Store
	paths []string
}

// Save writes one upload under a unique name and returns its path. Files
// with a name outside the allow-list, content that is not an image, or a
// size over the limit are refused with an error matching ErrRejected.
func (b *Batch) Save(filename string, r io.Reader) (string, error) {
	s := b.store
	if !s.Allowed(filename) {
		return "", &RejectionError{Filename: filename, Reason: "file type not allowed"}
	}

	header := make([]byte, sniffLen)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload %q: %w", filename, err)
	}
	header = header[:n]
	if n == 0 {
		return "", &RejectionError{Filename: filename, Reason: "file is empty"}
	}

	mtype := mimetype.Detect(header)
	if !isImage(mtype) {
		return "", &RejectionError{Filename: filename, Reason: "content is " + mtype.String() + ", not an image"}
	}

	safe := SecureFilename(filename)
	if safe == "" {
		safe = "imagem" + mtype.Extension()
	}
	path := filepath.Join(s.dir, uuid.NewString()+"_"+safe)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	var src io.Reader = io.MultiReader(bytes.NewReader(header), r)
	if s.maxBytes > 0 {
		src = io.LimitReader(src, s.maxBytes+1)
	}
	written, err := io.Copy(f, src)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if s.maxBytes > 0 && written > s.maxBytes {
		os.Remove(path)
		return "", &RejectionError{Filename: filename, Reason: fmt.Sprintf("file is larger than %d bytes", s.maxBytes)}
	}

	b.paths = append(b.paths, path)
	return path, nil
}

// Len returns the number of saved files.
func (b *Batch) Len() int {
	return len(b.paths)
}

// Release removes every file of the batch. Files already gone are ignored.
// Calling Release again is a no-op.
func (b *Batch) Release() error {
	errs := laudo.NewMultiError()
	for _, path := range b.paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			b.store.logger.Error("failed to remove upload", zap.String("path", path), zap.Error(err))
			errs.Add(err)
		}
	}
	b.paths = nil
	return errs.Err()
}

func isImage(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "image/") {
			return true
		}
	}
	return false
}
