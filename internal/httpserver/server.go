// Package httpserver exposes the report form, the generation endpoint and
// the download of generated documents over HTTP.
package httpserver

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/vistoriadocs/laudo/internal/housekeeping"
	"github.com/vistoriadocs/laudo/internal/uploads"
	"github.com/vistoriadocs/laudo/pkg/laudo"
)

// Options wires the server to its collaborators.
type Options struct {
	Generator *laudo.Generator
	Store     *uploads.Store
	// Sweeper runs before the form is rendered. Optional.
	Sweeper *housekeeping.Sweeper
	// RequiredFields must be non-blank for a report to be generated.
	RequiredFields []string
	// MaxRequestBytes bounds the whole multipart body. Zero means no bound.
	MaxRequestBytes int64
	// SecretKey signs flash cookies. A random key is used when empty.
	SecretKey []byte
	// SecureCookies marks cookies as HTTPS only.
	SecureCookies bool
	Logger        *zap.Logger
}

// Server is the HTTP front end of the report generator.
type Server struct {
	gen      *laudo.Generator
	store    *uploads.Store
	sweeper  *housekeeping.Sweeper
	required []string
	maxBody  int64
	flashes  *flashStore
	pages    pages
	logger   *zap.Logger
	router   chi.Router
}

// New builds the server and its routes.
func New(opts Options) (*Server, error) {
	if opts.Generator == nil {
		return nil, errors.New("httpserver: generator is required")
	}
	if opts.Store == nil {
		return nil, errors.New("httpserver: upload store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	key := opts.SecretKey
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("httpserver: generate secret key: %w", err)
		}
		logger.Warn("no secret key configured; flash messages will not survive a restart")
	}

	p, err := loadPages()
	if err != nil {
		return nil, err
	}

	s := &Server{
		gen:      opts.Generator,
		store:    opts.Store,
		sweeper:  opts.Sweeper,
		required: append([]string(nil), opts.RequiredFields...),
		maxBody:  opts.MaxRequestBytes,
		flashes:  newFlashStore(key, opts.SecureCookies),
		pages:    p,
		logger:   logger.Named("http"),
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(recoverer(s.logger))

	r.Get("/", s.handleIndex)
	r.Post("/gerar", s.handleGenerate)
	r.Get("/resultado/{filename}", s.handleResult)
	r.Get("/download/{filename}", s.handleDownload)
	r.Get("/healthz", s.handleHealth)
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
