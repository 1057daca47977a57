// Package web serves the browser UI: an upload form with asset pickers, a
// preview gallery of rendered pages and a download of the branded document.
//
// State that a desktop tool would keep in globals (the picked document and
// the rendered preview) lives in a per-browser Session identified by a cookie.
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/stepguide/brandpdf"
	"github.com/stepguide/brandpdf/compose"
	"github.com/stepguide/brandpdf/imagefmt"
	"github.com/stepguide/brandpdf/inspect"
	"github.com/stepguide/brandpdf/preview"
)

// SessionCookie names the cookie carrying the session ID.
const SessionCookie = "brandpdf_session"

// Defaults for a Server created without options.
const (
	DefaultMaxUpload  = 64 << 20
	DefaultSessionTTL = 30 * time.Minute
)

// Option configures a Server.
type Option func(*Server)

// WithMaxUpload limits the size of one multipart request body in bytes.
func WithMaxUpload(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithSessionTTL sets how long an idle session is kept.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Server) {
		if ttl > 0 {
			s.store = NewStore(ttl)
		}
	}
}

// WithMaxConcurrent bounds the number of generation runs across all sessions.
// Zero derives the limit from GOMAXPROCS.
func WithMaxConcurrent(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.slots = make(chan struct{}, n)
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Server handles the web UI. It is an http.Handler.
type Server struct {
	composer  *compose.Composer
	renderer  *preview.Renderer
	store     *Store
	slots     chan struct{}
	maxUpload int64
	logger    *slog.Logger
	mux       *http.ServeMux
}

// NewServer creates a Server that brands documents with c and renders
// previews with r.
func NewServer(c *compose.Composer, r *preview.Renderer, opts ...Option) *Server {
	s := &Server{
		composer:  c,
		renderer:  r,
		store:     NewStore(DefaultSessionTTL),
		maxUpload: DefaultMaxUpload,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.slots == nil {
		s.slots = make(chan struct{}, defaultConcurrency())
	}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /upload", s.handleUpload)
	s.mux.HandleFunc("POST /preview", s.handlePreview)
	s.mux.HandleFunc("POST /download", s.handleDownload)
	s.mux.HandleFunc("GET /pages/{n}", s.handlePage)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	return s
}

// defaultConcurrency sizes the run limit from available CPUs: composing and
// rasterizing are CPU-bound, and pdftoppm runs as a separate process.
func defaultConcurrency() int {
	n := runtime.GOMAXPROCS(0) / 2
	return min(max(n, 1), 8)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Sessions returns the session store.
func (s *Server) Sessions() *Store {
	return s.store
}

// Janitor sweeps idle sessions every interval until ctx is done.
func (s *Server) Janitor(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.store.Sweep(); n > 0 {
				s.logger.Debug("sessions expired", slog.Int("count", n))
			}
		}
	}
}

// session returns the caller's session, issuing a cookie for new ones.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *Session {
	id := ""
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}
	sess, created := s.store.Get(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess
}

// run executes fn while holding the session and a server-wide slot.
func (s *Server) run(ctx context.Context, sess *Session, fn func(context.Context) error) error {
	if err := sess.Begin(); err != nil {
		return err
	}
	defer sess.End()

	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.slots }()

	return fn(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	s.renderIndex(w, http.StatusOK, pageData{Pages: sess.Gallery.Len(), Document: documentNames(sess.Documents())})
}

// handleUpload stores the picked documents and previews the first one as-is.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if err := s.parseForm(w, r); err != nil {
		s.fail(w, err)
		return
	}

	docs, err := formAssets(r, "document")
	if err != nil {
		s.fail(w, err)
		return
	}
	if len(docs) == 0 {
		s.fail(w, brandpdf.ErrNoDocument)
		return
	}
	for _, doc := range docs {
		if err := brandpdf.ValidateDocument(doc); err != nil {
			s.fail(w, err)
			return
		}
	}

	var pages int
	err = s.run(r.Context(), sess, func(ctx context.Context) error {
		sess.SetDocuments(docs)
		n, err := s.renderer.Render(ctx, docs[0].Data, sess.Gallery)
		pages = n
		return err
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	names := documentNames(docs)
	s.logger.Info("documents uploaded", slog.String("session", sess.ID), slog.String("names", names), slog.Int("pages", pages))
	s.renderIndex(w, http.StatusOK, pageData{Pages: pages, Document: names})
}

// handlePreview brands the assets and shows the result.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	src, err := s.sourceAssets(w, r, sess)
	if err != nil {
		s.fail(w, err)
		return
	}

	var pages int
	err = s.run(r.Context(), sess, func(ctx context.Context) error {
		res, err := s.composer.Compose(ctx, src)
		if err != nil {
			sess.Gallery.Clear()
			return err
		}
		n, err := s.renderer.Render(ctx, res.Data, sess.Gallery)
		pages = n
		return err
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	s.renderIndex(w, http.StatusOK, pageData{
		Pages:    pages,
		Document: documentNames(sess.Documents()),
		Title:    r.FormValue("title"),
		Name:     r.FormValue("name"),
	})
}

// handleDownload brands the assets and returns the document as an attachment.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	src, err := s.sourceAssets(w, r, sess)
	if err != nil {
		s.fail(w, err)
		return
	}

	var res *compose.Result
	err = s.run(r.Context(), sess, func(ctx context.Context) error {
		var err error
		res, err = s.composer.Compose(ctx, src)
		return err
	})
	if err != nil {
		s.fail(w, err)
		return
	}

	filename := brandpdf.OutputFilename(r.FormValue("name"), src.Title)
	w.Header().Set("Content-Type", brandpdf.MIMEPDF)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Data); err != nil {
		s.logger.Warn("writing download", slog.String("session", sess.ID), slog.Any("error", err))
	}
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil || n < 1 {
		http.Error(w, "invalid page number", http.StatusBadRequest)
		return
	}
	data, err := sess.Gallery.PNG(n)
	if err != nil {
		http.Error(w, "page not rendered", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "ok\n")
}

func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		return &requestError{err: fmt.Errorf("web: parsing form: %w", err)}
	}
	return nil
}

// sourceAssets builds the run input from the form. Documents posted with the
// request replace the session's uploaded documents.
func (s *Server) sourceAssets(w http.ResponseWriter, r *http.Request, sess *Session) (*brandpdf.SourceAssets, error) {
	if err := s.parseForm(w, r); err != nil {
		return nil, err
	}

	docs, err := formAssets(r, "document")
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		docs = sess.Documents()
	} else {
		sess.SetDocuments(docs)
	}

	src := &brandpdf.SourceAssets{Documents: docs, Title: r.FormValue("title")}
	for _, slot := range []struct {
		field string
		dst   *brandpdf.Asset
	}{
		{"logo", &src.Logo},
		{"border", &src.Border},
		{"background", &src.Background},
	} {
		assets, err := formAssets(r, slot.field)
		if err != nil {
			return nil, err
		}
		if len(assets) > 0 {
			*slot.dst = assets[0]
		}
	}
	return src, nil
}

// formAssets reads every file posted under field.
func formAssets(r *http.Request, field string) ([]brandpdf.Asset, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	var assets []brandpdf.Asset
	for _, fh := range r.MultipartForm.File[field] {
		a, err := readFileHeader(fh)
		if err != nil {
			return nil, err
		}
		if !a.Empty() {
			assets = append(assets, a)
		}
	}
	return assets, nil
}

func readFileHeader(fh *multipart.FileHeader) (brandpdf.Asset, error) {
	f, err := fh.Open()
	if err != nil {
		return brandpdf.Asset{}, fmt.Errorf("web: opening %s: %w", fh.Filename, err)
	}
	defer f.Close()

	a, err := brandpdf.ReadAsset(fh.Filename, f)
	if err != nil {
		return brandpdf.Asset{}, err
	}
	a.ContentType = fh.Header.Get("Content-Type")
	return a, nil
}

// requestError marks malformed requests.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

// statusFor maps a run error to an HTTP status.
func statusFor(err error) int {
	var reqErr *requestError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &reqErr), brandpdf.IsInputError(err):
		return http.StatusBadRequest
	case errors.Is(err, brandpdf.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, inspect.ErrCorrupted), errors.Is(err, imagefmt.ErrUnsupportedImage),
		errors.Is(err, compose.ErrUnencodableText):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	ref := uuid.NewString()
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(context.Background(), level, "request failed",
		slog.Int("status", status), slog.String("ref", ref), slog.Any("error", err))

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error (ref " + ref + ")"
	}
	s.renderIndex(w, status, pageData{Error: msg})
}
