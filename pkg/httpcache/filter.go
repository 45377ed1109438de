package httpcache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/region-cache/pkg/cache"
	"github.com/Sternrassler/region-cache/pkg/region"
)

// Resolver maps a request path to its region.
type Resolver interface {
	Resolve(path string) region.Region
}

// ErrorHandler writes the response for a request whose cache access failed.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Config holds the filter configuration.
type Config struct {
	// Engine stores the cached responses.
	Engine cache.Engine

	// Resolver maps request paths to regions.
	Resolver Resolver

	// HardenedMode serves requests without the cache when the backend fails
	// instead of failing the request.
	HardenedMode bool

	// ErrorHandler answers requests whose cache access failed outside
	// hardened mode. Defaults to a plain 500 response.
	ErrorHandler ErrorHandler

	// Logger receives per-request diagnostics.
	Logger zerolog.Logger
}

// Filter is HTTP middleware that serves GET requests from a cache engine.
//
// For each GET request the path is resolved to a region. Passthrough
// regions go straight to the next handler. Otherwise the stored entry is
// fetched conditionally on If-None-Match:
//
//   - miss: the next handler runs, a 200 response is stored and served
//     with a fresh ETag
//   - client copy current: 304 Not Modified
//   - otherwise: the stored payload is served with its ETag
//
// Other methods bypass the cache.
type Filter struct {
	engine   cache.Engine
	resolver Resolver
	hardened bool
	onError  ErrorHandler
	logger   zerolog.Logger
}

// New creates a filter. Engine and Resolver are required.
func New(cfg Config) (*Filter, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("%w: engine is required", cache.ErrInvalidArgument)
	}
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("%w: resolver is required", cache.ErrInvalidArgument)
	}
	onError := cfg.ErrorHandler
	if onError == nil {
		onError = internalError
	}
	return &Filter{
		engine:   cfg.Engine,
		resolver: cfg.Resolver,
		hardened: cfg.HardenedMode,
		onError:  onError,
		logger:   cfg.Logger,
	}, nil
}

// Middleware wraps next with the cache.
func (f *Filter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		decision := decisionBypass
		if r.Method == http.MethodGet {
			decision = f.serve(w, r, next)
		} else {
			next.ServeHTTP(w, r)
		}

		Requests.WithLabelValues(decision).Inc()
		RequestDuration.WithLabelValues(decision).Observe(time.Since(start).Seconds())
	})
}

func (f *Filter) serve(w http.ResponseWriter, r *http.Request, next http.Handler) string {
	reg := f.resolver.Resolve(r.URL.Path)
	if !reg.IsCacheable() {
		next.ServeHTTP(w, r)
		return decisionPassthrough
	}

	ctx := r.Context()
	key := reg.Key(r.URL.RequestURI())
	clientETag := strings.TrimSpace(r.Header.Get("If-None-Match"))

	result, err := f.engine.FetchIfChanged(ctx, key, clientETag)
	if err != nil {
		return f.fail(w, r, err, key, func() { next.ServeHTTP(w, r) })
	}

	switch {
	case result.UpsertNeeded:
		return f.regenerate(ctx, w, r, next, key, reg)

	case result.NotModified():
		w.Header().Set("ETag", clientETag)
		w.WriteHeader(http.StatusNotModified)
		return decisionNotModified

	default:
		writeEntry(w, result.Entry())
		return decisionServed
	}
}

// regenerate runs the next handler and stores its response when it is an
// unencoded 200.
func (f *Filter) regenerate(ctx context.Context, w http.ResponseWriter, r *http.Request, next http.Handler, key string, reg region.Region) string {
	rec := newRecorder()
	next.ServeHTTP(rec, r)

	if rec.status != http.StatusOK || contentEncoded(rec.header) {
		rec.copyTo(w)
		return decisionUncacheable
	}

	body := rec.body.Bytes()
	contentType := rec.header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
		rec.header.Set("Content-Type", contentType)
	}
	entry := cache.Entry{
		Payload:     string(body),
		ETag:        ETag(body),
		ContentType: contentType,
		Encoding:    charset(contentType),
	}

	if err := f.engine.Upsert(ctx, key, entry, reg); err != nil {
		// The handler already ran; hardened mode serves what it produced.
		return f.fail(w, r, err, key, func() { rec.copyTo(w) })
	}

	rec.header.Set("ETag", entry.ETag)
	rec.copyTo(w)

	f.logger.Debug().
		Str("region", reg.ID).
		Str("key", key).
		Int("bytes", len(body)).
		Msg("Response cached")
	return decisionUpsert
}

// fail handles a cache access error. In hardened mode repository errors are
// logged and fallback serves the request; everything else goes to the error
// handler.
func (f *Filter) fail(w http.ResponseWriter, r *http.Request, err error, key string, fallback func()) string {
	if f.hardened && cache.IsRepositoryError(err) {
		f.logger.Warn().
			Err(err).
			Str("key", key).
			Msg("Cache unavailable, serving without cache")
		fallback()
		return decisionFallback
	}

	f.logger.Error().
		Err(err).
		Str("key", key).
		Msg("Cache access failed")
	f.onError(w, r, err)
	return decisionError
}

// contentEncoded reports whether the body is transfer-compressed. Entries keep
// no Content-Encoding, so such bodies cannot be replayed.
func contentEncoded(h http.Header) bool {
	ce := strings.TrimSpace(h.Get("Content-Encoding"))
	return ce != "" && !strings.EqualFold(ce, "identity")
}

func writeEntry(w http.ResponseWriter, entry cache.Entry) {
	h := w.Header()
	if ct := withCharset(entry.ContentType, entry.Encoding); ct != "" {
		h.Set("Content-Type", ct)
	}
	h.Set("ETag", entry.ETag)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, entry.Payload)
}

func internalError(w http.ResponseWriter, _ *http.Request, _ error) {
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
