// Package web is the HTTP surface: the chi routes, the per-request
// transaction pipeline, and the rendered pages.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/alexcrichton/bors2/internal/adapter/postgres"
	"github.com/alexcrichton/bors2/internal/domain"
	"github.com/alexcrichton/bors2/internal/logger"
)

// RequestContext carries everything a handler needs: the response
// writer, the request (whose context holds the open transaction), and
// the flash consumed from the previous request.
type RequestContext struct {
	W     http.ResponseWriter
	R     *http.Request
	Flash string
}

// Context returns the request context, transaction included.
func (rc *RequestContext) Context() context.Context {
	return rc.R.Context()
}

// Param returns a route parameter, erroring when it is absent rather
// than handing back an empty string.
func (rc *RequestContext) Param(name string) (string, error) {
	v := chi.URLParam(rc.R, name)
	if v == "" {
		return "", fmt.Errorf("missing route param %q: %w", name, domain.ErrMalformedInput)
	}
	return v, nil
}

// FormValue returns a required form field.
func (rc *RequestContext) FormValue(name string) (string, error) {
	v := rc.R.FormValue(name)
	if v == "" {
		return "", fmt.Errorf("missing form field %q: %w", name, domain.ErrMalformedInput)
	}
	return v, nil
}

// Redirect sends a see-other redirect, the shape every post-action
// response here takes.
func (rc *RequestContext) Redirect(url string) {
	http.Redirect(rc.W, rc.R, url, http.StatusSeeOther)
}

// HandlerFunc is a pipeline-wrapped handler. A nil return commits the
// request transaction; an error rolls it back and is translated.
type HandlerFunc func(rc *RequestContext) error

// txBeginner is the slice of pgxpool.Pool the pipeline needs.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Pipeline wraps handlers with the per-request transaction and the
// error translation rules.
type Pipeline struct {
	db    txBeginner
	flash *FlashCodec
}

// NewPipeline creates a Pipeline over the given pool.
func NewPipeline(db txBeginner, flash *FlashCodec) *Pipeline {
	return &Pipeline{db: db, flash: flash}
}

// Wrap runs a handler inside one transaction. The transaction rides the
// request context, so every store call under this request lands on it;
// commit happens only on a nil handler error.
func (p *Pipeline) Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flash := p.flash.Take(w, r)

		tx, err := p.db.Begin(r.Context())
		if err != nil {
			slog.Error("begin transaction", "error", err, "request_id", logger.RequestID(r.Context()))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		rc := &RequestContext{
			W:     w,
			R:     r.WithContext(postgres.WithTx(r.Context(), tx)),
			Flash: flash,
		}

		if err := h(rc); err != nil {
			_ = tx.Rollback(r.Context())
			p.renderError(w, r, err)
			return
		}

		if err := tx.Commit(r.Context()); err != nil {
			slog.Error("commit transaction", "error", err, "request_id", logger.RequestID(r.Context()))
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
	}
}

// renderError translates handler errors. Missing project is the one
// kind with user-facing treatment: a flash and a redirect back to the
// listing. Malformed input is the caller's fault. Everything else is
// logged with its full chain and answered generically.
func (p *Pipeline) renderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		p.flash.Set(w, "no such repository has been registered")
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case errors.Is(err, domain.ErrMalformedInput):
		http.Error(w, "bad request", http.StatusBadRequest)
	default:
		slog.Error("request failed",
			"method", r.Method, "path", r.URL.Path,
			"error", err, "request_id", logger.RequestID(r.Context()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
