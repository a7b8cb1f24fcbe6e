package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/elkbridge/pkg/buildinfo"
	"github.com/matzehuels/elkbridge/pkg/cache"
	"github.com/matzehuels/elkbridge/pkg/elk"
	"github.com/matzehuels/elkbridge/pkg/errors"
	"github.com/matzehuels/elkbridge/pkg/render"
	"github.com/matzehuels/elkbridge/pkg/render/nodelink"
	"github.com/matzehuels/elkbridge/pkg/store"
)

// LayoutResponse is the body of a successful POST /v1/layout.
type LayoutResponse struct {
	ID        string          `json:"id,omitempty"`
	GraphHash string          `json:"graph_hash"`
	Cached    bool            `json:"cached"`
	Layout    json.RawMessage `json:"layout"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status        string `json:"status"`
	Engine        string `json:"engine"`
	EngineVersion string `json:"engine_version"`
	Version       string `json:"version"`
	Uptime        string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Engine:        s.computer.State().String(),
		EngineVersion: s.computer.EngineVersion(),
		Version:       buildinfo.Version,
		Uptime:        time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, http.StatusRequestEntityTooLarge,
				errors.New(errors.ErrCodeInvalidInput, "request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.writeError(w, r, http.StatusBadRequest, errors.Wrap(errors.ErrCodeInvalidInput, err, "read body"))
		return
	}

	g, err := elk.ParseGraph(body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if algorithm := r.URL.Query().Get("algorithm"); algorithm != "" {
		g.SetAlgorithm(algorithm)
	}

	normalized, err := g.Marshal()
	if err != nil {
		s.fail(w, r, errors.Wrap(errors.ErrCodeInternal, err, "encode graph"))
		return
	}
	hash := cache.Hash(normalized)
	key := s.keyer.LayoutKey(hash, cache.LayoutKeyOpts{
		EngineVersion: s.computer.EngineVersion(),
		Algorithm:     g.Algorithm(),
	})

	resp := LayoutResponse{GraphHash: hash}
	if data, hit, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("cache read failed", "key", key, "error", err)
	} else if hit {
		s.hooks.OnCacheHit(ctx, "layout")
		resp.Cached = true
		resp.Layout = data
	} else {
		s.hooks.OnCacheMiss(ctx, "layout")
	}

	// Exchanges run to completion when the client hangs up; the engine's
	// read timeout bounds them.
	work := context.WithoutCancel(ctx)

	if !resp.Cached {
		l, err := s.computer.Compute(work, g)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		data, err := json.Marshal(l)
		if err != nil {
			s.fail(w, r, errors.Wrap(errors.ErrCodeInternal, err, "encode layout"))
			return
		}
		resp.Layout = data
		if err := s.cache.Set(work, key, data, s.ttl); err != nil {
			s.logger.Warn("cache write failed", "key", key, "error", err)
		} else {
			s.hooks.OnCacheSet(ctx, "layout", len(data))
		}
	}

	if s.store != nil {
		rec, err := s.store.Put(work, store.Record{
			GraphHash: hash,
			Algorithm: g.Algorithm(),
			Graph:     normalized,
			Layout:    resp.Layout,
		})
		if err != nil {
			s.logger.Warn("archive failed", "graph_hash", hash, "error", err)
		} else {
			resp.ID = rec.ID
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.record(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	format := render.FormatSVG
	if f := r.URL.Query().Get("format"); f != "" {
		parsed, err := render.ParseFormat(f)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		format = parsed
	}

	rec, ok := s.record(w, r)
	if !ok {
		return
	}
	g, err := elk.ParseGraph(rec.Graph)
	if err != nil {
		s.fail(w, r, errors.Wrap(errors.ErrCodeInternal, err, "archived graph %s", rec.ID))
		return
	}
	l, err := elk.ParseLayout(rec.Layout)
	if err != nil {
		s.fail(w, r, errors.Wrap(errors.ErrCodeInternal, err, "archived layout %s", rec.ID))
		return
	}

	ctx := r.Context()
	opts := nodelink.Options{Labels: r.URL.Query().Get("labels") != "false"}
	content, err := cache.HashJSON([]json.RawMessage{rec.Graph, rec.Layout})
	if err != nil {
		s.fail(w, r, errors.Wrap(errors.ErrCodeInternal, err, "hash layout %s", rec.ID))
		return
	}
	key := s.keyer.RenderKey(content, cache.RenderKeyOpts{Format: string(format), Labels: opts.Labels})

	out, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache read failed", "key", key, "error", err)
	}
	if hit {
		s.hooks.OnCacheHit(ctx, "render")
	} else {
		s.hooks.OnCacheMiss(ctx, "render")
		if out, err = render.Render(ctx, g, l, format, opts); err != nil {
			s.fail(w, r, err)
			return
		}
		if err := s.cache.Set(ctx, key, out, s.ttl); err != nil {
			s.logger.Warn("cache write failed", "key", key, "error", err)
		} else {
			s.hooks.OnCacheSet(ctx, "render", len(out))
		}
	}

	w.Header().Set("Content-Type", format.ContentType())
	if hit {
		w.Header().Set("X-Cache", "hit")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (s *Server) record(w http.ResponseWriter, r *http.Request) (store.Record, bool) {
	if s.store == nil {
		s.writeError(w, r, http.StatusNotFound, errors.New(errors.ErrCodeNotFound, "layout archive is disabled"))
		return store.Record{}, false
	}
	rec, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return store.Record{}, false
	}
	return rec, true
}

// StatusCode maps an error code to an HTTP status.
func StatusCode(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeValidation, errors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeEngineError:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeMalformedResponse:
		return http.StatusBadGateway
	case errors.ErrCodeProcessLaunch, errors.ErrCodeConnection, errors.ErrCodeEngineFailure,
		errors.ErrCodeRuntimeNotFound, errors.ErrCodeProvision, errors.ErrCodeNetwork:
		return http.StatusServiceUnavailable
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ErrorBody is the body of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failure.
type ErrorDetail struct {
	Code      errors.Code        `json:"code"`
	Message   string             `json:"message"`
	Fields    errors.FieldErrors `json:"fields,omitempty"`
	Retryable bool               `json:"retryable,omitempty"`
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.writeError(w, r, StatusCode(err), err)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	if status >= 500 {
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{
		Code:      code,
		Message:   strings.TrimPrefix(err.Error(), string(code)+": "),
		Fields:    errors.ValidationFields(err),
		Retryable: errors.Retryable(err),
	}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
