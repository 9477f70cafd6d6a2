package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/homophoner/internal/health"
	"github.com/MrWong99/homophoner/internal/homophone"
	"github.com/MrWong99/homophoner/internal/homophone/overrides"
	"github.com/MrWong99/homophoner/internal/observe"
)

// maxBodyBytes bounds request bodies; payloads are a word plus a sentence.
const maxBodyBytes = 64 << 10

type resolveRequest struct {
	Word    string `json:"word"`
	Context string `json:"context"`
}

type candidatesResponse struct {
	Word       string   `json:"word"`
	Candidates []string `json:"candidates"`
}

type overrideRequest struct {
	Word        string `json:"word"`
	Context     string `json:"context"`
	Replacement string `json:"replacement"`
}

type overridesFileResponse struct {
	Path string `json:"path"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// pinger is implemented by homophone sources backed by a server, such as
// the redis source.
type pinger interface {
	Ping(ctx context.Context) error
}

// Handler returns the HTTP host surface wrapped in the metrics middleware.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/resolve", a.handleResolve)
	mux.HandleFunc("GET /v1/candidates/{word}", a.handleCandidates)
	mux.HandleFunc("POST /v1/overrides", a.handleSetOverride)
	mux.HandleFunc("GET /v1/overrides", a.handleOverridesFile)

	checkers := []health.Checker{
		{Name: "model", Check: a.models.Ready},
		{Name: "phonetic_index", Check: a.phonetic.Ready, Optional: true},
	}
	if p, ok := a.user.(pinger); ok {
		checkers = append(checkers, health.Checker{Name: "homophones", Check: p.Ping, Optional: true})
	}
	health.New(checkers...).Register(mux)

	if path := a.cfg.Load().Server.MetricsPath; path != "" && path != "-" {
		h := a.metricsH
		if h == nil {
			h = promhttp.Handler()
		}
		mux.Handle("GET "+path, h)
	}

	return observe.Middleware(a.metrics)(mux)
}

func (a *App) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Word) == "" {
		writeError(w, http.StatusBadRequest, "word must not be empty")
		return
	}

	res, err := a.resolver.Explain(r.Context(), req.Word, req.Context)
	if errors.Is(err, homophone.ErrModelUnavailable) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		observe.Logger(r.Context()).Error("resolve failed", "word", req.Word, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *App) handleCandidates(w http.ResponseWriter, r *http.Request) {
	word := r.PathValue("word")
	cands := a.resolver.Candidates(r.Context(), word)
	if cands == nil {
		cands = []string{}
	}
	writeJSON(w, http.StatusOK, candidatesResponse{Word: word, Candidates: cands})
}

func (a *App) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := a.overrides.Set(r.Context(), req.Word, req.Context, req.Replacement)
	if errors.Is(err, overrides.ErrInvalidEntry) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		observe.Logger(r.Context()).Error("saving override failed", "word", req.Word, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	observe.Logger(r.Context()).Info("override saved",
		"word", req.Word,
		"context", req.Context,
		"replacement", req.Replacement,
	)
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleOverridesFile(w http.ResponseWriter, r *http.Request) {
	path, err := a.overrides.EnsureFile()
	if err != nil {
		observe.Logger(r.Context()).Error("override file unavailable", "err", err)
		writeError(w, http.StatusInternalServerError, "override file unavailable")
		return
	}
	writeJSON(w, http.StatusOK, overridesFileResponse{Path: path})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeJSON encodes v before committing the status, so an encoding failure
// still reaches the client as a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		slog.Error("encoding response failed", "err", err)
		status = http.StatusInternalServerError
		buf.Reset()
		buf.WriteString(`{"error":"internal error"}` + "\n")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Debug("writing response failed", "err", err)
	}
}
