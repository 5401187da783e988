package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"mesh-router/internal/config"
	"mesh-router/internal/engine"
	"mesh-router/internal/logging"
	"mesh-router/internal/rules"
)

// maxRuleDocumentSize bounds PUT /v1/rules bodies.
const maxRuleDocumentSize = 4 << 20

type handlers struct {
	cfg      *config.Config
	store    *engine.Store
	resolver *engine.Resolver
}

type errorResponse struct {
	Error string `json:"error"`
}

type rulesResponse struct {
	Version uint64   `json:"version"`
	Rules   int      `json:"rules"`
	Hosts   []string `json:"hosts"`
}

type resolveResponse struct {
	*engine.ResolvedAction
	// FallbackStatus tells the data plane what to answer when no route
	// matched. Populated only for noRoute outcomes.
	FallbackStatus int `json:"fallbackStatus,omitempty"`
}

// Resolve evaluates a request context against the current snapshot.
func (h *handlers) Resolve(w http.ResponseWriter, r *http.Request) {
	var ctx engine.RequestContext
	if err := json.NewDecoder(r.Body).Decode(&ctx); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request context: " + err.Error()})
		return
	}
	if ctx.Authority == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "authority is required"})
		return
	}

	action := h.resolver.Resolve(&ctx)
	h.record(action)

	resp := resolveResponse{ResolvedAction: action}
	if action.Type == engine.ActionNoRoute {
		resp.FallbackStatus = h.cfg.NoRouteStatus
	}
	writeJSON(w, http.StatusOK, resp)
}

// ResolveTCP evaluates a connection context against the current snapshot.
func (h *handlers) ResolveTCP(w http.ResponseWriter, r *http.Request) {
	var ctx engine.ConnectionContext
	if err := json.NewDecoder(r.Body).Decode(&ctx); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid connection context: " + err.Error()})
		return
	}
	if ctx.DestinationHost == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "destinationHost is required"})
		return
	}

	action := h.resolver.ResolveTCP(&ctx)
	h.record(action)
	writeJSON(w, http.StatusOK, resolveResponse{ResolvedAction: action})
}

// GetRules reports the active snapshot.
func (h *handlers) GetRules(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Snapshot()
	writeJSON(w, http.StatusOK, rulesResponse{
		Version: snap.Version(),
		Rules:   snap.RuleCount(),
		Hosts:   snap.Hosts(),
	})
}

// PutRules replaces the rule set. The document is validated before the
// swap; a rejected document leaves the previous snapshot active.
func (h *handlers) PutRules(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRuleDocumentSize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read body"})
		return
	}

	set, err := rules.Parse(body)
	if err != nil {
		var verr rules.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		} else {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		}
		logging.Warn("rule set rejected", logging.Err(err))
		return
	}

	snap := h.store.Swap(set)
	MetricSnapshotSwaps.Inc()
	MetricRulesActive.Set(float64(snap.RuleCount()))
	logging.Info("rule set replaced",
		logging.Uint64("version", snap.Version()),
		logging.Int("rules", snap.RuleCount()),
	)

	writeJSON(w, http.StatusOK, rulesResponse{
		Version: snap.Version(),
		Rules:   snap.RuleCount(),
		Hosts:   snap.Hosts(),
	})
}

// Health reports liveness.
func (h *handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) record(action *engine.ResolvedAction) {
	MetricResolveTotal.WithLabelValues(action.Type.String()).Inc()
	if action.Type == engine.ActionAbort {
		MetricFaultsInjected.WithLabelValues("abort").Inc()
	}
	if action.Delay > 0 {
		MetricFaultsInjected.WithLabelValues("delay").Inc()
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
