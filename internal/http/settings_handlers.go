package http

import (
	"encoding/json"
	nethttp "net/http"
	"strings"

	"go.uber.org/zap"

	"go-indexing-qa-console/internal/connectors/appstore"
	"go-indexing-qa-console/internal/qa"
	"go-indexing-qa-console/internal/views"
)

type thresholdsRequest struct {
	Updates []qa.ThresholdUpdate `json:"updates"`
	User    string               `json:"user"`
	Reason  string               `json:"reason"`
}

type thresholdRequest struct {
	Value  *float64 `json:"value"`
	User   string   `json:"user"`
	Reason string   `json:"reason"`
}

type llmRequest struct {
	views.LLMUpdate
	User   string          `json:"user"`
	Reason string          `json:"reason"`
	Sample json.RawMessage `json:"sample,omitempty"`
	// Remote sends the simulation to the backend instead of evaluating it here.
	Remote bool `json:"remote,omitempty"`
}

// sample returns the simulation input. A JSON string holds the raw text typed by the operator.
func (l llmRequest) sample() []byte {
	raw := json.RawMessage(strings.TrimSpace(string(l.Sample)))
	if len(raw) > 0 && raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err == nil {
			return []byte(text)
		}
	}
	return raw
}

func settingsRouter(s *views.Settings, store *appstore.Store, logger *zap.Logger) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if s == nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, errDisabled)
			return
		}

		parts := subPath(r.URL.EscapedPath(), "/api/v1/settings")
		switch strings.Join(parts, "/") {
		case "":
			if r.Method != nethttp.MethodGet {
				writeMethodNotAllowed(w)
				return
			}
			page := s.Page(r.Context())
			writeJSON(w, nethttp.StatusOK, map[string]any{"meta": settingsMeta(page), "data": page})
		case "thresholds":
			thresholdsHandler(w, r, s, store, logger)
		case "llm":
			llmHandler(w, r, s, store, logger)
		case "llm/reset":
			if r.Method != nethttp.MethodPost {
				writeMethodNotAllowed(w)
				return
			}
			var req actionRequest
			if err := decodeBody(r, &req); err != nil {
				writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
				return
			}
			llm, err := s.Reset(r.Context())
			journal(r.Context(), store, logger, "settings.llm_reset", "llm", req.actor(), err)
			if err != nil {
				writeActionError(w, "failed to reset llm settings", err)
				return
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{"data": llm})
		case "llm/simulate":
			if r.Method != nethttp.MethodPost {
				writeMethodNotAllowed(w)
				return
			}
			var req llmRequest
			if err := decodeBody(r, &req); err != nil {
				writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
				return
			}
			simulate := s.Simulate
			if req.Remote {
				simulate = s.SimulateRemote
			}
			decision, err := simulate(r.Context(), req.LLMUpdate, req.sample())
			if err != nil {
				writeActionError(w, "simulation failed", err)
				return
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{"data": decision})
		case "llm/history":
			history, err := s.History(r.Context())
			if history == nil {
				history = []qa.SettingsChange{}
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{
				"meta": pageMeta(errText(err), map[string]any{"count": len(history)}),
				"data": history,
			})
		default:
			if len(parts) == 2 && parts[0] == "thresholds" {
				thresholdHandler(w, r, s, parts[1], store, logger)
				return
			}
			nethttp.NotFound(w, r)
		}
	}
}

func settingsMeta(page views.SettingsPage) map[string]any {
	meta := map[string]any{}
	if len(page.Errors) > 0 {
		meta["error"] = "one or more settings tabs failed to load"
	}
	if page.HistoryError != "" {
		meta["history_error"] = page.HistoryError
	}
	return meta
}

func thresholdsHandler(w nethttp.ResponseWriter, r *nethttp.Request, s *views.Settings, store *appstore.Store, logger *zap.Logger) {
	switch r.Method {
	case nethttp.MethodGet:
		ed := s.Editor()
		err := ed.LoadThresholds(r.Context())
		st := ed.State()
		if st.Thresholds == nil {
			st.Thresholds = []qa.Threshold{}
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": pageMeta(errText(err), map[string]any{"count": len(st.Thresholds)}),
			"data": st.Thresholds,
		})
	case nethttp.MethodPut:
		var req thresholdsRequest
		if err := decodeBody(r, &req); err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		actor := actionRequest{User: req.User}.actor()
		saved, err := s.ApplyThresholds(r.Context(), req.Updates, actor, req.Reason)
		journal(r.Context(), store, logger, "settings.thresholds", thresholdNames(req.Updates), actor, err)
		if err != nil {
			writeActionError(w, "failed to save thresholds", err)
			return
		}
		if saved == nil {
			saved = map[string]bool{}
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{"saved": len(saved)},
			"data": saved,
		})
	default:
		writeMethodNotAllowed(w)
	}
}

// thresholdHandler saves one threshold with its own backend call.
func thresholdHandler(w nethttp.ResponseWriter, r *nethttp.Request, s *views.Settings, name string, store *appstore.Store, logger *zap.Logger) {
	if r.Method != nethttp.MethodPut {
		writeMethodNotAllowed(w)
		return
	}
	var req thresholdRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	if req.Value == nil {
		writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": "value is required"})
		return
	}
	actor := actionRequest{User: req.User}.actor()
	stored, saved, err := s.ApplyThreshold(r.Context(), name, *req.Value, actor, req.Reason)
	if saved || err != nil {
		journal(r.Context(), store, logger, "settings.threshold", name, actor, err)
	}
	if err != nil {
		writeActionError(w, "failed to save threshold", err)
		return
	}
	writeJSON(w, nethttp.StatusOK, map[string]any{
		"meta": map[string]any{"saved": saved},
		"data": map[string]any{"name": name, "value": stored},
	})
}

func llmHandler(w nethttp.ResponseWriter, r *nethttp.Request, s *views.Settings, store *appstore.Store, logger *zap.Logger) {
	switch r.Method {
	case nethttp.MethodGet:
		ed := s.Editor()
		err := ed.LoadLLM(r.Context())
		st := ed.State()
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": pageMeta(errText(err), map[string]any{"defaults": st.Defaults}),
			"data": st.LLM,
		})
	case nethttp.MethodPut:
		var req llmRequest
		if err := decodeBody(r, &req); err != nil {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		actor := actionRequest{User: req.User}.actor()
		llm, err := s.ApplyLLM(r.Context(), req.LLMUpdate, actor, req.Reason)
		journal(r.Context(), store, logger, "settings.llm", string(llm.Mode), actor, err)
		if err != nil {
			writeActionError(w, "failed to save llm settings", err)
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{"data": llm})
	default:
		writeMethodNotAllowed(w)
	}
}

func thresholdNames(updates []qa.ThresholdUpdate) string {
	names := make([]string, 0, len(updates))
	for _, u := range updates {
		names = append(names, u.Name)
	}
	return strings.Join(names, ",")
}
