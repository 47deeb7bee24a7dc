package restapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/tinyland-inc/mcpgatewayd/pkg/config"
	"github.com/tinyland-inc/mcpgatewayd/pkg/confirm"
	"github.com/tinyland-inc/mcpgatewayd/pkg/gateway"
	"github.com/tinyland-inc/mcpgatewayd/pkg/logger"
)

type handlers struct {
	gw *gateway.Gateway
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) listServers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.gw.ListServers())
}

type startServerRequest struct {
	ID     string              `json:"id"`
	Server config.ServerConfig `json:"server"`
}

func (h *handlers) startServer(w http.ResponseWriter, r *http.Request) {
	var req startServerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, errors.New("id is required"))
		return
	}

	validated, err := config.ValidateAdmission(req.Server)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req.Server = validated

	if err := h.gw.StartServer(r.Context(), req.ID, req.Server); err != nil {
		if errors.Is(err, gateway.ErrAlreadyRunning) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": req.ID, "status": "started"})
}

func (h *handlers) stopServer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.gw.StopServer(id); err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "stopped"})
}

func (h *handlers) listTools(w http.ResponseWriter, r *http.Request) {
	h.call(w, r, "tools/list", nil)
}

func (h *handlers) listResources(w http.ResponseWriter, r *http.Request) {
	h.call(w, r, "resources/list", nil)
}

func (h *handlers) listPrompts(w http.ResponseWriter, r *http.Request) {
	h.call(w, r, "prompts/list", nil)
}

func (h *handlers) readResource(w http.ResponseWriter, r *http.Request) {
	uri := chi.URLParam(r, "*")
	// The router matches against the escaped path whenever the request
	// carried one, so the wildcard is still percent-encoded in that case.
	if r.URL.RawPath != "" {
		decoded, err := url.PathUnescape(uri)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		uri = decoded
	}
	params, err := json.Marshal(map[string]any{"uri": uri})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.call(w, r, "resources/read", params)
}

func (h *handlers) callTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var arguments json.RawMessage
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&arguments); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	params, err := json.Marshal(map[string]any{"name": name, "arguments": arguments})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.call(w, r, "tools/call", params)
}

func (h *handlers) getPrompt(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var arguments json.RawMessage
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&arguments); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	params, err := json.Marshal(map[string]any{"name": name, "arguments": arguments})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.call(w, r, "prompts/get", params)
}

// call is the shared path every MCP-forwarding route runs through: dispatch
// via the gateway facade, and surface a Pending confirmation ticket as a 202
// instead of a result.
func (h *handlers) call(w http.ResponseWriter, r *http.Request, method string, params json.RawMessage) {
	id := chi.URLParam(r, "id")
	if params == nil {
		params = json.RawMessage("{}")
	}

	result, err := h.gw.Call(r.Context(), id, method, params)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrNotFound):
			writeError(w, http.StatusNotFound, err)
		case errors.Is(err, confirm.ErrNotFound), errors.Is(err, confirm.ErrExpired):
			writeError(w, http.StatusBadRequest, err)
		default:
			logger.ErrorCF("restapi", "call failed", map[string]any{"server_id": id, "method": method, "error": err.Error()})
			writeError(w, http.StatusBadGateway, err)
		}
		return
	}

	if result.Ticket != nil && result.Result == nil {
		t := result.Ticket
		writeJSON(w, http.StatusAccepted, map[string]any{
			"requires_confirmation": true,
			"confirmation_id":       t.ID,
			"risk_level":            t.RiskLevel.String(),
			"risk_description":      t.RiskDescription,
			"server_id":             t.ServerID,
			"method":                t.Method,
			"tool_name":             t.ToolName,
			"expires_at":            t.ExpiresAt,
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Result)
}

type resolveConfirmationRequest struct {
	Approve bool `json:"approve"`
}

func (h *handlers) resolveConfirmation(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	var req resolveConfirmationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ticket, err := h.gw.Confirm(cid, req.Approve)
	if err != nil {
		switch {
		case errors.Is(err, confirm.ErrNotFound):
			writeError(w, http.StatusNotFound, err)
		case errors.Is(err, confirm.ErrExpired), errors.Is(err, confirm.ErrResolved):
			writeError(w, http.StatusConflict, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *handlers) listConfirmations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.gw.PendingConfirmations())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
