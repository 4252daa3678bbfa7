package routes

import (
	"encoding/hex"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type proposeTemplateRequest struct {
	Caller         string   `json:"caller"`
	ID             string   `json:"id"`
	ConditionKinds []string `json:"conditionKinds"`
}

type templateActionRequest struct {
	Caller string `json:"caller"`
}

type templateResponse struct {
	ID             string   `json:"id"`
	State          string   `json:"state"`
	ConditionKinds []string `json:"conditionKinds"`
	Proposer       string   `json:"proposer"`
	UpdatedAt      int64    `json:"updatedAt"`
}

func (h *handlers) proposeTemplate(w http.ResponseWriter, r *http.Request) {
	var req proposeTemplateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	tpl, err := h.deps.Templates.Propose(caller, req.ID, req.ConditionKinds)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, templateResponse{
		ID:             tpl.ID,
		State:          tpl.State.String(),
		ConditionKinds: tpl.ConditionKinds,
		Proposer:       hex.EncodeToString(tpl.Proposer[:]),
		UpdatedAt:      tpl.UpdatedAt,
	})
}

func (h *handlers) approveTemplate(w http.ResponseWriter, r *http.Request) {
	h.templateAction(w, r, h.deps.Templates.Approve)
}

func (h *handlers) revokeTemplate(w http.ResponseWriter, r *http.Request) {
	h.templateAction(w, r, h.deps.Templates.Revoke)
}

func (h *handlers) templateAction(w http.ResponseWriter, r *http.Request, action func([20]byte, string) error) {
	var req templateActionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	if err := action(caller, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) getTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := h.deps.Templates.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, templateResponse{
		ID:             tpl.ID,
		State:          tpl.State.String(),
		ConditionKinds: tpl.ConditionKinds,
		Proposer:       hex.EncodeToString(tpl.Proposer[:]),
		UpdatedAt:      tpl.UpdatedAt,
	})
}
