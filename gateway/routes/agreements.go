package routes

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"settlechain/native/agreement"
	"settlechain/native/condition"
)

type conditionSpecRequest struct {
	Kind     string `json:"kind"`
	ID       string `json:"id"`
	TimeLock uint64 `json:"timeLock"`
	TimeOut  uint64 `json:"timeOut"`
}

type createAgreementRequest struct {
	Caller     string                 `json:"caller"`
	ID         string                 `json:"id,omitempty"`
	Seed       string                 `json:"seed,omitempty"`
	DID        string                 `json:"did"`
	TemplateID string                 `json:"templateId"`
	Conditions []conditionSpecRequest `json:"conditions"`
}

type agreementResponse struct {
	ID           string   `json:"id"`
	DID          string   `json:"did"`
	TemplateID   string   `json:"templateId"`
	ConditionIDs []string `json:"conditionIds"`
	CreatedBy    string   `json:"createdBy"`
	CreatedAt    int64    `json:"createdAt"`
}

func agreementToResponse(ag *agreement.Agreement) agreementResponse {
	ids := make([]string, len(ag.ConditionIDs))
	for i, id := range ag.ConditionIDs {
		ids[i] = encodeHash(id)
	}
	return agreementResponse{
		ID:           encodeHash(ag.ID),
		DID:          encodeHash(ag.DID),
		TemplateID:   ag.TemplateID,
		ConditionIDs: ids,
		CreatedBy:    encodeAddress(ag.CreatedBy),
		CreatedAt:    ag.CreatedAt,
	}
}

func (h *handlers) createAgreement(w http.ResponseWriter, r *http.Request) {
	var req createAgreementRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	var id [32]byte
	switch {
	case req.ID != "":
		if id, err = parseHash(req.ID); err != nil {
			writeBadRequest(w, r, err)
			return
		}
	case req.Seed != "":
		seed, err := parseHash(req.Seed)
		if err != nil {
			writeBadRequest(w, r, err)
			return
		}
		id = agreement.DeriveID(seed, caller)
	default:
		writeBadRequest(w, r, fmt.Errorf("either id or seed is required"))
		return
	}
	didID, err := parseHash(req.DID)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	params := agreement.CreateParams{
		ID:           id,
		DID:          didID,
		TemplateID:   req.TemplateID,
		Kinds:        make([]string, len(req.Conditions)),
		ConditionIDs: make([][32]byte, len(req.Conditions)),
		TimeLocks:    make([]uint64, len(req.Conditions)),
		TimeOuts:     make([]uint64, len(req.Conditions)),
	}
	for i, spec := range req.Conditions {
		condID, err := parseHash(spec.ID)
		if err != nil {
			writeBadRequest(w, r, err)
			return
		}
		params.Kinds[i] = spec.Kind
		params.ConditionIDs[i] = condID
		params.TimeLocks[i] = spec.TimeLock
		params.TimeOuts[i] = spec.TimeOut
	}
	ag, err := h.deps.Agreements.Create(caller, params)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, agreementToResponse(ag))
}

func (h *handlers) getAgreement(w http.ResponseWriter, r *http.Request) {
	id, err := parseHash(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	ag, err := h.deps.Agreements.Get(id)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, agreementToResponse(ag))
}

type conditionResponse struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	State         string `json:"state"`
	TimeLock      uint64 `json:"timeLock"`
	TimeOut       uint64 `json:"timeOut"`
	CreatedAt     int64  `json:"createdAt"`
	LastUpdatedBy string `json:"lastUpdatedBy"`
	LastUpdatedAt int64  `json:"lastUpdatedAt"`
}

func (h *handlers) getCondition(w http.ResponseWriter, r *http.Request) {
	id, err := parseHash(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	cond := h.deps.Conditions.Get(id)
	writeJSON(w, http.StatusOK, conditionResponse{
		ID:            encodeHash(cond.ID),
		Kind:          cond.Kind,
		State:         cond.State.String(),
		TimeLock:      cond.TimeLock,
		TimeOut:       cond.TimeOut,
		CreatedAt:     cond.CreatedAt,
		LastUpdatedBy: cond.LastUpdatedBy,
		LastUpdatedAt: cond.LastUpdatedAt,
	})
}

type deriveAgreementIDRequest struct {
	Seed    string `json:"seed"`
	Creator string `json:"creator"`
}

func (h *handlers) deriveAgreementID(w http.ResponseWriter, r *http.Request) {
	var req deriveAgreementIDRequest
	if !decodeBody(w, r, &req) {
		return
	}
	seed, err := parseHash(req.Seed)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	creator, err := parseAddress(req.Creator)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": encodeHash(agreement.DeriveID(seed, creator))})
}

type deriveConditionIDRequest struct {
	AgreementID string `json:"agreementId"`
	Kind        string `json:"kind"`
	ParamHash   string `json:"paramHash"`
}

func (h *handlers) deriveConditionID(w http.ResponseWriter, r *http.Request) {
	var req deriveConditionIDRequest
	if !decodeBody(w, r, &req) {
		return
	}
	agreementID, err := parseHash(req.AgreementID)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	paramHash, err := parseHash(req.ParamHash)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": encodeHash(condition.GenerateID(agreementID, req.Kind, paramHash))})
}
