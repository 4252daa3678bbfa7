package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"settlechain/native/did"
)

type registerDIDRequest struct {
	Owner       string `json:"owner"`
	DID         string `json:"did"`
	RoyaltyBps  uint32 `json:"royaltyBps"`
	Beneficiary string `json:"beneficiary,omitempty"`
}

type didResponse struct {
	DID          string   `json:"did"`
	Owner        string   `json:"owner"`
	Providers    []string `json:"providers"`
	RoyaltyBps   uint32   `json:"royaltyBps"`
	Beneficiary  string   `json:"beneficiary"`
	RegisteredAt int64    `json:"registeredAt"`
}

func didToResponse(asset *did.Asset) didResponse {
	providers := make([]string, len(asset.Providers))
	for i, p := range asset.Providers {
		providers[i] = encodeAddress(p)
	}
	return didResponse{
		DID:          encodeHash(asset.DID),
		Owner:        encodeAddress(asset.Owner),
		Providers:    providers,
		RoyaltyBps:   asset.RoyaltyBps,
		Beneficiary:  encodeAddress(asset.Beneficiary),
		RegisteredAt: asset.RegisteredAt,
	}
}

func (h *handlers) registerDID(w http.ResponseWriter, r *http.Request) {
	var req registerDIDRequest
	if !decodeBody(w, r, &req) {
		return
	}
	owner, err := parseAddress(req.Owner)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	didID, err := parseHash(req.DID)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	var beneficiary [20]byte
	if req.Beneficiary != "" {
		if beneficiary, err = parseAddress(req.Beneficiary); err != nil {
			writeBadRequest(w, r, err)
			return
		}
	}
	asset, err := h.deps.DIDs.Register(owner, didID, req.RoyaltyBps, beneficiary)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, didToResponse(asset))
}

type addProviderRequest struct {
	Caller   string `json:"caller"`
	Provider string `json:"provider"`
}

func (h *handlers) addProvider(w http.ResponseWriter, r *http.Request) {
	var req addProviderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	provider, err := parseAddress(req.Provider)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	didID, err := parseHash(chi.URLParam(r, "did"))
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	if err := h.deps.DIDs.AddProvider(caller, didID, provider); err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) getDID(w http.ResponseWriter, r *http.Request) {
	didID, err := parseHash(chi.URLParam(r, "did"))
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	asset, err := h.deps.DIDs.Get(didID)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, didToResponse(asset))
}

func (h *handlers) getBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	balance, err := h.deps.Ledger.BalanceOf(chi.URLParam(r, "token"), addr)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"token":   chi.URLParam(r, "token"),
		"address": encodeAddress(addr),
		"balance": balance.String(),
	})
}

type addWhitelistMemberRequest struct {
	Member string `json:"member"`
}

func (h *handlers) addWhitelistMember(w http.ResponseWriter, r *http.Request) {
	var req addWhitelistMemberRequest
	if !decodeBody(w, r, &req) {
		return
	}
	listID, err := parseHash(chi.URLParam(r, "listId"))
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	member, err := parseAddress(req.Member)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	if err := h.deps.Engine.AddToWhitelist(listID, member); err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
