package routes

import (
	"net/http"

	"settlechain/native/condition"
)

type grantFunc func(caller [20]byte, agreementID, did [32]byte, grantee [20]byte) ([32]byte, condition.State, error)

type fulfillLockPaymentRequest struct {
	Caller      string   `json:"caller"`
	AgreementID string   `json:"agreementId"`
	DID         string   `json:"did"`
	Holder      string   `json:"holder"`
	Token       string   `json:"token"`
	Receivers   []string `json:"receivers"`
	Amounts     []string `json:"amounts"`
}

func (h *handlers) fulfillLockPayment(w http.ResponseWriter, r *http.Request) {
	var req fulfillLockPaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	agreementID, err := parseHash(req.AgreementID)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	didID, err := parseHash(req.DID)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	holder, err := parseAddress(req.Holder)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	receivers, err := parseAddresses(req.Receivers)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	amounts, err := parseAmounts(req.Amounts)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	id, err := h.deps.Engine.FulfillLockPayment(caller, agreementID, didID, holder, req.Token, receivers, amounts)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"conditionId": encodeHash(id)})
}

type fulfillGrantRequest struct {
	Caller      string `json:"caller"`
	AgreementID string `json:"agreementId"`
	DID         string `json:"did"`
	Grantee     string `json:"grantee"`
}

func (h *handlers) fulfillAccess(w http.ResponseWriter, r *http.Request) {
	h.fulfillGrant(w, r, h.deps.Engine.FulfillAccess)
}

func (h *handlers) fulfillComputeExecution(w http.ResponseWriter, r *http.Request) {
	h.fulfillGrant(w, r, h.deps.Engine.FulfillComputeExecution)
}

func (h *handlers) fulfillGrant(w http.ResponseWriter, r *http.Request, fulfill grantFunc) {
	var req fulfillGrantRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	agreementID, err := parseHash(req.AgreementID)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	didID, err := parseHash(req.DID)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	grantee, err := parseAddress(req.Grantee)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	id, state, err := fulfill(caller, agreementID, didID, grantee)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"conditionId": encodeHash(id),
		"state":       state.String(),
	})
}

type fulfillAccessProofRequest struct {
	Caller       string `json:"caller"`
	AgreementID  string `json:"agreementId"`
	DID          string `json:"did"`
	Grantee      string `json:"grantee"`
	PublicParams string `json:"publicParams"`
	Proof        string `json:"proof"`
}

func (h *handlers) fulfillAccessProof(w http.ResponseWriter, r *http.Request) {
	var req fulfillAccessProofRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	agreementID, err := parseHash(req.AgreementID)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	didID, err := parseHash(req.DID)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	grantee, err := parseAddress(req.Grantee)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	publicParams, err := parseBytes(req.PublicParams)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	proof, err := parseBytes(req.Proof)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	id, state, err := h.deps.Engine.FulfillAccessProof(caller, agreementID, didID, grantee, publicParams, proof)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"conditionId": encodeHash(id),
		"state":       state.String(),
	})
}

type fulfillTransferAssetRequest struct {
	Caller          string `json:"caller"`
	AgreementID     string `json:"agreementId"`
	DID             string `json:"did"`
	Seller          string `json:"seller"`
	Buyer           string `json:"buyer"`
	LockConditionID string `json:"lockConditionId"`
}

func (h *handlers) fulfillTransferAsset(w http.ResponseWriter, r *http.Request) {
	var req fulfillTransferAssetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	agreementID, err := parseHash(req.AgreementID)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	didID, err := parseHash(req.DID)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	seller, err := parseAddress(req.Seller)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	buyer, err := parseAddress(req.Buyer)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	lockID, err := parseHash(req.LockConditionID)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	id, err := h.deps.Engine.FulfillTransferAsset(caller, agreementID, didID, seller, buyer, lockID)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"conditionId": encodeHash(id)})
}

type fulfillEscrowPaymentRequest struct {
	Caller             string   `json:"caller"`
	AgreementID        string   `json:"agreementId"`
	DID                string   `json:"did"`
	Amounts            []string `json:"amounts"`
	Receivers          []string `json:"receivers"`
	Payer              string   `json:"payer"`
	Holder             string   `json:"holder"`
	Token              string   `json:"token"`
	LockConditionID    string   `json:"lockConditionId"`
	ReleaseConditionID string   `json:"releaseConditionId"`
}

func (h *handlers) fulfillEscrowPayment(w http.ResponseWriter, r *http.Request) {
	var req fulfillEscrowPaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	agreementID, err := parseHash(req.AgreementID)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	didID, err := parseHash(req.DID)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	amounts, err := parseAmounts(req.Amounts)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	receivers, err := parseAddresses(req.Receivers)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	payer, err := parseAddress(req.Payer)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	holder, err := parseAddress(req.Holder)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	lockID, err := parseHash(req.LockConditionID)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	releaseID, err := parseHash(req.ReleaseConditionID)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	id, outcome, err := h.deps.Engine.FulfillEscrowPayment(caller, agreementID, didID, amounts, receivers, payer, holder, req.Token, lockID, releaseID)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"conditionId": encodeHash(id),
		"outcome":     outcome.String(),
	})
}

type fulfillSignRequest struct {
	Caller      string `json:"caller"`
	AgreementID string `json:"agreementId"`
	Message     string `json:"message"`
	Signer      string `json:"signer"`
	Signature   string `json:"signature"`
}

func (h *handlers) fulfillSign(w http.ResponseWriter, r *http.Request) {
	var req fulfillSignRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	agreementID, err := parseHash(req.AgreementID)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	message, err := parseHash(req.Message)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	signer, err := parseAddress(req.Signer)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	signature, err := parseBytes(req.Signature)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	id, err := h.deps.Engine.FulfillSign(caller, agreementID, message, signer, signature)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"conditionId": encodeHash(id)})
}

type fulfillHashLockRequest struct {
	Caller      string `json:"caller"`
	AgreementID string `json:"agreementId"`
	Preimage    string `json:"preimage"`
}

func (h *handlers) fulfillHashLock(w http.ResponseWriter, r *http.Request) {
	var req fulfillHashLockRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	agreementID, err := parseHash(req.AgreementID)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	preimage, err := parseBytes(req.Preimage)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	id, err := h.deps.Engine.FulfillHashLock(caller, agreementID, preimage)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"conditionId": encodeHash(id)})
}

type fulfillThresholdRequest struct {
	Caller            string   `json:"caller"`
	AgreementID       string   `json:"agreementId"`
	InputConditionIDs []string `json:"inputConditionIds"`
	Threshold         uint32   `json:"threshold"`
}

func (h *handlers) fulfillThreshold(w http.ResponseWriter, r *http.Request) {
	var req fulfillThresholdRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	agreementID, err := parseHash(req.AgreementID)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	inputs, err := parseHashes(req.InputConditionIDs)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	id, err := h.deps.Engine.FulfillThreshold(caller, agreementID, inputs, req.Threshold)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"conditionId": encodeHash(id)})
}

type fulfillWhitelistRequest struct {
	Caller      string `json:"caller"`
	AgreementID string `json:"agreementId"`
	ListID      string `json:"listId"`
	Subject     string `json:"subject"`
}

func (h *handlers) fulfillWhitelist(w http.ResponseWriter, r *http.Request) {
	var req fulfillWhitelistRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	agreementID, err := parseHash(req.AgreementID)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	listID, err := parseHash(req.ListID)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	subject, err := parseAddress(req.Subject)
	if err != nil {
		writeBadRequest(w, r, err)
		return
	}
	id, err := h.deps.Engine.FulfillWhitelist(caller, agreementID, listID, subject)
	if err != nil {
		writeError(w, r, h.deps.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"conditionId": encodeHash(id)})
}
