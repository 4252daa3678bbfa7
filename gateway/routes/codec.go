package routes

import (
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"

	"settlechain/core/errors"
	"settlechain/gateway/middleware"
	"settlechain/native/common"
)

const requestBodyLimit = 1 << 20 // 1 MiB

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, requestBodyLimit)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeBadRequest(w, r, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func parseHash(s string) ([32]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return [32]byte{}, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	if len(raw) != 32 {
		return [32]byte{}, fmt.Errorf("hash %q must be 32 bytes", s)
	}
	var out [32]byte
	copy(out[:], raw)
	return out, nil
}

func parseAddress(s string) ([20]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return [20]byte{}, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(raw) != 20 {
		return [20]byte{}, fmt.Errorf("address %q must be 20 bytes", s)
	}
	var out [20]byte
	copy(out[:], raw)
	return out, nil
}

func parseAddresses(in []string) ([][20]byte, error) {
	out := make([][20]byte, len(in))
	for i, s := range in {
		addr, err := parseAddress(s)
		if err != nil {
			return nil, err
		}
		out[i] = addr
	}
	return out, nil
}

func parseHashes(in []string) ([][32]byte, error) {
	out := make([][32]byte, len(in))
	for i, s := range in {
		h, err := parseHash(s)
		if err != nil {
			return nil, err
		}
		out[i] = h
	}
	return out, nil
}

func parseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return amount, nil
}

func parseAmounts(in []string) ([]*big.Int, error) {
	out := make([]*big.Int, len(in))
	for i, s := range in {
		amount, err := parseAmount(s)
		if err != nil {
			return nil, err
		}
		out[i] = amount
	}
	return out, nil
}

func parseBytes(s string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid hex payload: %w", err)
	}
	return raw, nil
}

func encodeHash(h [32]byte) string    { return hex.EncodeToString(h[:]) }
func encodeAddress(a [20]byte) string { return hex.EncodeToString(a[:]) }

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:     err.Error(),
		RequestID: middleware.RequestIDFromContext(r.Context()),
	})
}

// writeError maps the settlement error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	switch {
	case stderrors.Is(err, errors.ErrNotFound):
		status = http.StatusNotFound
	case stderrors.Is(err, errors.ErrAlreadyExists):
		status = http.StatusConflict
	case stderrors.Is(err, errors.ErrUnauthorized):
		status = http.StatusForbidden
	case stderrors.Is(err, errors.ErrInvalidTransition):
		status = http.StatusConflict
	case stderrors.Is(err, errors.ErrTimeLocked):
		status = http.StatusConflict
	case stderrors.Is(err, errors.ErrTimedOut):
		status = http.StatusConflict
	case stderrors.Is(err, errors.ErrPolicyViolation):
		status = http.StatusUnprocessableEntity
	case stderrors.Is(err, errors.ErrTemplateNotApproved):
		status = http.StatusUnprocessableEntity
	case stderrors.Is(err, errors.ErrDIDNotRegistered):
		status = http.StatusUnprocessableEntity
	case stderrors.Is(err, common.ErrModulePaused):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
	}
	writeJSON(w, status, errorResponse{
		Error:     err.Error(),
		RequestID: middleware.RequestIDFromContext(r.Context()),
	})
}
