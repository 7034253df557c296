package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xraph/contenthub"
	"github.com/xraph/contenthub/caller"
)

// ErrorBody is the JSON body of every failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var errorCodes = []struct {
	err    error
	status int
	code   string
}{
	{contenthub.ErrReversalFailed, http.StatusInternalServerError, "reversal_failed"},
	{contenthub.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{caller.ErrMissingClaim, http.StatusUnauthorized, "unauthenticated"},
	{caller.ErrInvalidSignature, http.StatusUnauthorized, "invalid_signature"},
	{caller.ErrAddressMismatch, http.StatusUnauthorized, "invalid_signature"},
	{caller.ErrStaleNonce, http.StatusUnauthorized, "stale_nonce"},
	{caller.ErrReplayedNonce, http.StatusUnauthorized, "replayed_nonce"},
	{contenthub.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{contenthub.ErrInsufficientPayment, http.StatusPaymentRequired, "insufficient_payment"},
	{contenthub.ErrInsufficientFunds, http.StatusPaymentRequired, "insufficient_funds"},
	{contenthub.ErrTransferFailed, http.StatusPaymentRequired, "transfer_failed"},
	{contenthub.ErrUnverifiedContent, http.StatusNotFound, "unverified_content"},
	{contenthub.ErrContentNotFound, http.StatusNotFound, "content_not_found"},
	{contenthub.ErrOwnershipNotFound, http.StatusNotFound, "ownership_not_found"},
	{contenthub.ErrPlatformNotInitialized, http.StatusNotFound, "platform_not_initialized"},
	{contenthub.ErrDuplicateContent, http.StatusConflict, "duplicate_content"},
	{contenthub.ErrAlreadyOwned, http.StatusConflict, "already_owned"},
	{contenthub.ErrAlreadyInitialized, http.StatusConflict, "already_initialized"},
	{contenthub.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{contenthub.ErrNotFound, http.StatusNotFound, "not_found"},
}

// statusFor maps a ledger error to an HTTP status and error code.
func statusFor(err error) (int, string) {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		// A stranded transfer keeps its message so the client can quote the ref.
		if code == "internal" {
			msg = http.StatusText(status)
		}
	}
	writeJSON(w, status, ErrorBody{Code: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
