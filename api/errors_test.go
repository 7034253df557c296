package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xraph/contenthub"
	"github.com/xraph/contenthub/custody"
)

func TestStatusFor(t *testing.T) {
	stranded := &contenthub.ReversalError{
		TransferRef: "xfer_01h2xcejqtf2nbrexx3vqjhp41",
		ContentID:   "intro",
		Commit:      contenthub.ErrAlreadyOwned,
		Reverse:     errors.New("custodian offline"),
	}
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"stranded transfer", stranded, http.StatusInternalServerError, "reversal_failed"},
		{"short of funds", fmt.Errorf("%w: %w", contenthub.ErrInsufficientFunds, custody.ErrInsufficientFunds), http.StatusPaymentRequired, "insufficient_funds"},
		{"transfer refused", fmt.Errorf("%w: offline", contenthub.ErrTransferFailed), http.StatusPaymentRequired, "transfer_failed"},
		{"unknown", errors.New("disk full"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := statusFor(tt.err)
			if status != tt.status || code != tt.code {
				t.Errorf("statusFor = %d %q, want %d %q", status, code, tt.status, tt.code)
			}
		})
	}
}

func TestWriteErrorKeepsTransferRef(t *testing.T) {
	h := &Handler{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	stranded := &contenthub.ReversalError{
		TransferRef: "xfer_01h2xcejqtf2nbrexx3vqjhp41",
		ContentID:   "intro",
		Commit:      contenthub.ErrTransactionFailed,
		Reverse:     errors.New("custodian offline"),
	}

	tests := []struct {
		err      error
		contains string
	}{
		{stranded, stranded.TransferRef},
		{errors.New("secret dsn"), http.StatusText(http.StatusInternalServerError)},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.writeError(rec, httptest.NewRequest("POST", "/contenthub/content/intro/view", nil), tt.err)

		var body ErrorBody
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(body.Message, tt.contains) {
			t.Errorf("message %q does not contain %q", body.Message, tt.contains)
		}
		if strings.Contains(body.Message, "secret") {
			t.Errorf("internal error leaked: %q", body.Message)
		}
	}
}
