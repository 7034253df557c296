package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/contenthub"
	"github.com/xraph/contenthub/content"
	"github.com/xraph/contenthub/payment"
	"github.com/xraph/contenthub/platform"
	"github.com/xraph/contenthub/types"
)

// AmountRequest is the body of a view or ownership purchase.
type AmountRequest struct {
	Amount int64 `json:"amount"`
}

// GrantRequest is the body of a manual view grant.
type GrantRequest struct {
	User types.Address `json:"user"`
}

// MintRequest is the body of an operator mint.
type MintRequest struct {
	Owner types.Address `json:"owner"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.Health(r.Context()); err != nil {
		h.logger.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ── reads ─────────────────────────────────────────

func (h *Handler) getPlatform(w http.ResponseWriter, r *http.Request) {
	p, err := h.ledger.GetPlatform(r.Context())
	h.respond(w, r, p, err)
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	s, err := h.ledger.GetPlatformStats(r.Context())
	h.respond(w, r, s, err)
}

func (h *Handler) getContentInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.ledger.GetContentInfo(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, info, err)
}

func (h *Handler) getRevenue(w http.ResponseWriter, r *http.Request) {
	m, err := h.ledger.GetCreatorRevenue(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, m, err)
}

func (h *Handler) checkAccess(w http.ResponseWriter, r *http.Request) {
	addr, err := addressParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.ledger.CheckViewAccess(r.Context(), chi.URLParam(r, "id"), addr)
	h.respond(w, r, res, err)
}

func (h *Handler) getOwnership(w http.ResponseWriter, r *http.Request) {
	rec, err := h.ledger.GetOwnership(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, rec, err)
}

func (h *Handler) getUserPayments(w http.ResponseWriter, r *http.Request) {
	addr, err := addressParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	m, err := h.ledger.GetUserPayments(r.Context(), addr)
	h.respond(w, r, m, err)
}

func (h *Handler) getUserContent(w http.ResponseWriter, r *http.Request) {
	addr, err := addressParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ids, err := h.ledger.GetUserContent(r.Context(), addr)
	h.respond(w, r, ids, err)
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := payment.ListOpts{
		ContentID: q.Get("content"),
		Payer:     types.Address(q.Get("payer")),
		Kind:      payment.Kind(q.Get("kind")),
	}
	var err error
	if opts.Limit, err = intQuery(q.Get("limit"), "limit"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if opts.Offset, err = intQuery(q.Get("offset"), "offset"); err != nil {
		h.writeError(w, r, err)
		return
	}
	list, err := h.ledger.ListPayments(r.Context(), opts)
	h.respond(w, r, list, err)
}

// ── mutations ─────────────────────────────────────

func (h *Handler) initializePlatform(w http.ResponseWriter, r *http.Request) {
	var cfg platform.Config
	if !h.decode(w, r, &cfg) {
		return
	}
	p, err := h.ledger.InitializePlatform(r.Context(), cfg)
	h.respondCreated(w, r, p, err)
}

func (h *Handler) uploadContent(w http.ResponseWriter, r *http.Request) {
	var up content.Upload
	if !h.decode(w, r, &up) {
		return
	}
	c, err := h.ledger.UploadContent(r.Context(), up)
	h.respondCreated(w, r, c, err)
}

func (h *Handler) payToView(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.ledger.PayToView(r.Context(), chi.URLParam(r, "id"), req.Amount)
	h.respondCreated(w, r, p, err)
}

func (h *Handler) payToOwn(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.ledger.PayToOwn(r.Context(), chi.URLParam(r, "id"), req.Amount)
	h.respondCreated(w, r, p, err)
}

func (h *Handler) grantAccess(w http.ResponseWriter, r *http.Request) {
	var req GrantRequest
	if !h.decode(w, r, &req) {
		return
	}
	s, err := h.ledger.GrantViewAccess(r.Context(), chi.URLParam(r, "id"), req.User)
	h.respondCreated(w, r, s, err)
}

func (h *Handler) mintOwnership(w http.ResponseWriter, r *http.Request) {
	var req MintRequest
	if !h.decode(w, r, &req) {
		return
	}
	rec, err := h.ledger.MintOwnership(r.Context(), chi.URLParam(r, "id"), req.Owner)
	h.respondCreated(w, r, rec, err)
}

// ── helpers ───────────────────────────────────────

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) respondCreated(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		h.writeError(w, r, contenthub.ValidationError{Field: "body", Message: err.Error()})
		return false
	}
	return true
}

func addressParam(r *http.Request) (types.Address, error) {
	addr, ok := types.ParseAddress(chi.URLParam(r, "address"))
	if !ok {
		return "", contenthub.ValidationError{Field: "address", Message: "invalid address"}
	}
	return addr, nil
}

func intQuery(s, field string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, contenthub.ValidationError{Field: field, Message: "must be a non-negative integer"}
	}
	return n, nil
}
