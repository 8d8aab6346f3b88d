package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vaultline/internal/catalog"
	"vaultline/internal/repayment/calculator"
	"vaultline/internal/repayment/models"
	"vaultline/pkg/domain"
	"vaultline/pkg/platform/audit"
	"vaultline/pkg/platform/httputil"
	"vaultline/pkg/requestcontext"
)

// AuditPublisher records payment previews.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Handler serves repayment quotes, payment previews and amount validation.
type Handler struct {
	catalog    *catalog.Provider
	calculator *calculator.Calculator
	audit      AuditPublisher
	logger     *slog.Logger
}

type Option func(*Handler)

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(h *Handler) {
		h.audit = publisher
	}
}

func New(provider *catalog.Provider, calc *calculator.Calculator, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{catalog: provider, calculator: calc, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Register(r chi.Router) {
	for _, kind := range domain.Kinds() {
		base := "/" + catalog.PathSegment(kind) + "/{id}"
		r.Get(base+"/quote", h.handleQuote(kind))
		r.Post(base+"/payments/preview", h.handlePreview(kind))
	}
	r.Post("/repayment/validate", h.HandleValidate)
}

func (h *Handler) handleQuote(kind domain.EntityKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		entity, err := h.catalog.Resolve(ctx, kind, chi.URLParam(r, "id"))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		quote, err := h.calculator.Quote(entity.ID, entity.Balance, entity.DueDate)
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to quote repayment",
				"request_id", requestcontext.RequestID(ctx),
				"entity_id", entity.ID,
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, quote)
	}
}

func (h *Handler) handlePreview(kind domain.EntityKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := requestcontext.RequestID(ctx)
		entity, err := h.catalog.Resolve(ctx, kind, chi.URLParam(r, "id"))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		req, ok := httputil.DecodeAndPrepare[models.PreviewPaymentRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}
		paymentType, err := calculator.ParsePaymentType(req.PaymentType)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		preview, err := h.calculator.Preview(entity.ID, entity.Balance, paymentType, req.CustomAmount)
		if err != nil {
			h.logger.WarnContext(ctx, "failed to preview payment", "request_id", requestID, "error", err)
			httputil.WriteError(w, err)
			return
		}
		h.recordPreview(ctx, entity.ID, preview)
		httputil.WriteJSON(w, http.StatusOK, preview)
	}
}

func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.ValidateAmountRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, calculator.ValidateCustomAmount(req.Amount, req.MinimumPayment))
}

func (h *Handler) recordPreview(ctx context.Context, id domain.EntityID, preview calculator.Preview) {
	owner := requestcontext.Owner(ctx)
	h.logger.InfoContext(ctx, string(audit.EventPaymentPreviewed),
		"owner", owner,
		"entity_id", id,
		"payment_type", preview.PaymentType,
		"total_amount", preview.TotalAmount,
		"request_id", requestcontext.RequestID(ctx),
		"log_type", "audit",
	)
	if h.audit == nil {
		return
	}
	err := h.audit.Emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		Owner:     owner,
		Subject:   id.String(),
		Action:    string(audit.EventPaymentPreviewed),
		Reason:    string(preview.PaymentType),
		RequestID: requestcontext.RequestID(ctx),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "failed to emit audit event", "event", string(audit.EventPaymentPreviewed), "error", err)
	}
}
