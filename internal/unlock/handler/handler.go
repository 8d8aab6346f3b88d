package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vaultline/internal/unlock/models"
	"vaultline/pkg/domain"
	"vaultline/pkg/platform/httputil"
	"vaultline/pkg/requestcontext"

	dErrors "vaultline/pkg/domain-errors"
)

// UnlockSetService reads and observes unlock sets.
type UnlockSetService interface {
	Snapshot(ctx context.Context, owner string) (models.UnlockSet, error)
	IsUnlocked(ctx context.Context, owner string, id domain.EntityID) (bool, error)
	Observe(ctx context.Context, owner string) (<-chan models.UnlockSet, error)
}

// ChallengeService drives the unlock challenge flow.
type ChallengeService interface {
	Begin(ctx context.Context, owner, entityID string) (*models.ChallengeSession, error)
	Get(ctx context.Context, owner, sessionID string) (*models.ChallengeSession, error)
	SubmitCVV(ctx context.Context, owner, sessionID, cvv string) (*models.ChallengeSession, error)
	SubmitOTP(ctx context.Context, owner, sessionID, otp string) (*models.ChallengeSession, error)
	ResendOTP(ctx context.Context, owner, sessionID string) (*models.ChallengeSession, error)
	Retry(ctx context.Context, owner, sessionID string) (*models.ChallengeSession, error)
	ClearLockout(ctx context.Context, owner, entityID string) error
}

// Handler serves the unlock set and challenge endpoints.
type Handler struct {
	unlocks    UnlockSetService
	challenges ChallengeService
	logger     *slog.Logger
}

func New(unlocks UnlockSetService, challenges ChallengeService, logger *slog.Logger) *Handler {
	return &Handler{
		unlocks:    unlocks,
		challenges: challenges,
		logger:     logger,
	}
}

// Register mounts the request/response routes. The event stream is mounted
// separately so it can bypass request timeouts.
func (h *Handler) Register(r chi.Router) {
	r.Get("/unlocks", h.HandleListUnlocks)
	r.Get("/unlocks/{id}", h.HandleUnlockStatus)

	r.Route("/unlock/challenges", func(r chi.Router) {
		r.Post("/", h.HandleBeginChallenge)
		r.Get("/{sid}", h.HandleGetChallenge)
		r.Post("/{sid}/cvv", h.HandleSubmitCVV)
		r.Post("/{sid}/otp", h.HandleSubmitOTP)
		r.Post("/{sid}/otp/resend", h.HandleResendOTP)
		r.Post("/{sid}/retry", h.HandleRetry)
	})
}

func (h *Handler) RegisterStream(r chi.Router) {
	r.Get("/unlocks/stream", h.HandleStream)
}

// RegisterAdmin mounts operator routes. Callers guard them with an admin token.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Delete("/admin/lockouts/{owner}/{id}", h.HandleClearLockout)
}

func (h *Handler) HandleListUnlocks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := h.requireOwner(w, r)
	if !ok {
		return
	}
	set, err := h.unlocks.Snapshot(ctx, owner)
	if err != nil {
		h.fail(ctx, w, "failed to load unlock set", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &models.UnlockSetResponse{Unlocked: set})
}

func (h *Handler) HandleUnlockStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := h.requireOwner(w, r)
	if !ok {
		return
	}
	id, err := domain.ParseEntityID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	unlocked, err := h.unlocks.IsUnlocked(ctx, owner, id)
	if err != nil {
		h.fail(ctx, w, "failed to load unlock status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &models.UnlockStatusResponse{EntityID: id, Unlocked: unlocked})
}

func (h *Handler) HandleBeginChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := h.requireOwner(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.BeginChallengeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	session, err := h.challenges.Begin(ctx, owner, req.EntityID)
	if err != nil {
		h.fail(ctx, w, "failed to begin challenge", err)
		return
	}
	status := http.StatusCreated
	if session.ShortCircuit {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, session)
}

func (h *Handler) HandleGetChallenge(w http.ResponseWriter, r *http.Request) {
	h.sessionAction(w, r, "failed to load challenge", h.challenges.Get)
}

func (h *Handler) HandleSubmitCVV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.SubmitCVVRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	h.sessionAction(w, r, "failed to verify cvv", func(ctx context.Context, owner, sid string) (*models.ChallengeSession, error) {
		return h.challenges.SubmitCVV(ctx, owner, sid, req.CVV)
	})
}

func (h *Handler) HandleSubmitOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.SubmitOTPRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	h.sessionAction(w, r, "failed to verify otp", func(ctx context.Context, owner, sid string) (*models.ChallengeSession, error) {
		return h.challenges.SubmitOTP(ctx, owner, sid, req.OTP)
	})
}

func (h *Handler) HandleResendOTP(w http.ResponseWriter, r *http.Request) {
	h.sessionAction(w, r, "failed to resend otp", h.challenges.ResendOTP)
}

func (h *Handler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	h.sessionAction(w, r, "failed to retry challenge", h.challenges.Retry)
}

func (h *Handler) HandleClearLockout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.challenges.ClearLockout(ctx, chi.URLParam(r, "owner"), chi.URLParam(r, "id")); err != nil {
		h.fail(ctx, w, "failed to clear lockout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type sessionFunc func(ctx context.Context, owner, sessionID string) (*models.ChallengeSession, error)

func (h *Handler) sessionAction(w http.ResponseWriter, r *http.Request, failMsg string, fn sessionFunc) {
	ctx := r.Context()
	owner, ok := h.requireOwner(w, r)
	if !ok {
		return
	}
	session, err := fn(ctx, owner, chi.URLParam(r, "sid"))
	if err != nil {
		h.fail(ctx, w, failMsg, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session)
}

func (h *Handler) requireOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()
	owner := requestcontext.Owner(ctx)
	if owner == "" {
		h.logger.ErrorContext(ctx, "owner missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "owner is required"))
		return "", false
	}
	return owner, true
}

// fail logs at a level matching the error class and writes the envelope.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	code := dErrors.CodeOf(err)
	attrs := []any{"request_id", requestcontext.RequestID(ctx), "error", err}
	switch code {
	case dErrors.CodeInternal, dErrors.CodeUnavailable:
		h.logger.ErrorContext(ctx, msg, attrs...)
	default:
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}
