package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vaultline/internal/catalog"
	"vaultline/internal/unlock/models"
	"vaultline/pkg/domain"
	"vaultline/pkg/platform/httputil"
	"vaultline/pkg/requestcontext"

	dErrors "vaultline/pkg/domain-errors"
)

// UnlockReader reports which entities the owner has unlocked.
type UnlockReader interface {
	Snapshot(ctx context.Context, owner string) (models.UnlockSet, error)
}

type Handler struct {
	catalog *catalog.Provider
	unlocks UnlockReader
	logger  *slog.Logger
}

func New(provider *catalog.Provider, unlocks UnlockReader, logger *slog.Logger) *Handler {
	return &Handler{catalog: provider, unlocks: unlocks, logger: logger}
}

// Register mounts /cards, /loans and their item routes.
func (h *Handler) Register(r chi.Router) {
	for _, kind := range domain.Kinds() {
		base := "/" + catalog.PathSegment(kind)
		r.Get(base, h.handleList(kind))
		r.Get(base+"/{id}", h.handleGet(kind))
	}
}

func (h *Handler) handleList(kind domain.EntityKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		set, ok := h.unlockSet(w, r)
		if !ok {
			return
		}
		entities := h.catalog.List(ctx, kind)
		views := make([]catalog.View, 0, len(entities))
		for _, e := range entities {
			views = append(views, catalog.Present(e, set.Contains(e.ID)))
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{catalog.PathSegment(kind): views})
	}
}

func (h *Handler) handleGet(kind domain.EntityKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		entity, err := h.catalog.Resolve(ctx, kind, chi.URLParam(r, "id"))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		set, ok := h.unlockSet(w, r)
		if !ok {
			return
		}
		httputil.WriteJSON(w, http.StatusOK, catalog.Present(entity, set.Contains(entity.ID)))
	}
}

func (h *Handler) unlockSet(w http.ResponseWriter, r *http.Request) (models.UnlockSet, bool) {
	ctx := r.Context()
	owner := requestcontext.Owner(ctx)
	if owner == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "owner is required"))
		return models.UnlockSet{}, false
	}
	set, err := h.unlocks.Snapshot(ctx, owner)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load unlock set",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return models.UnlockSet{}, false
	}
	return set, true
}
