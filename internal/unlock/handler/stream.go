package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"vaultline/internal/unlock/models"
	"vaultline/pkg/requestcontext"
)

const streamHeartbeat = 15 * time.Second

// HandleStream writes one server-sent event per unlock set emission until
// the client disconnects.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := h.requireOwner(w, r)
	if !ok {
		return
	}
	updates, err := h.unlocks.Observe(ctx, owner)
	if err != nil {
		h.fail(ctx, w, "failed to observe unlock set", err)
		return
	}

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case set, open := <-updates:
			if !open {
				return
			}
			if err := writeEvent(w, set); err != nil {
				h.logger.WarnContext(ctx, "failed to write unlock event", "request_id", requestcontext.RequestID(ctx), "error", err)
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
		if err := rc.Flush(); err != nil {
			h.logger.WarnContext(ctx, "response does not support streaming", "error", err)
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, set models.UnlockSet) error {
	data, err := json.Marshal(&models.UnlockSetResponse{Unlocked: set})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: unlocks\ndata: %s\n\n", data)
	return err
}
