package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/lab-booking/internal/application"
	"github.com/example/lab-booking/internal/notify"
)

// StreamHandler pushes observable event changes to the browser as
// server-sent events. Each connection registers one subscriber channel in
// the notify registry for the lifetime of the request.
type StreamHandler struct {
	registry  *notify.Registry
	responder responder
	logger    *slog.Logger
}

func NewStreamHandler(registry *notify.Registry, logger *slog.Logger) *StreamHandler {
	base := defaultLogger(logger)
	return &StreamHandler{registry: registry, responder: newResponder(base), logger: base}
}

func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.registry == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	changes, unsubscribe := h.registry.Subscribe(principal.UserID)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	logger := handlerLogger(r.Context(), h.logger, "StreamHandler", "Stream", "user_id", principal.UserID)
	logger.InfoContext(r.Context(), "subscriber connected")

	// Heartbeats keep intermediaries from closing quiet connections.
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.InfoContext(r.Context(), "subscriber disconnected")
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case change, open := <-changes:
			if !open {
				return
			}
			if err := writeChangeEvent(w, change); err != nil {
				logger.WarnContext(r.Context(), "failed to write change event", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeChangeEvent(w http.ResponseWriter, change application.EventChange) error {
	payload, err := json.Marshal(map[string]any{
		"event_id":  change.EventID,
		"state":     string(change.State),
		"timestamp": change.Timestamp.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: booking-changed\ndata: %s\n\n", payload)
	return err
}
