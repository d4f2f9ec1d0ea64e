package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/taskearn/paycore/internal/infrastructure/logging"
)

// Subscriber opens a live status subscription for one account.
type Subscriber interface {
	Subscribe(ctx context.Context, accountID string) *redis.PubSub
}

// StreamHandler pushes status events to clients over server-sent
// events. Delivery is best-effort: a dropped stream loses nothing,
// because the poll endpoints re-derive status from the stores.
type StreamHandler struct {
	subscriber Subscriber
	logger     *logging.Logger
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(subscriber Subscriber, logger *logging.Logger) *StreamHandler {
	return &StreamHandler{
		subscriber: subscriber,
		logger:     logger,
	}
}

// Stream handles GET /accounts/{id}/events. It holds the connection
// open and forwards the account's status events until the client
// disconnects.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported", "")
		return
	}

	accountID := chi.URLParam(r, "id")

	sub := h.subscriber.Subscribe(r.Context(), accountID)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ch := sub.Channel()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, open := <-ch:
			if !open {
				return
			}

			fmt.Fprintf(w, "event: status\ndata: %s\n\n", msg.Payload)
			flusher.Flush()
		}
	}
}
