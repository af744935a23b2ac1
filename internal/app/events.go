package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const sseHeartbeatInterval = 15 * time.Second

// SeatEventsHandler streams seat state changes for a showtime as
// server-sent events. Delivery is best effort: a client that misses an
// event catches up on its next seat map fetch.
func (app *Application) SeatEventsHandler(
	w http.ResponseWriter,
	r *http.Request,
	showtimeID int) {

	logger := app.contextGetLogger(r)

	rc := http.NewResponseController(w)

	sub, err := app.broker.Subscribe(r.Context(), showtimeID)
	if err != nil {
		app.serviceUnavailableResponse(w, r, err)
		return
	}
	defer sub.Close()

	app.metrics.eventSubscribers.Add(r.Context(), 1)
	defer app.metrics.eventSubscribers.Add(r.Context(), -1)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := rc.Flush(); err != nil {
		logger.Warn("seat event stream does not support flushing", "error", err)
		return
	}

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case event, ok := <-sub.C:
			if !ok {
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				logger.Error("failed to encode seat event", "error", err)
				continue
			}

			fmt.Fprintf(w, "event: seats\ndata: %s\n\n", data)
			if err := rc.Flush(); err != nil {
				return
			}

		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
