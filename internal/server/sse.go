package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/desertthunder/playsync/internal/tasks"
)

// WriteEvent frames one progress event as a server-sent event.
//
// Status and track events are plain "data:" frames. Terminal events carry an "event: complete" or "event: error"
// line so browsers can dispatch them to a dedicated listener.
func WriteEvent(w io.Writer, ev tasks.ProgressEvent) error {
	data, err := json.Marshal(ev.Payload())
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	var prefix string
	switch ev.Kind {
	case tasks.EventComplete:
		prefix = "event: complete\n"
	case tasks.EventError:
		prefix = "event: error\n"
	}

	if _, err := fmt.Fprintf(w, "%sdata: %s\n\n", prefix, data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

// startStream writes the event-stream headers and the status line.
func startStream(w http.ResponseWriter) *http.ResponseController {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	rc.Flush()
	return rc
}
