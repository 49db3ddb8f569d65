package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kadirpekel/protolink/pkg/a2a"
)

// sendSSEEvent writes one server-sent event tagged with the event type
// discriminator and flushes it to the client.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\n", eventType); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", jsonData); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

// setSSEHeaders prepares the response for a server-sent event stream.
func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// readSSE decodes a server-sent event stream into protocol events,
// closing the channel after the final event, on decode failure, or on
// cancellation. Cancellation also closes the body so the blocked read
// returns.
func readSSE(ctx context.Context, body io.ReadCloser, events chan<- a2a.Event) {
	defer close(events)
	defer body.Close()

	stop := context.AfterFunc(ctx, func() { body.Close() })
	defer stop()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var eventType string
	var data strings.Builder

	dispatch := func() bool {
		if eventType == "" || data.Len() == 0 {
			eventType = ""
			data.Reset()
			return false
		}
		ev, err := a2a.UnmarshalEvent(eventType, []byte(data.String()))
		eventType = ""
		data.Reset()
		if err != nil {
			return true
		}
		select {
		case events <- ev:
		case <-ctx.Done():
			return true
		}
		return a2a.IsFinalEvent(ev)
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if dispatch() {
				return
			}
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}

	// Stream ended without a trailing blank line.
	dispatch()
}
