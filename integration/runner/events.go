package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Event is one server-sent event from a conversation stream.
type Event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Text returns the narration text, or "" for other events.
func (e Event) Text() string {
	if e.Type != "narration" {
		return ""
	}
	s, _ := e.Data["text"].(string)
	return s
}

// Subscribe opens the conversation stream and waits for the connected event,
// so nothing published after it returns is missed.
func Subscribe(ctx context.Context, client *http.Client, baseURL, conversationID string) (<-chan Event, error) {
	endpoint := fmt.Sprintf("%s/v1/events/conversations/%s", baseURL, url.PathEscape(conversationID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, fmt.Errorf("event stream returned status %d: %s", resp.StatusCode, string(body))
	}

	events := make(chan Event, 64)
	connected := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(events)
		defer func() {
			_ = resp.Body.Close()
		}()
		scanner := bufio.NewScanner(resp.Body)
		var current Event
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case line == "" && current.Type == "connected":
				close(connected)
				current = Event{}
			case line == "" && current.Type != "":
				select {
				case events <- current:
				case <-ctx.Done():
					return
				}
				current = Event{}
			case strings.HasPrefix(line, "event: "):
				current.Type = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				_ = json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &current.Data)
			}
		}
	}()

	select {
	case <-connected:
		return events, nil
	case <-done:
		return nil, fmt.Errorf("event stream for %s closed before connecting", conversationID)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
