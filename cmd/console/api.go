package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jwebster45206/infamy/pkg/character"
	"github.com/jwebster45206/infamy/pkg/chat"
	"github.com/jwebster45206/infamy/pkg/storage"
)

var errNotRegistered = errors.New("not registered")

// CharacterResponse mirrors GET /v1/characters/{id}.
type CharacterResponse struct {
	character.Sheet
	Duels storage.DuelRecord `json:"duels"`
}

// SSEEvent represents an event from the SSE stream
type SSEEvent struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	return resp.StatusCode == http.StatusOK
}

func decodeError(resp *http.Response, body []byte) error {
	var errorResp ErrorResponse
	if err := json.Unmarshal(body, &errorResp); err != nil || errorResp.Error == "" {
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}
	return errors.New(errorResp.Error)
}

// sendMessage posts one chat line for the worker to process.
func sendMessage(client *http.Client, baseURL string, req chat.MessageRequest) error {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	resp, err := client.Post(baseURL+"/v1/messages", "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		return decodeError(resp, body)
	}
	return nil
}

func getCharacter(client *http.Client, baseURL, id string) (*CharacterResponse, error) {
	resp, err := client.Get(fmt.Sprintf("%s/v1/characters/%s", baseURL, url.PathEscape(id)))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, errNotRegistered
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp, body)
	}
	var c CharacterResponse
	if err := json.Unmarshal(body, &c); err != nil {
		return nil, fmt.Errorf("failed to parse character response: %w", err)
	}
	return &c, nil
}

// listenToSSE connects to the conversation stream and forwards events until
// the stream or ctx ends.
func listenToSSE(ctx context.Context, client *http.Client, baseURL, conversationID string, eventChan chan<- SSEEvent) error {
	endpoint := fmt.Sprintf("%s/v1/events/conversations/%s", baseURL, url.PathEscape(conversationID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to SSE: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("SSE connection failed with status %d: %s", resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	var current SSEEvent
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if current.Type != "" {
				select {
				case eventChan <- current:
				case <-ctx.Done():
					return ctx.Err()
				}
				current = SSEEvent{}
			}
		case strings.HasPrefix(line, "event: "):
			current.Type = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			var data map[string]any
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &data); err == nil {
				current.Data = data
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading SSE stream: %w", err)
	}
	return nil
}
