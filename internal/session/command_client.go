package session

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// CommandClient submits commands to the agent's command endpoint.
type CommandClient struct {
	httpClient *http.Client
	url        string
}

func NewCommandClient(commandURL string, timeout time.Duration) *CommandClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &CommandClient{
		httpClient: &http.Client{Timeout: timeout},
		url:        commandURL,
	}
}

type commandRequest struct {
	Command        string  `json:"command"`
	SessionID      string  `json:"sessionId"`
	ConversationID *string `json:"conversationId"`
}

type commandResponse struct {
	ConversationID string `json:"conversationId,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Submit posts the command and returns the conversation id assigned by the
// server, if any. A non-2xx response surfaces the server's error field when
// present, otherwise a generic message.
func (c *CommandClient) Submit(ctx context.Context, command, sessionID, conversationID string) (string, error) {
	req := commandRequest{
		Command:   command,
		SessionID: sessionID,
	}
	if conversationID != "" {
		req.ConversationID = &conversationID
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", errors.Wrap(err, "encoding command request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "creating command request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, "submitting command")
	}
	defer httpResp.Body.Close()

	var resp commandResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil && httpResp.StatusCode < 300 {
		return "", errors.Wrap(err, "decoding command response")
	}

	if httpResp.StatusCode >= 300 {
		if resp.Error != "" {
			return "", errors.New(resp.Error)
		}
		return "", errors.Errorf("command submission failed with status %d", httpResp.StatusCode)
	}

	return resp.ConversationID, nil
}
