package conversations

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/sideffect263/netviz-backend/internal/models"
)

// Client talks to the external conversation store. The store is the system
// of record for past transcripts; this side only reads them to seed a
// session and performs the few management calls the dashboard exposes.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

type ClientConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
	}
}

// Conversation is one stored transcript with its metadata.
type Conversation struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Messages  []models.Message `json:"messages,omitempty"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

type storeError struct {
	Error string `json:"error"`
}

// List returns conversation metadata without message bodies.
func (c *Client) List(ctx context.Context) ([]Conversation, error) {
	var out []Conversation
	if err := c.do(ctx, http.MethodGet, "/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one conversation including its messages.
func (c *Client) Get(ctx context.Context, id string) (*Conversation, error) {
	var out Conversation
	if err := c.do(ctx, http.MethodGet, "/conversations/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateTitle(ctx context.Context, id, title string) error {
	body := map[string]string{"title": title}
	return c.do(ctx, http.MethodPut, "/conversations/"+url.PathEscape(id), body, nil)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/conversations/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "calling conversation store")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var serr storeError
		if json.NewDecoder(resp.Body).Decode(&serr) == nil && serr.Error != "" {
			return errors.New(serr.Error)
		}
		return errors.Errorf("conversation store returned status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decoding response")
	}
	return nil
}
