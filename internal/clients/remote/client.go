// Package remote is the HTTP client for the authoritative notes API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"note-sync/internal/config"
	"note-sync/internal/services/notes"
)

const (
	maxBodyBytes       = 4 << 20
	breakerMinRequests = 5
	breakerInterval    = time.Minute
	breakerHalfOpenMax = 1
)

// TokenSource yields the bearer token for each request. An empty token
// sends no Authorization header.
type TokenSource interface {
	Token() string
}

// Client implements notes.Remote and notes.Pinger over HTTP. Every request
// goes through a circuit breaker; an open breaker is reported as a transient
// failure without touching the network.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	tokens  TokenSource
	log     *slog.Logger
}

// statusError is a 5xx answer; it counts against the breaker.
type statusError struct {
	status int
	msg    string
}

func (e *statusError) Error() string {
	if e.msg == "" {
		return fmt.Sprintf("status %d", e.status)
	}
	return fmt.Sprintf("status %d: %s", e.status, e.msg)
}

type response struct {
	status int
	body   []byte
}

// New creates a client for cfg.APIBaseURL.
func New(cfg config.Config, tokens TokenSource, log *slog.Logger) *Client {
	threshold := cfg.BreakerFailureThreshold
	c := &Client{
		baseURL: NormalizeBaseURL(cfg.APIBaseURL),
		http:    &http.Client{Timeout: time.Duration(cfg.APITimeoutSec) * time.Second},
		tokens:  tokens,
		log:     log,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "notes-api",
		MaxRequests: breakerHalfOpenMax,
		Interval:    breakerInterval,
		Timeout:     time.Duration(cfg.BreakerOpenSec) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < breakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return c
}

// NormalizeBaseURL trims trailing slashes and makes sure the URL ends in /api.
func NormalizeBaseURL(raw string) string {
	u := strings.TrimRight(strings.TrimSpace(raw), "/")
	if !strings.HasSuffix(u, "/api") {
		u += "/api"
	}
	return u
}

// BreakerState reports the circuit breaker state shown by /healthz.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// ListNotes fetches the authoritative note set.
func (c *Client) ListNotes(ctx context.Context) ([]*notes.Note, error) {
	var out noteList
	if err := c.do(ctx, http.MethodGet, "/notes", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateNote creates a note and returns it with its server id.
func (c *Client) CreateNote(ctx context.Context, p notes.Payload) (*notes.Note, error) {
	var out notes.Note
	if err := c.do(ctx, http.MethodPost, "/notes", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateNote replaces the mutable fields of note id.
func (c *Client) UpdateNote(ctx context.Context, id string, p notes.Payload) (*notes.Note, error) {
	var out notes.Note
	if err := c.do(ctx, http.MethodPut, "/notes/"+id, p, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		out.ID = id
	}
	return &out, nil
}

// DeleteNote deletes note id.
func (c *Client) DeleteNote(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/notes/"+id, nil, nil)
}

// ListArchived fetches archived notes.
func (c *Client) ListArchived(ctx context.Context) ([]*notes.Note, error) {
	var out noteList
	if err := c.do(ctx, http.MethodGet, "/notes/archive", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteArchived permanently deletes archived note id.
func (c *Client) DeleteArchived(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/notes/archive/"+id, nil, nil)
}

// Ping calls GET /health. Any non-5xx answer means the API is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("%s %s: encode body: %w", method, path, err)
		}
	}

	started := time.Now()
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.roundTrip(ctx, method, path, payload)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s %s: %w", method, path, ctxErr)
		}
		c.log.Debug("remote request failed", "method", method, "path", path, "error", err, "duration", time.Since(started))
		return fmt.Errorf("%s %s: %w: %w", method, path, notes.ErrTransient, err)
	}

	resp := res.(*response)
	c.log.Debug("remote request", "method", method, "path", path, "status", resp.status, "duration", time.Since(started))
	if resp.status >= http.StatusBadRequest {
		return fmt.Errorf("%s %s: %w", method, path, classify(resp))
	}

	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("%s %s: decode body: %w: %w", method, path, notes.ErrRejected, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte) (*response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Debug("failed to close response body", "error", cerr)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	r := &response{status: resp.StatusCode, body: data}
	if resp.StatusCode >= http.StatusInternalServerError {
		return r, &statusError{status: resp.StatusCode, msg: errorMessage(data)}
	}
	return r, nil
}

// classify maps a 4xx answer onto the domain sentinels.
func classify(r *response) error {
	msg := errorMessage(r.body)
	var kind error
	switch r.status {
	case http.StatusNotFound:
		kind = notes.ErrNoteNotFound
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		kind = notes.ErrTransient
	default:
		kind = notes.ErrRejected
	}
	if msg == "" {
		return fmt.Errorf("%w (status %d)", kind, r.status)
	}
	return fmt.Errorf("%w (status %d): %s", kind, r.status, msg)
}

// errorMessage extracts {"error": "..."} or {"message": "..."} from a body.
func errorMessage(body []byte) string {
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

// noteList accepts either a bare JSON array or {"notes": [...]}.
type noteList []*notes.Note

func (l *noteList) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped struct {
			Notes []*notes.Note `json:"notes"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return err
		}
		*l = wrapped.Notes
		return nil
	}
	var plain []*notes.Note
	if err := json.Unmarshal(trimmed, &plain); err != nil {
		return err
	}
	*l = plain
	return nil
}
