// Package syncclient is the client side of the board: a typed REST client and a game session
// that applies actions locally at once and reconciles them with the server in the background.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"trivia-board-service/internal/domain"
)

// APIError is a non-2xx response from the board API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("board api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("board api: status %d: %s", e.StatusCode, e.Message)
}

// IsAlreadyAnswered reports whether err is the server rejecting a duplicate answer.
func IsAlreadyAnswered(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict && apiErr.Code == "already_answered"
}

// Client talks to the board REST API.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

type ClientOption func(*Client)

// WithToken sets the bearer token sent on every request.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login exchanges admin credentials for a token and keeps it for later requests.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return err
	}
	c.token = out.Token
	return nil
}

func (c *Client) Categories(ctx context.Context) ([]domain.CategoryWithQuestions, error) {
	var out []domain.CategoryWithQuestions
	err := c.do(ctx, http.MethodGet, "/categories", nil, &out)
	return out, err
}

func (c *Client) Game(ctx context.Context, id string) (domain.Game, error) {
	var out domain.Game
	err := c.do(ctx, http.MethodGet, "/games/"+id, nil, &out)
	return out, err
}

func (c *Client) CreateGame(ctx context.Context, name, firstTeamName, secondTeamName string) (domain.Game, error) {
	var out domain.Game
	body := map[string]string{"name": name, "firstTeamName": firstTeamName, "secondTeamName": secondTeamName}
	err := c.do(ctx, http.MethodPost, "/games", body, &out)
	return out, err
}

// RecordAnswer appends an answer to the game log and returns the updated game.
func (c *Client) RecordAnswer(ctx context.Context, gameID, questionID, teamName string, points int) (domain.Game, error) {
	var out struct {
		Game domain.Game `json:"game"`
	}
	body := map[string]any{"gameId": gameID, "teamName": teamName, "points": points}
	err := c.do(ctx, http.MethodPost, "/questions/"+questionID+"/answer", body, &out)
	return out.Game, err
}

// MarkAnswered sets the bank-side answered flag of a question.
func (c *Client) MarkAnswered(ctx context.Context, questionID string) error {
	return c.do(ctx, http.MethodPut, "/questions/"+questionID, map[string]bool{"isAnswered": true}, nil)
}

func (c *Client) AdjustScore(ctx context.Context, gameID, teamName string, delta int) (domain.Game, error) {
	var out domain.Game
	body := map[string]any{"teamName": teamName, "delta": delta}
	err := c.do(ctx, http.MethodPost, "/games/"+gameID+"/adjust", body, &out)
	return out, err
}

func (c *Client) EndGame(ctx context.Context, gameID string) (domain.Game, error) {
	var out domain.Game
	err := c.do(ctx, http.MethodPost, "/games/"+gameID+"/end", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
