package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client provides access to the platform's room/stream directory API. These
// are plain request/response calls that sit next to the realtime relay —
// the relay socket never carries them.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new directory API client.
// baseURL should be the base URL of the API, e.g., "https://api.nitelive.app/v1".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient allows setting a custom HTTP client.
func (c *Client) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// SetToken sets the bearer token for authenticated requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// ListRooms returns the rooms currently visible in the directory.
func (c *Client) ListRooms(ctx context.Context) ([]RoomInfo, error) {
	var resp []RoomInfo
	if err := c.get(ctx, "/rooms", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetRoom returns one room with its current online count.
func (c *Client) GetRoom(ctx context.Context, roomID string) (*RoomInfo, error) {
	var resp RoomInfo
	if err := c.get(ctx, "/rooms/"+url.PathEscape(roomID), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListLiveStreams returns streams that are currently live.
func (c *Client) ListLiveStreams(ctx context.Context) ([]StreamInfo, error) {
	var resp []StreamInfo
	if err := c.get(ctx, "/streams/live", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetMessages retrieves persisted message history for a room with
// cursor-based pagination.
// limit: maximum number of messages to return (default: 20, max: 100).
// before: if non-empty, returns messages before this message ID.
func (c *Client) GetMessages(ctx context.Context, roomID string, limit int, before string) (*MessagesResponse, error) {
	path := fmt.Sprintf("/rooms/%s/messages?limit=%d", url.PathEscape(roomID), limit)
	if before != "" {
		path += "&before=" + url.QueryEscape(before)
	}

	var resp MessagesResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("api error (status %d): %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("http error: %s (status %d)", string(body), resp.StatusCode)
	}

	if dest != nil {
		if err := json.Unmarshal(body, dest); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
