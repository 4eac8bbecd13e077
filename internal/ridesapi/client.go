// Package ridesapi is the client for the backend's ride endpoints. It is
// plain request/response plumbing: the session manager owns the token, this
// client just sends it.
package ridesapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ridelinkhq/ridelink/internal/models"
)

// Client talks to the /api/rides endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for the backend at baseURL. A zero timeout defaults
// to 30 seconds.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SearchFilter narrows a ride search; empty fields match everything.
type SearchFilter struct {
	Origin      string
	Destination string
	Date        string // YYYY-MM-DD
}

// PublishRequest is the payload for publishing a ride.
type PublishRequest struct {
	Origin         models.Location   `json:"origin"`
	Destination    models.Location   `json:"destination"`
	DepartureTime  time.Time         `json:"departure_time"`
	AvailableSeats int               `json:"available_seats"`
	PricePerSeat   float64           `json:"price_per_seat"`
	Description    string            `json:"description,omitempty"`
	RouteInfo      *models.RouteInfo `json:"route_info,omitempty"`
}

type ridesResponse struct {
	Success bool          `json:"success"`
	Rides   []models.Ride `json:"rides"`
	Ride    *models.Ride  `json:"ride"`
	Message string        `json:"message"`
}

// Search lists active rides matching the filter.
func (c *Client) Search(ctx context.Context, token string, filter SearchFilter) ([]models.Ride, error) {
	q := url.Values{}
	if filter.Origin != "" {
		q.Set("origin", filter.Origin)
	}
	if filter.Destination != "" {
		q.Set("destination", filter.Destination)
	}
	if filter.Date != "" {
		q.Set("date", filter.Date)
	}
	endpoint := c.baseURL + "/api/rides"
	if encoded := q.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	parsed, err := c.do(ctx, http.MethodGet, endpoint, token, nil)
	if err != nil {
		return nil, err
	}
	return parsed.Rides, nil
}

// Mine lists the caller's published rides.
func (c *Client) Mine(ctx context.Context, token string) ([]models.Ride, error) {
	parsed, err := c.do(ctx, http.MethodGet, c.baseURL+"/api/rides/mine", token, nil)
	if err != nil {
		return nil, err
	}
	return parsed.Rides, nil
}

// Publish creates a new ride offer.
func (c *Client) Publish(ctx context.Context, token string, req PublishRequest) (*models.Ride, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode publish request: %w", err)
	}
	parsed, err := c.do(ctx, http.MethodPost, c.baseURL+"/api/rides", token, body)
	if err != nil {
		return nil, err
	}
	return parsed.Ride, nil
}

// Book reserves a seat on a ride.
func (c *Client) Book(ctx context.Context, token, rideID string) (*models.Ride, error) {
	parsed, err := c.do(ctx, http.MethodPost, c.baseURL+"/api/rides/"+rideID+"/book", token, nil)
	if err != nil {
		return nil, err
	}
	return parsed.Ride, nil
}

func (c *Client) do(ctx context.Context, method, endpoint, token string, body []byte) (*ridesResponse, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed ridesResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("unexpected response (status %d)", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if parsed.Message != "" {
			return nil, fmt.Errorf("%s (status %d)", parsed.Message, resp.StatusCode)
		}
		return nil, fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return &parsed, nil
}
