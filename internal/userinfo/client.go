// Package userinfo fetches the authenticated user's details from the data
// service's user endpoint.
package userinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"campusauth/internal/login"
)

// Client retrieves user details with a bearer access token.
type Client struct {
	userURL string
	http    *http.Client
	logger  *slog.Logger
	tracer  trace.Tracer
}

// HTTPStatusError indicates the user endpoint answered with a non-2xx
// status. A 401 here usually means the access token has expired.
type HTTPStatusError struct {
	StatusCode int
}

func (e HTTPStatusError) Error() string {
	return fmt.Sprintf("user endpoint returned status %d", e.StatusCode)
}

// New constructs a Client. httpClient may be nil, in which case a client
// with a 30 second timeout is used.
func New(userURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		userURL: userURL,
		http:    httpClient,
		logger:  logger,
		tracer:  otel.Tracer("campusauth/userinfo"),
	}
}

// Fetch returns the details of the user the access token belongs to.
func (c *Client) Fetch(ctx context.Context, accessToken string) (*login.UserDetails, error) {
	ctx, span := c.tracer.Start(ctx, "userinfo.fetch")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build user request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, fmt.Errorf("fetch user details: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := HTTPStatusError{StatusCode: resp.StatusCode}
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, err
	}

	var details login.UserDetails
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return nil, fmt.Errorf("decode user details: %w", err)
	}

	c.logger.DebugContext(ctx, "fetched user details", "user_id", details.ID, "username", details.Username)
	return &details, nil
}
