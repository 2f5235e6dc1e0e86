package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/samandartukhtayev/user-directory/config"
	"github.com/samandartukhtayev/user-directory/logging"
	"github.com/samandartukhtayev/user-directory/models"
)

// Client loads the user directory from the remote users endpoint.
// Every FetchUsers call is exactly one GET: no retries, no caching.
type Client struct {
	endpoint   string
	timeout    time.Duration
	httpClient *http.Client
	log        *logging.Logger
}

// NewClient creates a client for the configured endpoint and watchdog timeout
func NewClient(cfg config.FetcherConfig, logger *logging.Logger) *Client {
	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = config.DefaultFetchTimeout
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		timeout:    timeout,
		httpClient: &http.Client{},
		log:        logger.With("Fetcher"),
	}
}

// FetchUsers performs the GET and returns the users in the order the endpoint sent them.
//
// Non-2xx answers fail with KindWrongStatus, a JSON body that is not an array
// with KindNotArray, and an unreadable body with KindUnknown. Transport
// failures are returned as is; IsTimeout tells the watchdog apart.
func (c *Client) FetchUsers(ctx context.Context) ([]models.User, error) {
	// The watchdog covers the body read too
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build users request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &LoadError{Kind: KindWrongStatus, StatusCode: res.StatusCode}
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read users response: %w", err)
	}

	isArray, err := isJSONArray(body)
	if err != nil {
		return nil, &LoadError{Kind: KindUnknown, StatusCode: res.StatusCode, Err: err}
	}
	if !isArray {
		return nil, &LoadError{Kind: KindNotArray, StatusCode: res.StatusCode}
	}

	var users []models.User
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, &LoadError{Kind: KindUnknown, StatusCode: res.StatusCode, Err: err}
	}

	c.log.Info("fetched %d users from %s in %s", len(users), c.endpoint, time.Since(start))
	return users, nil
}
