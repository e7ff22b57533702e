// Package fitbit reads daily measurements from the Fitbit Web API.
package fitbit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ridwanfathin/assistant-health-sync/internal/domain"
	"github.com/ridwanfathin/assistant-health-sync/internal/provider"
	"golang.org/x/sync/errgroup"
)

const defaultBaseURL = "https://api.fitbit.com"

// Data types, one per endpoint fetched for a day
const (
	DataTypeActivity  = "activity"
	DataTypeSleep     = "sleep"
	DataTypeHeartRate = "heartrate"
	DataTypeWeight    = "weight"
	DataTypeWater     = "water"
)

// DataTypes lists every endpoint requested per day
var DataTypes = []string{DataTypeActivity, DataTypeSleep, DataTypeHeartRate, DataTypeWeight, DataTypeWater}

// Client fetches per-day payloads from the Fitbit Web API
type Client struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a Fitbit client
func NewClient(timeout time.Duration) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
}

// WithBaseURL points the client at another API host
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// Provider implements provider.DataSource
func (c *Client) Provider() domain.Provider {
	return domain.ProviderFitbit
}

// FetchDay implements provider.DataSource
func (c *Client) FetchDay(ctx context.Context, accessToken string, day time.Time, denied []string) (domain.MetricValues, error) {
	payload, err := c.FetchPayload(ctx, accessToken, day, denied)
	if err != nil {
		return domain.MetricValues{}, err
	}
	return Normalize(payload), nil
}

// FetchPayload issues the five per-day requests concurrently. A 404 from any
// endpoint leaves its part of the payload nil.
func (c *Client) FetchPayload(ctx context.Context, accessToken string, day time.Time, denied []string) (*DayPayload, error) {
	date := day.Format("2006-01-02")
	skip := make(map[string]bool, len(denied))
	for _, d := range denied {
		skip[d] = true
	}

	payload := &DayPayload{Date: date}
	g, ctx := errgroup.WithContext(ctx)

	fetch := func(dataType, path string, out interface{}, found *bool) {
		if skip[dataType] {
			return
		}
		g.Go(func() error {
			ok, err := c.get(ctx, accessToken, dataType, path, out)
			if err != nil {
				return err
			}
			*found = ok
			return nil
		})
	}

	var activity activityResponse
	var sleep sleepResponse
	var heart heartResponse
	var weight weightResponse
	var water waterResponse
	var hasActivity, hasSleep, hasHeart, hasWeight, hasWater bool

	fetch(DataTypeActivity, fmt.Sprintf("/1/user/-/activities/date/%s.json", date), &activity, &hasActivity)
	fetch(DataTypeSleep, fmt.Sprintf("/1.2/user/-/sleep/date/%s.json", date), &sleep, &hasSleep)
	fetch(DataTypeHeartRate, fmt.Sprintf("/1/user/-/activities/heart/date/%s/1d/1min.json", date), &heart, &hasHeart)
	fetch(DataTypeWeight, fmt.Sprintf("/1/user/-/body/log/weight/date/%s.json", date), &weight, &hasWeight)
	fetch(DataTypeWater, fmt.Sprintf("/1/user/-/foods/log/water/date/%s.json", date), &water, &hasWater)

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if hasActivity {
		payload.Activity = &activity
	}
	if hasSleep {
		payload.Sleep = &sleep
	}
	if hasHeart {
		payload.Heart = &heart
	}
	if hasWeight {
		payload.Weight = &weight
	}
	if hasWater {
		payload.Water = &water
	}
	return payload, nil
}

// get decodes the response into out. It reports false for a 404.
func (c *Client) get(ctx context.Context, accessToken, dataType, path string, out interface{}) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to fetch fitbit %s: %w", dataType, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return false, &domain.RateLimitedError{
			Provider:          domain.ProviderFitbit,
			RetryAfterSeconds: provider.ParseRetryAfter(resp.Header.Get("Retry-After"), c.now()),
		}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusForbidden {
			if msg, ok := insufficientScope(body); ok {
				return false, &domain.PermissionBlockedError{
					Provider: domain.ProviderFitbit,
					DataType: dataType,
					Message:  msg,
				}
			}
		}
		return false, &domain.ProviderAPIError{
			Provider:   domain.ProviderFitbit,
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("failed to decode fitbit %s response: %w", dataType, err)
	}
	return true, nil
}

// insufficientScope recognizes the error body Fitbit returns when the user
// did not grant the scope an endpoint needs
func insufficientScope(body []byte) (string, bool) {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err != nil {
		return "", false
	}
	for _, item := range e.Errors {
		switch item.ErrorType {
		case "insufficient_scope", "insufficient_permissions":
			return item.Message, true
		}
	}
	return "", false
}
