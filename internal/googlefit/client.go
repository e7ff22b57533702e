// Package googlefit reads daily measurements from the Google Fit REST API.
package googlefit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/ridwanfathin/assistant-health-sync/internal/domain"
	"github.com/ridwanfathin/assistant-health-sync/internal/provider"
	"golang.org/x/oauth2"
	"google.golang.org/api/fitness/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// blockedPattern matches error messages Google Fit returns when one data
// type cannot be read for the account
var blockedPattern = regexp.MustCompile(`(?i)(no default datasource found|datasource not found|unauthorized|not authorized|permission|insufficient)`)

// Client fetches per-day payloads through the Fitness API
type Client struct {
	endpoint  string
	timeout   time.Duration
	transport http.RoundTripper
	now       func() time.Time
}

// NewClient creates a Google Fit client
func NewClient(timeout time.Duration) *Client {
	return &Client{
		timeout:   timeout,
		transport: http.DefaultTransport,
		now:       time.Now,
	}
}

// WithEndpoint points the client at another API base path
func (c *Client) WithEndpoint(endpoint string) *Client {
	c.endpoint = endpoint
	return c
}

// Provider implements provider.DataSource
func (c *Client) Provider() domain.Provider {
	return domain.ProviderGoogleFit
}

// FetchDay implements provider.DataSource
func (c *Client) FetchDay(ctx context.Context, accessToken string, day time.Time, denied []string) (domain.MetricValues, error) {
	payload, err := c.FetchPayload(ctx, accessToken, day, denied)
	if err != nil {
		return domain.MetricValues{}, err
	}
	return Normalize(payload), nil
}

func (c *Client) service(ctx context.Context, accessToken string) (*fitness.Service, error) {
	httpClient := &http.Client{
		Timeout: c.timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
			Base:   c.transport,
		},
	}

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}

	svc, err := fitness.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create fitness service: %w", err)
	}
	return svc, nil
}

// FetchPayload issues one aggregate call for the day and, when the sleep
// stream comes back empty, one sessions call for sleep
func (c *Client) FetchPayload(ctx context.Context, accessToken string, day time.Time, denied []string) (*DayPayload, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	start := domain.DateOnly(day)
	end := start.AddDate(0, 0, 1)
	payload := &DayPayload{
		Start:   start,
		End:     end,
		Streams: make(map[string][]*fitness.DataPoint),
	}

	requested := allowedDataTypes(denied)
	if len(requested) > 0 {
		req := &fitness.AggregateRequest{
			BucketByTime: &fitness.BucketByTime{
				DurationMillis: end.Sub(start).Milliseconds(),
			},
			StartTimeMillis: start.UnixMilli(),
			EndTimeMillis:   end.UnixMilli(),
		}
		for _, t := range requested {
			req.AggregateBy = append(req.AggregateBy, &fitness.AggregateBy{DataTypeName: t})
		}

		resp, err := svc.Users.Dataset.Aggregate("me", req).Context(ctx).Do()
		if err != nil {
			return nil, c.classify(err, "dataset.aggregate", requested)
		}

		for _, bucket := range resp.Bucket {
			for i, ds := range bucket.Dataset {
				if i >= len(requested) {
					break
				}
				payload.Streams[requested[i]] = append(payload.Streams[requested[i]], ds.Point...)
			}
		}
	}

	if len(payload.Streams[DataTypeSleepSegment]) == 0 && !contains(denied, DataTypeSleepSegment) {
		sessions, err := svc.Users.Sessions.List("me").
			StartTime(start.UTC().Format(time.RFC3339)).
			EndTime(end.UTC().Format(time.RFC3339)).
			ActivityType(sleepActivityType).
			Context(ctx).
			Do()
		if err != nil {
			return nil, c.classify(err, "sessions.list", []string{DataTypeSleepSegment})
		}
		payload.SleepSessions = sessions.Session
	}

	return payload, nil
}

// classify turns a Fitness API failure into the domain error the sync loop acts on
func (c *Client) classify(err error, endpoint string, requested []string) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("failed to call google fit %s: %w", endpoint, err)
	}

	switch apiErr.Code {
	case http.StatusTooManyRequests:
		return &domain.RateLimitedError{
			Provider:          domain.ProviderGoogleFit,
			RetryAfterSeconds: provider.ParseRetryAfter(apiErr.Header.Get("Retry-After"), c.now()),
		}
	case http.StatusForbidden, http.StatusBadRequest:
		text := apiErr.Message + " " + apiErr.Body
		if blockedPattern.MatchString(text) {
			for _, t := range requested {
				if strings.Contains(text, t) {
					return &domain.PermissionBlockedError{
						Provider: domain.ProviderGoogleFit,
						DataType: t,
						Message:  apiErr.Message,
					}
				}
			}
		}
	}

	return &domain.ProviderAPIError{
		Provider:   domain.ProviderGoogleFit,
		Endpoint:   endpoint,
		StatusCode: apiErr.Code,
		Body:       apiErr.Body,
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
