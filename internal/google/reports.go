package google

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	reports "google.golang.org/api/admin/reports/v1"
)

const (
	loginApplication = "login"
	activityPageSize = 500
	clientIDParam    = "client_id"

	// DefaultAuditLookback bounds the audit window when none is configured.
	DefaultAuditLookback = 180 * 24 * time.Hour
)

// interactiveEvents are the login audit events caused by a person rather
// than a background token refresh.
var interactiveEvents = map[string]bool{
	"oauth_authorization": true,
	"login_success":       true,
	"id_token":            true,
}

// ReportsClient reads the login audit log.
type ReportsClient struct {
	svc     *reports.Service
	limiter *RateLimiter
	now     func() time.Time
}

// NewReportsClient creates a Reports API client acting with ts.
func NewReportsClient(ctx context.Context, ts oauth2.TokenSource, opts Options) (*ReportsClient, error) {
	svc, err := reports.NewService(ctx, clientOptions(ts, opts)...)
	if err != nil {
		return nil, fmt.Errorf("create reports service: %w", err)
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = NewRateLimiter(0, 1)
	}
	return &ReportsClient{svc: svc, limiter: limiter, now: time.Now}, nil
}

// InteractiveLogins maps client id to the time of the most recent
// human-driven authorization by email within lookback.
func (c *ReportsClient) InteractiveLogins(ctx context.Context, email string, lookback time.Duration) (map[string]time.Time, error) {
	if lookback <= 0 {
		lookback = DefaultAuditLookback
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := c.now().UTC().Add(-lookback).Format(time.RFC3339)
	activities, err := c.svc.Activities.List(email, loginApplication).
		StartTime(start).
		MaxResults(activityPageSize).
		Context(ctx).
		Do()
	if err != nil {
		if IsRateLimited(err) {
			c.limiter.Backoff(0)
		}
		return nil, fmt.Errorf("list login activity for %s: %w", email, WrapError(err))
	}

	return latestInteractive(activities.Items), nil
}

func latestInteractive(items []*reports.Activity) map[string]time.Time {
	out := make(map[string]time.Time)
	for _, item := range items {
		if item.Id == nil {
			continue
		}
		at, err := time.Parse(time.RFC3339Nano, item.Id.Time)
		if err != nil {
			continue
		}
		for _, ev := range item.Events {
			if !interactiveEvents[ev.Name] {
				continue
			}
			clientID := eventClientID(ev)
			if clientID == "" {
				continue
			}
			if prev, ok := out[clientID]; !ok || at.After(prev) {
				out[clientID] = at
			}
		}
	}
	return out
}

func eventClientID(ev *reports.ActivityEvents) string {
	var id string
	for _, p := range ev.Parameters {
		if p.Name == clientIDParam {
			id = p.Value
		}
	}
	return id
}
