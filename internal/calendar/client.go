package calendar

import (
	"context"
	"fmt"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/mfranzon/donna/internal/googleauth"
	"github.com/mfranzon/donna/internal/observability"
)

const primaryCalendarID = "primary"

// acceptedStartLayouts covers what the extraction model actually emits:
// full RFC 3339, the same without an offset, and a bare minute precision
// variant.
var acceptedStartLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// EventResult is what the executor folds back into the task record.
type EventResult struct {
	Link    string
	Summary string
	Start   time.Time
}

// Client creates events on the linked account's primary calendar.
type Client struct {
	auth    *googleauth.Service
	metrics *observability.Metrics
}

func NewClient(auth *googleauth.Service, metrics *observability.Metrics) *Client {
	return &Client{auth: auth, metrics: metrics}
}

// CreateEvent inserts an event starting at startTime (one of the accepted
// layouts) lasting durationMinutes.
func (c *Client) CreateEvent(ctx context.Context, summary, startTime string, durationMinutes int) (EventResult, error) {
	start, err := parseStart(startTime)
	if err != nil {
		return EventResult{}, err
	}
	if durationMinutes <= 0 {
		durationMinutes = 30
	}
	end := start.Add(time.Duration(durationMinutes) * time.Minute)

	srv, err := c.service(ctx)
	if err != nil {
		return EventResult{}, err
	}

	event := &gcal.Event{
		Summary:     summary,
		Description: "Created by Agent.",
		Start: &gcal.EventDateTime{
			DateTime: start.Format(time.RFC3339),
		},
		End: &gcal.EventDateTime{
			DateTime: end.Format(time.RFC3339),
		},
	}

	created, err := srv.Events.Insert(primaryCalendarID, event).Context(ctx).Do()
	if err != nil {
		c.metrics.ObserveCalendarCall("error")
		return EventResult{}, fmt.Errorf("insert calendar event: %w", err)
	}
	c.metrics.ObserveCalendarCall("ok")
	return EventResult{Link: created.HtmlLink, Summary: created.Summary, Start: start}, nil
}

// CreateTestEvent inserts a short probe event ten minutes from now, used to
// verify the calendar link end to end.
func (c *Client) CreateTestEvent(ctx context.Context) (EventResult, error) {
	start := time.Now().Add(10 * time.Minute)
	return c.CreateEvent(ctx, "Agent test event", start.Format(time.RFC3339), 15)
}

func (c *Client) service(ctx context.Context) (*gcal.Service, error) {
	httpClient, err := c.auth.HTTPClient(ctx)
	if err != nil {
		return nil, err
	}
	srv, err := gcal.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}
	return srv, nil
}

func parseStart(startTime string) (time.Time, error) {
	for _, layout := range acceptedStartLayouts {
		if t, err := time.ParseInLocation(layout, startTime, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable start time %q", startTime)
}
