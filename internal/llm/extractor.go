package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// EventDetails is the structured result of extracting a calendar event
// from free-form text.
type EventDetails struct {
	Summary         string `json:"summary"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
}

const defaultDurationMinutes = 30

// Extractor pulls calendar event details out of a user request.
type Extractor struct {
	gen        Generator
	fastModel  string
	smartModel string
}

func NewExtractor(gen Generator, fastModel, smartModel string) *Extractor {
	return &Extractor{gen: gen, fastModel: fastModel, smartModel: smartModel}
}

// Extract asks the model for event details as JSON. When startTimeOverride
// is set (a time already pinned down earlier in the task's life), only the
// summary and duration are asked for and the override wins regardless of
// what the model answers.
func (e *Extractor) Extract(ctx context.Context, text, clientTime, startTimeOverride string) (EventDetails, error) {
	var prompt, model string
	if startTimeOverride != "" {
		model = e.fastModel
		prompt = fmt.Sprintf(`Extract the event summary and duration from this request.
The start time is already known, do not change it.
Request: %q
Respond with ONLY a JSON object: {"summary": "...", "duration_minutes": 30}`, text)
	} else {
		model = e.smartModel
		prompt = fmt.Sprintf(`The current time is %s.
Extract the calendar event from this request.
Request: %q
Respond with ONLY a JSON object:
{"summary": "...", "start_time": "<ISO 8601 datetime>", "duration_minutes": 30}`, clientTime, text)
	}

	out, err := e.gen.Generate(ctx, prompt, model)
	if err != nil {
		return EventDetails{}, fmt.Errorf("extract event details: %w", err)
	}

	details, err := parseEventDetails(out)
	if err != nil {
		return EventDetails{}, err
	}
	if startTimeOverride != "" {
		details.StartTime = startTimeOverride
	}
	if details.StartTime == "" {
		return EventDetails{}, fmt.Errorf("no start time in model response")
	}
	if details.Summary == "" {
		details.Summary = "Event"
	}
	if details.DurationMinutes <= 0 {
		details.DurationMinutes = defaultDurationMinutes
	}
	return details, nil
}

var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// parseEventDetails tolerates markdown code fences and chatter around the
// JSON object, which local models produce often.
func parseEventDetails(raw string) (EventDetails, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	match := jsonObjectRe.FindString(cleaned)
	if match == "" {
		return EventDetails{}, fmt.Errorf("no JSON object in model response")
	}
	var details EventDetails
	if err := json.Unmarshal([]byte(match), &details); err != nil {
		return EventDetails{}, fmt.Errorf("decode event details: %w", err)
	}
	return details, nil
}
