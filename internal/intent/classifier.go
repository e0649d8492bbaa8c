package intent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mfranzon/donna/internal/llm"
)

// strictInternetTriggers are requests that always need live data, no model
// consultation needed.
var strictInternetTriggers = []string{
	"news",
	"weather",
	"stock",
	"price of",
	"current event",
	"latest",
	"bse",
	"nse",
	"crypto",
	"bitcoin",
}

// weakInternetTriggers are only consulted when the model is unreachable or
// gives an unusable answer.
var weakInternetTriggers = []string{
	"research",
	"search",
	"find",
	"who",
	"what",
	"where",
}

// "calender" stays in the list: it is a common enough misspelling that
// dropping it loses real requests.
var calendarTriggers = []string{
	"calendar",
	"calender",
	"meeting",
	"appointment",
	"event",
	"remind",
	"mark",
	"schedule",
}

// Classifier decides whether a request needs live internet access.
type Classifier struct {
	gen   llm.Generator
	model string
}

func NewClassifier(gen llm.Generator, model string) *Classifier {
	return &Classifier{gen: gen, model: model}
}

// RequiresInternet applies the strict keyword list first, then asks the
// model for a yes/no verdict, and only falls back to the weak keyword list
// when the model cannot answer.
func (c *Classifier) RequiresInternet(ctx context.Context, request string) bool {
	lower := strings.ToLower(request)
	for _, trigger := range strictInternetTriggers {
		if strings.Contains(lower, trigger) {
			return true
		}
	}

	verdict, err := c.askModel(ctx, request)
	if err != nil {
		log.Printf("intent: model classification failed, using keyword fallback: %v", err)
		return containsAny(lower, weakInternetTriggers)
	}
	return verdict
}

func (c *Classifier) askModel(ctx context.Context, request string) (bool, error) {
	prompt := fmt.Sprintf(`Does completing this request require looking up live information on the internet?
Request: %q
Answer with a single word: yes or no.`, request)

	out, err := c.gen.Generate(ctx, prompt, c.model)
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(out))
	switch {
	case strings.HasPrefix(answer, "yes"):
		return true, nil
	case strings.HasPrefix(answer, "no"):
		return false, nil
	default:
		return false, fmt.Errorf("unusable answer %q", out)
	}
}

// IsCalendarIntent is purely keyword driven. Calendar requests are cheap to
// detect and a missed one fails loudly later, so no model call is spent here.
func IsCalendarIntent(request string) bool {
	return containsAny(strings.ToLower(request), calendarTriggers)
}

func containsAny(lower string, triggers []string) bool {
	for _, trigger := range triggers {
		if strings.Contains(lower, trigger) {
			return true
		}
	}
	return false
}
