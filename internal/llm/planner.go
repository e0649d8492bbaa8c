package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/mfranzon/donna/internal/observability"
)

// Planner turns a raw user request into a short step-by-step plan.
type Planner struct {
	gen        Generator
	fastModel  string
	smartModel string
	metrics    *observability.Metrics
}

func NewPlanner(gen Generator, fastModel, smartModel string, metrics *observability.Metrics) *Planner {
	return &Planner{gen: gen, fastModel: fastModel, smartModel: smartModel, metrics: metrics}
}

// Plan returns the generated plan and the model that produced it.
func (p *Planner) Plan(ctx context.Context, request string) (plan, modelUsed string, err error) {
	model := ChooseModel(request, p.fastModel, p.smartModel)
	prompt := fmt.Sprintf("Break this request into steps. Keep it very brief and concise (under 100 words):\n%s", request)

	start := time.Now()
	out, err := p.gen.Generate(ctx, prompt, model)
	if err != nil {
		return "", model, fmt.Errorf("generate plan: %w", err)
	}
	p.metrics.ObservePlanLatency(time.Since(start))
	return out, model, nil
}
