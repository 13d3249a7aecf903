/*
Package gemini adapts the Gemini API to benefit.Adjudicator.

PURPOSE:
  One GenerateContent call per employee: the prompt encodes the employee
  and the eligibility rules, the reply is free text expected to contain a
  JSON decision. Failures are returned as errors; benefit.Guarded turns
  them into fallback decisions.

USAGE:
  adj, err := gemini.New(ctx, gemini.Config{APIKey: key}, period)
  guarded := benefit.NewGuarded(adj, policy.Ruleset, 20*time.Second)

TESTING:
  NewWithGenerator accepts any Generator, so tests never touch the network.
*/
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/warp/vr-engine/benefit"
	"github.com/warp/vr-engine/generic"
)

const DefaultModel = "gemini-2.0-flash"

// Generator produces a text completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	APIKey string
	Model  string
}

// =============================================================================
// ADJUDICATOR
// =============================================================================

type Adjudicator struct {
	gen    Generator
	period generic.Period
}

// New creates a Gemini-backed adjudicator for the process period.
func New(ctx context.Context, cfg Config, period generic.Period) (*Adjudicator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, generic.ErrMissingCredential
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return NewWithGenerator(&clientGenerator{client: client, model: model}, period), nil
}

func NewWithGenerator(gen Generator, period generic.Period) *Adjudicator {
	return &Adjudicator{gen: gen, period: period}
}

// ForPeriod returns an adjudicator sharing the client but prompting for
// another process month.
func (a *Adjudicator) ForPeriod(period generic.Period) *Adjudicator {
	return &Adjudicator{gen: a.gen, period: period}
}

func (a *Adjudicator) Adjudicate(ctx context.Context, emp benefit.EmployeeRecord) (benefit.Decision, error) {
	reply, err := a.gen.Generate(ctx, benefit.BuildPrompt(emp, a.period))
	if err != nil {
		return benefit.Decision{}, fmt.Errorf("generate: %w", err)
	}
	return benefit.ParseDecision(reply)
}

var _ benefit.Adjudicator = (*Adjudicator)(nil)

// =============================================================================
// GENAI CLIENT
// =============================================================================

type clientGenerator struct {
	client *genai.Client
	model  string
}

func (g *clientGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	temperature := float32(0)
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: &temperature,
	})
	if err != nil {
		return "", err
	}
	return replyText(resp)
}

// replyText concatenates the text parts of the first candidate.
func replyText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: empty response", generic.ErrMalformedResponse)
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: no text in response", generic.ErrMalformedResponse)
	}
	return b.String(), nil
}
