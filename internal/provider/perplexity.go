package provider

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/fundscan/internal/resilience"
	"github.com/sells-group/fundscan/pkg/perplexity"
)

// PerplexityGenerator generates text with Perplexity chat completions.
type PerplexityGenerator struct {
	client   perplexity.Client
	model    string
	proModel string
}

// NewPerplexityGenerator wraps a Perplexity client. Empty model names fall
// back to "sonar" and "sonar-pro".
func NewPerplexityGenerator(client perplexity.Client, model, proModel string) *PerplexityGenerator {
	if model == "" {
		model = "sonar"
	}
	if proModel == "" {
		proModel = "sonar-pro"
	}
	return &PerplexityGenerator{client: client, model: model, proModel: proModel}
}

// Generate implements Generator.
func (g *PerplexityGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	model := g.model
	if req.Tier == TierPro {
		model = g.proModel
	}
	temp := req.Temperature
	resp, err := g.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Model:       model,
		Messages:    []perplexity.Message{{Role: "user", Content: req.Prompt}},
		Temperature: &temp,
	})
	if err != nil {
		var apiErr *perplexity.APIError
		if errors.As(err, &apiErr) {
			err = resilience.ClassifyStatus(err, apiErr.StatusCode)
		}
		return "", eris.Wrap(err, "perplexity generator")
	}
	text := resp.Text()
	if text == "" {
		return "", eris.Errorf("perplexity generator: empty completion from %s", model)
	}
	return text, nil
}
