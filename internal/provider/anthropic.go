package provider

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/fundscan/pkg/anthropic"
)

const defaultMaxTokens = 4096

// AnthropicGenerator generates text with the Anthropic Messages API.
type AnthropicGenerator struct {
	client    anthropic.Client
	model     string
	proModel  string
	maxTokens int64
}

// NewAnthropicGenerator wraps an Anthropic client. proModel defaults to model.
func NewAnthropicGenerator(client anthropic.Client, model, proModel string, maxTokens int64) *AnthropicGenerator {
	if proModel == "" {
		proModel = model
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &AnthropicGenerator{client: client, model: model, proModel: proModel, maxTokens: maxTokens}
}

// Generate implements Generator.
func (g *AnthropicGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	model := g.model
	if req.Tier == TierPro {
		model = g.proModel
	}
	temp := req.Temperature
	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       model,
		MaxTokens:   g.maxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: req.Prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return "", eris.Wrap(err, "anthropic generator")
	}
	resp.Usage.LogCost(model, "generate")

	text := resp.Text()
	if text == "" {
		return "", eris.Errorf("anthropic generator: empty response from %s", model)
	}
	return text, nil
}
