package generate

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/midiacode/contentchat/internal/logger"
	"github.com/midiacode/contentchat/internal/pricing"
)

// Options controls one answer generation call. AppendFooter is an explicit
// caller decision, defaulted per chat variant by the orchestrator.
type Options struct {
	Variant      Variant
	AppendFooter bool
	ContentTitle string
}

// Generator assembles the prompt, invokes the model at temperature 0 and
// prices the call from the usage metadata. It keeps no state between calls;
// every cost is a return value.
type Generator struct {
	model llms.Model
	meter *pricing.Meter
}

func NewGenerator(model llms.Model, meter *pricing.Meter) (*Generator, error) {
	if model == nil {
		return nil, errors.New("generate: model is required")
	}
	if meter == nil {
		return nil, errors.New("generate: cost meter is required")
	}
	return &Generator{model: model, meter: meter}, nil
}

// Answer produces a grounded answer for the question given retrieved context,
// returning the text and the call's cost in USD. An empty model answer is
// logged and returned as-is, not raised. Providers that omit usage metadata
// yield cost 0.
func (g *Generator) Answer(ctx context.Context, question, customContent string, opts Options) (string, float64, error) {
	prompt, err := promptFor(opts.Variant, question, customContent, opts.ContentTitle)
	if err != nil {
		return "", 0, err
	}
	log := logger.FromContext(ctx)
	resp, err := g.model.GenerateContent(ctx,
		[]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)},
		llms.WithTemperature(0),
	)
	if err != nil {
		return "", 0, fmt.Errorf("generate: model call: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		log.Warn("model returned no choices", "variant", opts.Variant)
		return "", 0, nil
	}
	choice := resp.Choices[0]
	answer := choice.Content
	if answer == "" {
		log.Warn("model returned empty answer", "variant", opts.Variant)
	}
	promptTokens, completionTokens := usageFrom(choice.GenerationInfo)
	cost := g.meter.GenerationCost(promptTokens, completionTokens)
	if opts.AppendFooter && answer != "" {
		answer += "\n\n" + FooterMessage
	}
	log.Debug("answer generated",
		"variant", opts.Variant,
		"prompt_tokens", promptTokens,
		"completion_tokens", completionTokens,
		"cost_usd", cost,
	)
	return answer, cost, nil
}

// usageFrom reads token usage out of the provider's generation info. Missing
// usage is not an error; some providers simply omit it.
func usageFrom(info map[string]any) (promptTokens, completionTokens int) {
	if info == nil {
		return 0, 0
	}
	promptTokens = intValue(info, "PromptTokens", "prompt_tokens")
	completionTokens = intValue(info, "CompletionTokens", "completion_tokens")
	return promptTokens, completionTokens
}

func intValue(info map[string]any, keys ...string) int {
	for _, key := range keys {
		switch v := info[key].(type) {
		case int:
			return v
		case int32:
			return int(v)
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}
