package ai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
)

const visionSystemPrompt = `You are a repair technician looking at photos a
customer took of their device. Describe visible damage, error messages or
indicator lights in two sentences at most, in the customer's language.
If nothing useful is visible, say so.`

// AnalyzeImages runs a vision call over the uploaded image URLs and returns
// a short diagnosis. The call is bounded by VisionTimeout.
func (c *Client) AnalyzeImages(ctx context.Context, userHint string, imageURLs []string) (string, error) {
	if len(imageURLs) == 0 {
		return "", fmt.Errorf("no images to analyze")
	}

	ctx, cancel := context.WithTimeout(ctx, VisionTimeout)
	defer cancel()

	parts := []openai.ChatCompletionContentPartUnionParam{}
	if userHint != "" {
		parts = append(parts, openai.TextContentPart(userHint))
	}
	for _, url := range imageURLs {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: url}))
	}

	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(visionSystemPrompt),
			openai.UserMessage(parts),
		},
	}

	resp, err := c.createWithRetry(ctx, params)
	if err != nil {
		return "", fmt.Errorf("vision call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoicesReturned
	}
	recordUsage(c.model, resp.Usage)
	slog.Debug("ai.AnalyzeImages: analyzed", "images", len(imageURLs))
	return resp.Choices[0].Message.Content, nil
}
