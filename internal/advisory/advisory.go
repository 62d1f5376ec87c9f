// Package advisory generates a short plain-language air quality advisory for
// a forecast using the OpenAI API. The generator is optional: without an API
// key the dashboard simply omits the advisory section.
package advisory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/lox/aqicast/internal/models"
)

// Generator produces advisory text from a forecast series.
type Generator struct {
	client openai.Client
	model  openai.ChatModel
}

// NewGenerator creates a generator authenticated from the OPENAI_API_KEY
// environment variable.
func NewGenerator() (*Generator, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &Generator{
		client: client,
		model:  openai.ChatModelGPT4oMini,
	}, nil
}

// Generate summarizes the trailing future rows of a forecast as one short
// paragraph of practical advice.
func (g *Generator) Generate(ctx context.Context, city string, future []models.ForecastPoint) (string, error) {
	if len(future) == 0 {
		return "", errors.New("no forecast rows to summarize")
	}

	prompt := buildPrompt(city, future)

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are an air quality assistant. Reply with a single short paragraph of practical advice, no markdown."),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("advisory generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("advisory generation returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func buildPrompt(city string, future []models.ForecastPoint) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Predicted daily AQI for %s over the next %d days:\n", city, len(future))
	for _, p := range future {
		fmt.Fprintf(&b, "%s: %d\n", p.Date.Format("2006-01-02"), p.AQI)
	}
	b.WriteString("Write a one-paragraph advisory for residents based on these values.")
	return b.String()
}
