// Package assistant answers free-form questions about the ledger by sending
// a rendered snapshot of the current state to Gemini together with the
// user's question.
package assistant

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/carteira-app/carteira/internal/domain"
	"github.com/carteira-app/carteira/internal/store"
)

// DefaultModelName is the Gemini model used for ledger questions.
const DefaultModelName = "gemini-2.5-flash"

// projectionHorizon bounds how many months of forecast go into the prompt.
const projectionHorizon = 6

// Assistant holds the store the snapshot is read from and the model to ask.
type Assistant struct {
	st    store.Store
	log   zerolog.Logger
	model string
	today func() civil.Date
}

// New creates an Assistant using the default model.
func New(st store.Store, log zerolog.Logger) *Assistant {
	return &Assistant{
		st:    st,
		log:   log,
		model: DefaultModelName,
		today: domain.Today,
	}
}

// Ask sends the question with a fresh ledger snapshot and returns the model's
// answer as plain text.
func (a *Assistant) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("Ask: question cannot be empty")
	}

	snapshot, err := buildLedgerPrompt(ctx, a.st, a.today(), projectionHorizon)
	if err != nil {
		return "", err
	}
	fullPrompt := systemPrompt + "\n" + snapshot + "\nQuestion: " + question + "\n"

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return "", fmt.Errorf("Ask: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: fullPrompt},
			},
		},
	}

	a.log.Debug().Str("model", a.model).Int("prompt_bytes", len(fullPrompt)).Msg("asking model")

	resp, err := client.Models.GenerateContent(ctx, a.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("Ask: generate content: %w", err)
	}

	answer := strings.TrimSpace(resp.Text())
	if answer == "" {
		return "", fmt.Errorf("Ask: empty response from model")
	}
	return answer, nil
}
