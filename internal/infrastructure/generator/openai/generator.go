// Package openai produces answer prose from retrieved passages via the
// OpenAI chat completion API. Generation is strictly best-effort: callers
// fall back to a canned response when it fails, so errors here never carry
// domain kinds.
package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/physai/textbook-rag/internal/core/domain"
)

const (
	DefaultModel = "gpt-4o-mini"

	systemPrompt = `You are a teaching assistant for a robotics textbook. Answer the student's question using ONLY the provided textbook passages. Quote or paraphrase the passages; do not invent facts beyond them. If the passages do not cover the question, say so briefly. Keep the answer under 200 words.`
)

type Generator struct {
	client *openai.Client
	model  string
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

func New(cfg Config) (*Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("openai generator: API key is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Generator{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

func (g *Generator) Generate(ctx context.Context, queryText, selectedText string, passages []domain.RetrievedChunk) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildUserPrompt(queryText, selectedText, passages),
			},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no choices returned")
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", fmt.Errorf("chat completion: empty answer")
	}
	return answer, nil
}

func buildUserPrompt(queryText, selectedText string, passages []domain.RetrievedChunk) string {
	var b strings.Builder

	b.WriteString("Textbook passages, ranked by relevance:\n\n")
	for _, p := range passages {
		fmt.Fprintf(&b, "[%d] (section %s) %s\n\n", p.Rank, p.SectionID, p.Text)
	}
	if len(passages) == 0 {
		b.WriteString("(no passages were retrieved)\n\n")
	}

	if selectedText != "" {
		fmt.Fprintf(&b, "The student highlighted this text while asking:\n%s\n\n", selectedText)
	}
	fmt.Fprintf(&b, "Question: %s", queryText)
	return b.String()
}
