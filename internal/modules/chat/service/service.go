package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

var ErrNoResponse = errors.New("no response from Gemini API")

const systemPrompt = "You are the ISF AI assistant for a student club portal. " +
	"Answer questions about the club, its events, team and community in a friendly, concise way."

type ChatService interface {
	// Stream calls emit with each text fragment in order. It stops at the
	// first emit error.
	Stream(ctx context.Context, prompt string, emit func(fragment string) error) error
	Reply(ctx context.Context, message string) (string, error)
	Close()
}

type geminiChat struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiChat(ctx context.Context, apiKey, modelName string) (ChatService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.7)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	return &geminiChat{
		client: client,
		model:  model,
	}, nil
}

func (g *geminiChat) Stream(ctx context.Context, prompt string, emit func(string) error) error {
	iter := g.model.GenerateContentStream(ctx, genai.Text(prompt))
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}

		if text := responseText(resp); text != "" {
			if err := emit(text); err != nil {
				return err
			}
		}
	}
}

func (g *geminiChat) Reply(ctx context.Context, message string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(message))
	if err != nil {
		return "", err
	}

	text := responseText(resp)
	if text == "" {
		return "", ErrNoResponse
	}
	return text, nil
}

func (g *geminiChat) Close() {
	g.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}
