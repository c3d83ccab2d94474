package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"

	"github.com/harshchoudhary100/my-chat-box/internal/store"
)

const (
	defaultChatModelName  = "gemini-1.5-flash-latest"
	chatSystemInstruction = "You are a helpful assistant."
)

// Turn is one prior exchange replayed to the model, in stored order.
type Turn struct {
	Role    string
	Content string
}

// Completer turns an ordered history plus a new user input into generated
// text. The production implementation calls the hosted model; tests stub it.
type Completer interface {
	Complete(ctx context.Context, history []Turn, input string) (string, error)
}

type LLMService struct {
	client *genai.Client
}

func NewLLMService(apiKey string) (*LLMService, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &LLMService{client: client}, nil
}

func (s *LLMService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			log.Error().Err(err).Msg("error closing GenAI client")
		}
	}
}

// providerRole maps stored roles onto the wire roles the model expects.
func providerRole(role string) string {
	if role == store.RoleAssistant {
		return "model"
	}
	return "user"
}

func (s *LLMService) Complete(ctx context.Context, history []Turn, input string) (string, error) {
	model := s.client.GenerativeModel(defaultChatModelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(chatSystemInstruction)},
	}

	chatSession := model.StartChat()
	for _, turn := range history {
		chatSession.History = append(chatSession.History, &genai.Content{
			Role:  providerRole(turn.Role),
			Parts: []genai.Part{genai.Text(turn.Content)},
		})
	}

	resp, err := chatSession.SendMessage(ctx, genai.Text(input))
	if err != nil {
		return "", fmt.Errorf("gemini chat SendMessage failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini response had no candidates")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseText.WriteString(string(txt))
		} else {
			log.Warn().Msgf("gemini response part was not text: %T", part)
		}
	}

	if responseText.Len() == 0 {
		return "", fmt.Errorf("gemini response contained no text parts")
	}
	return responseText.String(), nil
}
