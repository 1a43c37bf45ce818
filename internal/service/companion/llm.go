package companion

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"wellnessconnect/internal/config"
	"wellnessconnect/internal/risk"
)

const systemPrompt = "You are a supportive wellbeing companion for university students. " +
	"Reply in at most three short sentences. Be warm and practical. " +
	"Never diagnose and never give medical instructions. " +
	"The student's message has been assessed as %s stress. " +
	"For Medium or High stress, gently suggest booking a counselling session."

type generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// LLM asks a chat model for the reply.
type LLM struct {
	chatModel generator
}

// newChatModel is swapped out in tests.
var newChatModel = buildChatModel

// NewLLM builds the eino chat model for provider. An empty APIKey falls back to
// WELLNESS_<PROVIDER>_API_KEY.
func NewLLM(ctx context.Context, provider string, pc config.ProviderConfig) (*LLM, error) {
	if pc.APIKey == "" {
		pc.APIKey = os.Getenv("WELLNESS_" + strings.ToUpper(provider) + "_API_KEY")
	}
	if pc.APIKey == "" {
		return nil, fmt.Errorf("no api key for provider %s", provider)
	}
	cm, err := newChatModel(ctx, provider, pc)
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", provider, err)
	}
	return &LLM{chatModel: cm}, nil
}

func buildChatModel(ctx context.Context, provider string, pc config.ProviderConfig) (generator, error) {
	switch provider {
	case "openai":
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: pc.BaseURL,
			Model:   pc.Model,
			APIKey:  pc.APIKey,
		})
	case "gemini":
		client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: pc.APIKey})
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		return gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  pc.Model,
		})
	case "claude":
		var baseURL *string
		if pc.BaseURL != "" {
			baseURL = &pc.BaseURL
		}
		return claude.NewChatModel(ctx, &claude.Config{
			APIKey:    pc.APIKey,
			Model:     pc.Model,
			BaseURL:   baseURL,
			MaxTokens: 300,
		})
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}

func (l *LLM) Reply(ctx context.Context, level risk.Level, message string) (string, error) {
	msgs := []*schema.Message{
		schema.SystemMessage(fmt.Sprintf(systemPrompt, level)),
		schema.UserMessage(message),
	}
	resp, err := l.chatModel.Generate(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}
