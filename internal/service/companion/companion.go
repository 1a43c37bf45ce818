// Package companion phrases the chatbot's reply. Classification never happens
// here; the stress level arrives already decided.
package companion

import (
	"context"
	"fmt"

	"wellnessconnect/internal/chatbot"
	"wellnessconnect/internal/config"
	"wellnessconnect/internal/logger"
	"wellnessconnect/internal/risk"
)

// Replier produces the text shown to the student for a classified message.
type Replier interface {
	Reply(ctx context.Context, level risk.Level, message string) (string, error)
}

// Canned returns the fixed reply for each level.
type Canned struct{}

func (Canned) Reply(_ context.Context, level risk.Level, _ string) (string, error) {
	return chatbot.ResponseFor(level), nil
}

// Fallback tries primary and falls back to the canned reply on any error or
// empty answer.
type Fallback struct {
	primary Replier
	log     *logger.Logger
}

func NewFallback(primary Replier, log *logger.Logger) *Fallback {
	return &Fallback{primary: primary, log: logger.OrNop(log)}
}

func (f *Fallback) Reply(ctx context.Context, level risk.Level, message string) (string, error) {
	if f.primary != nil {
		text, err := f.primary.Reply(ctx, level, message)
		if err == nil && text != "" {
			return text, nil
		}
		if err != nil {
			f.log.Warn("companion reply failed, using canned reply", "level", level.String(), "error", err)
		}
	}
	return Canned{}.Reply(ctx, level, message)
}

// New returns the canned replier when no provider is configured, otherwise
// an LLM replier guarded by the canned fallback.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (Replier, error) {
	provider := cfg.Companion.Provider
	if provider == "" {
		return Canned{}, nil
	}
	pc, ok := cfg.Providers[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
	llm, err := NewLLM(ctx, provider, pc)
	if err != nil {
		return nil, err
	}
	return NewFallback(llm, log), nil
}
