package generator

import (
	"context"
	"errors"
)

// LLMClient completes a prompt into raw post text.
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// Supported llm.provider values.
const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderMock     = "mock"
)

// LLMSettings 提供给具体实现的基础配置。
type LLMSettings struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

func (s *LLMSettings) validate() error {
	if s == nil {
		return errors.New("llm config is nil")
	}
	if s.APIKey == "" {
		return errors.New("openai api key missing; provide llm.api_key or OPENAI_API_KEY")
	}
	if s.Model == "" {
		return errors.New("llm model is required")
	}
	if s.Provider == ProviderDeepSeek && s.BaseURL == "" {
		return errors.New("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
	}
	return nil
}
