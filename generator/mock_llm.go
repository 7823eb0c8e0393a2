package generator

import (
	"context"
	"fmt"
)

// MockLLM 一个简单的占位实现，便于本地调试，不调用外部模型。
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	// Markdown emphasis on purpose: exercises the same cleanup as real model output.
	return fmt.Sprintf("**%s** keeps moving fast. Ship something small today, measure it, and write down what surprised you. #buildinpublic", prompt.Topic), nil
}
