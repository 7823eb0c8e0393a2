package generator

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"auto_tweet_agent/failure"
)

// Agent 负责根据主题生成推文草稿。
type Agent struct {
	llm    LLMClient
	model  string
	topics []string
	next   atomic.Uint64
	now    func() time.Time
}

func NewAgent(llm LLMClient, model string, defaultTopics []string) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	if len(defaultTopics) == 0 {
		defaultTopics = DefaultTopics
	}
	return &Agent{
		llm:    llm,
		model:  model,
		topics: defaultTopics,
		now:    time.Now,
	}, nil
}

// Generate produces a draft for topic. An empty topic lets the agent pick one
// of its default subjects. Every failure is reported as a generation failure.
func (a *Agent) Generate(ctx context.Context, topic string) (Draft, error) {
	subject := strings.TrimSpace(topic)
	if subject == "" {
		subject = a.pickTopic()
	}

	raw, err := a.llm.Complete(ctx, BuildTweetPrompt(subject))
	if err != nil {
		return Draft{}, failure.Generation(err)
	}
	tweet, err := PostProcess(raw)
	if err != nil {
		return Draft{}, failure.Generation(err)
	}

	return Draft{
		Tweet: tweet,
		Metadata: map[string]any{
			MetaTopic:       subject,
			MetaModel:       a.model,
			MetaLength:      utf8.RuneCountInString(tweet),
			MetaGeneratedAt: a.now().UTC().Format(time.RFC3339),
		},
	}, nil
}

// 轮流使用默认主题。
func (a *Agent) pickTopic() string {
	n := a.next.Add(1) - 1
	return a.topics[n%uint64(len(a.topics))]
}
