package generator

import (
	"fmt"
	"strings"
)

// Prompt 表示发送给 LLM 的消息集合。
type Prompt struct {
	System string
	User   string
	Topic  string
}

// DefaultTopics are used when the caller does not steer the draft.
var DefaultTopics = []string{
	"AI",
	"startups",
	"productivity",
	"developer tools",
	"open source",
	"remote work",
}

// BuildTweetPrompt 生成单条推文的提示词。
func BuildTweetPrompt(topic string) Prompt {
	var sb strings.Builder
	sb.WriteString("You write short, original posts for X (Twitter). Output the post text only, no explanations.\n")
	sb.WriteString("Rules:\n")
	sb.WriteString(fmt.Sprintf("- At most %d characters.\n", MaxTweetLength))
	sb.WriteString("- Plain text, no Markdown and no surrounding quotes.\n")
	sb.WriteString("- At most two hashtags; none is fine.\n")
	sb.WriteString("- Concrete and specific; avoid generic motivational filler.\n")

	user := fmt.Sprintf("Topic: %s\nWrite one post about this topic.", topic)

	return Prompt{
		System: sb.String(),
		User:   user,
		Topic:  topic,
	}
}
