package generator

// Draft 是一条待发布的推文候选：正文加上辅助元数据。
// Metadata values are strings or numbers.
type Draft struct {
	Tweet    string         `json:"tweet"`
	Metadata map[string]any `json:"metadata"`
}

// MaxTweetLength is the posting surface's limit, counted in runes.
const MaxTweetLength = 280

// Metadata keys set by the generator.
const (
	MetaTopic       = "topic"
	MetaModel       = "model"
	MetaLength      = "length"
	MetaGeneratedAt = "generatedAt"
)
