package savouragent

import "time"

// ModelConfig holds settings for the structured-completion model.
// Defaults follow the Vertex AI Gemini setup this service runs against.
type ModelConfig struct {
	ModelID           string  `env:"MODEL_ID,default=gemini-2.0-flash-exp"`
	ProjectID         string  `env:"PROJECT_ID,required"`
	Location          string  `env:"LOCATION,default=us-central1"`
	MaxOutputTokens   int32   `env:"MAX_OUTPUT_TOKENS,default=8192"`
	Temperature       float32 `env:"TEMPERATURE,default=0.5"`
	TopP              float32 `env:"TOP_P,default=0"`
	RequestsPerSecond float64 `env:"REQUESTS_PER_SECOND,default=5"`
	MaxBucketSize     int     `env:"MAX_BUCKET_SIZE,default=5"`
}

// AgentConfig holds settings for the conversation pipeline.
type AgentConfig struct {
	CheckpointDir      string        `env:"CHECKPOINT_DIR,default=artifacts/sessions"`
	HistoryTokenBudget int           `env:"HISTORY_TOKEN_BUDGET,default=250"`
	MaxConcurrency     int           `env:"MAX_CONCURRENCY,default=10"`
	CallTimeout        time.Duration `env:"CALL_TIMEOUT,default=60s"`
	SummaryWebhookURL  string        `env:"SUMMARY_WEBHOOK_URL"`
}

// SearchConfig holds settings for the hybrid recipe search store.
type SearchConfig struct {
	DatabaseURL        string `env:"DATABASE_URL,required"`
	EmbeddingsEndpoint string `env:"EMBEDDINGS_ENDPOINT,default=http://localhost:11434"`
	EmbeddingsModel    string `env:"EMBEDDINGS_MODEL,default=nomic-embed-text"`
	TopK               int    `env:"TOP_K,default=10"`
	VectorPenalty      int    `env:"VECTOR_PENALTY,default=50"`
	FulltextPenalty    int    `env:"FULLTEXT_PENALTY,default=50"`
}
