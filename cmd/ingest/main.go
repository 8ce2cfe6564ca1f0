// Command ingest enriches raw scraped recipe texts into structured records
// and bulk-loads them into the hybrid search store. Input is JSON lines with
// a raw_text field, given as a file path or piped on stdin.
package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/joeshaw/envdecode"

	"savouragent"
	"savouragent/batch"
	"savouragent/embeddings"
	"savouragent/llm/gemini"
	"savouragent/recipes"
	"savouragent/search/pghybrid"
)

func main() {
	ctx := context.Background()

	var modelConfig savouragent.ModelConfig
	if err := envdecode.Decode(&modelConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	var agentConfig savouragent.AgentConfig
	if err := envdecode.Decode(&agentConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	var searchConfig savouragent.SearchConfig
	if err := envdecode.Decode(&searchConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	rawTexts, err := readInput()
	if err != nil {
		slog.Error("SETUP: Failed to read input", "error", err)
		return
	}
	slog.Info("SETUP: Raw recipes read", "count", len(rawTexts))

	client, err := gemini.NewClient(gemini.ClientOpts{
		ProjectID:         modelConfig.ProjectID,
		Location:          modelConfig.Location,
		ModelID:           modelConfig.ModelID,
		AccessToken:       os.Getenv("GOOGLE_ACCESS_TOKEN"),
		HTTPClient:        http.DefaultClient,
		MaxOutputTokens:   modelConfig.MaxOutputTokens,
		Temperature:       modelConfig.Temperature,
		TopP:              modelConfig.TopP,
		RequestsPerSecond: modelConfig.RequestsPerSecond,
		MaxBucketSize:     modelConfig.MaxBucketSize,
	})
	if err != nil {
		slog.Error("SETUP: Failed to create LLM client", "error", err)
		return
	}

	pool, err := pghybrid.Connect(ctx, searchConfig.DatabaseURL)
	if err != nil {
		slog.Error("SETUP: Failed to connect to recipe database", "error", err)
		return
	}
	defer pool.Close()

	_, meterProvider, otelShutdown, err := savouragent.InitOtel(ctx)
	if err != nil {
		slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
		return
	}
	defer func() {
		if err := otelShutdown(ctx); err != nil {
			slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	runner := batch.NewRunner()
	runner.MaxConcurrency = agentConfig.MaxConcurrency
	runner.Timeout = agentConfig.CallTimeout
	runner.Meter = meterProvider.Meter(savouragent.TracerNameIngest)

	embedder := embeddings.NewTextEmbedder(searchConfig.EmbeddingsEndpoint, searchConfig.EmbeddingsModel, http.DefaultClient)
	store := pghybrid.NewStore(pool, embedder)
	loader := recipes.NewLoader(recipes.NewEnricher(client, runner), store)

	stats, err := loader.Load(ctx, rawTexts)
	if err != nil {
		slog.Error("FAILURE: Ingestion failed", "error", err)
		return
	}
	slog.Info("RESULT: Ingestion finished",
		"scanned", stats.Scanned,
		"loaded", stats.Loaded,
		"filtered", stats.Filtered,
		"estimated_cost", stats.Cost.Estimated,
	)
}

func readInput() ([]string, error) {
	if len(os.Args) > 1 {
		f, err := os.Open(os.Args[1])
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return recipes.ReadRawTexts(f)
	}
	return recipes.ReadRawTexts(io.Reader(os.Stdin))
}
