// Command agent runs the ingredient assistant as an interactive terminal
// session. Photos are attached with /image, and once ingredients have been
// extracted /find searches the recipe corpus for matches.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/joeshaw/envdecode"

	"savouragent"
	"savouragent/agent"
	"savouragent/batch"
	"savouragent/checkpoint"
	"savouragent/embeddings"
	"savouragent/llm"
	"savouragent/llm/gemini"
	"savouragent/notify"
	"savouragent/retrieve"
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

	steps, cleanup, err := newStepLogger(modelConfig.ModelID)
	if err != nil {
		slog.Error("SETUP: Failed to create step logger", "error", err)
		return
	}
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("SETUP: Failed to flush step log", "error", err)
		}
	}()

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
	runner.Meter = meterProvider.Meter(savouragent.TracerNameAgent)

	machine, err := agent.NewMachine(agent.MachineOpts{
		Client:             client,
		Runner:             runner,
		Store:              checkpoint.NewFileStore(agentConfig.CheckpointDir),
		Steps:              steps,
		HistoryTokenBudget: agentConfig.HistoryTokenBudget,
		CallTimeout:        agentConfig.CallTimeout,
	})
	if err != nil {
		slog.Error("SETUP: Failed to create agent", "error", err)
		return
	}

	retriever := newRetriever(ctx, client, runner)

	var webhook *notify.Webhook
	if agentConfig.SummaryWebhookURL != "" {
		webhook = notify.NewWebhook(agentConfig.SummaryWebhookURL, http.DefaultClient)
	}

	sessionID := argOr(1, "local-session")
	slog.Info("SETUP: Ready", "session_id", sessionID, "model", modelConfig.ModelID)
	fmt.Println("Describe your ingredients. Commands: /image <path>, /find <query>, /quit")

	var pendingImages []string
	var lastResult *agent.Result
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return
		case strings.HasPrefix(line, "/image "):
			path := strings.TrimSpace(strings.TrimPrefix(line, "/image "))
			uri, err := llm.EncodeImageFile(path)
			if err != nil {
				fmt.Printf("could not read image: %s\n", err)
				continue
			}
			pendingImages = append(pendingImages, uri)
			fmt.Printf("attached %s (%d pending)\n", path, len(pendingImages))
			continue
		case strings.HasPrefix(line, "/find"):
			query := strings.TrimSpace(strings.TrimPrefix(line, "/find"))
			findRecipes(ctx, retriever, lastResult, query)
			continue
		case line == "/debug":
			savouragent.Dump(lastResult)
			continue
		}

		result, err := machine.Resume(ctx, sessionID, agent.Turn{Text: line, Images: pendingImages})
		if err != nil {
			slog.Error("FAILURE: Turn failed", "error", err)
			continue
		}
		pendingImages = nil
		lastResult = result
		printResult(result)

		if webhook != nil {
			summary := notify.Summary{
				SessionID:     result.SessionID,
				Status:        string(result.Status),
				Ingredients:   result.Ingredients,
				Assessments:   result.Assessments,
				EstimatedCost: result.EstimatedCost,
			}
			if err := webhook.PostSummary(ctx, summary); err != nil {
				slog.Error("Failed to post summary", "error", err)
			}
		}
	}
}

func printResult(result *agent.Result) {
	fmt.Printf("savour> %s\n", result.Message)
	if result.Status != agent.StatusExtracted {
		return
	}
	for i, name := range result.Ingredients {
		assessment := result.Assessments[i]
		safety := "safe"
		if !assessment.IsSafeToConsume {
			safety = "NOT safe"
		}
		fmt.Printf("  - %s (%s): %s, shelf life %s\n",
			name, result.Quantities[i], safety, assessment.RemainingShelfLife)
	}
	fmt.Printf("  estimated cost: %.4f\n", result.EstimatedCost)
}

func findRecipes(ctx context.Context, retriever *retrieve.Retriever, lastResult *agent.Result, query string) {
	if retriever == nil {
		fmt.Println("recipe search is not configured (set DATABASE_URL)")
		return
	}
	if lastResult == nil || lastResult.Status != agent.StatusExtracted {
		fmt.Println("extract ingredients first, then /find")
		return
	}
	if query == "" {
		query = "recipes using " + strings.Join(lastResult.Ingredients, ", ")
	}

	matches, cost, err := retriever.Retrieve(ctx, query, retrieve.Options{
		Ingredients: lastResult.Ingredients,
	})
	if err != nil {
		slog.Error("FAILURE: Recipe search failed", "error", err)
		return
	}
	if len(matches) == 0 {
		fmt.Println("no matching recipes found")
		return
	}
	for _, m := range matches {
		fmt.Printf("  %5.1f  %s\n         %s\n", m.MatchScore, m.Title(), m.Reasoning)
	}
	fmt.Printf("  estimated cost: %.4f\n", cost.Estimated)
}

// newRetriever wires recipe search only when a database is configured.
func newRetriever(ctx context.Context, client llm.Client, runner *batch.Runner) *retrieve.Retriever {
	if os.Getenv("DATABASE_URL") == "" {
		return nil
	}

	var searchConfig savouragent.SearchConfig
	if err := envdecode.Decode(&searchConfig); err != nil {
		slog.Error("SETUP: Failed to decode search config", "error", err)
		return nil
	}

	pool, err := pghybrid.Connect(ctx, searchConfig.DatabaseURL)
	if err != nil {
		slog.Error("SETUP: Failed to connect to recipe database", "error", err)
		return nil
	}

	embedder := embeddings.NewTextEmbedder(searchConfig.EmbeddingsEndpoint, searchConfig.EmbeddingsModel, http.DefaultClient)
	store := pghybrid.NewStore(pool, embedder)
	store.VectorPenalty = searchConfig.VectorPenalty
	store.FulltextPenalty = searchConfig.FulltextPenalty

	slog.Info("SETUP: Recipe search wired", "top_k", searchConfig.TopK)
	return retrieve.NewRetriever(store, client, runner)
}

func argOr(i int, def string) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return def
}

func newStepLogger(modelID string) (savouragent.StepLogger, func() error, error) {
	logFilePath := savouragent.NewStepLogFilePath(modelID)
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, func() error { return err }, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := savouragent.NewFileStepLogger(logFile)
	cleanup := func() error {
		return errors.Join(logger.Flush(), logFile.Close())
	}
	return logger, cleanup, nil
}
