// Command lambda runs one agent turn per invocation, with session state in S3
// and completions on Amazon Bedrock.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joeshaw/envdecode"

	"savouragent"
	"savouragent/agent"
	"savouragent/batch"
	"savouragent/checkpoint"
	"savouragent/llm/bedrock"
)

type Params struct {
	SessionID string   `json:"session_id"`
	Text      string   `json:"text"`
	Images    []string `json:"images,omitempty"`
}

func main() {
	fn := func(ctx context.Context, params Params) (*agent.Result, error) {
		if params.SessionID == "" {
			return nil, fmt.Errorf("session_id is required")
		}

		var modelConfig savouragent.ModelConfig
		if err := envdecode.Decode(&modelConfig); err != nil {
			log.Fatalf("Failed to decode: %s", err)
		}

		var agentConfig savouragent.AgentConfig
		if err := envdecode.Decode(&agentConfig); err != nil {
			log.Fatalf("Failed to decode: %s", err)
		}

		s3Bucket := os.Getenv("SESSIONS_S3_BUCKET")
		s3Prefix := os.Getenv("SESSIONS_S3_PREFIX")
		if s3Bucket == "" {
			return nil, fmt.Errorf("missing S3 config: SESSIONS_S3_BUCKET must be set")
		}

		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		store := checkpoint.NewS3Store(s3.NewFromConfig(awsCfg), s3Bucket, s3Prefix)
		slog.Info("SETUP: S3 session store initialized", "bucket", s3Bucket, "prefix", s3Prefix)

		client := bedrock.NewClient(bedrockruntime.NewFromConfig(awsCfg), bedrock.ClientOpts{
			ModelID:     modelConfig.ModelID,
			MaxTokens:   modelConfig.MaxOutputTokens,
			Temperature: modelConfig.Temperature,
			TopP:        modelConfig.TopP,
		})

		_, meterProvider, otelShutdown, err := savouragent.InitOtel(ctx)
		if err != nil {
			slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
			return nil, err
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
			Store:              store,
			Steps:              savouragent.NewStdoutStepLogger(),
			HistoryTokenBudget: agentConfig.HistoryTokenBudget,
			CallTimeout:        agentConfig.CallTimeout,
		})
		if err != nil {
			slog.Error("SETUP: Failed to create agent", "error", err)
			return nil, err
		}

		result, err := machine.Resume(ctx, params.SessionID, agent.Turn{
			Text:   params.Text,
			Images: params.Images,
		})
		if err != nil {
			slog.Error("RESULT: Error handling turn", "error", err)
			return nil, err
		}
		return result, nil
	}

	lambda.Start(fn)
}
