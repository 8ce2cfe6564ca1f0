// Package bedrock implements the structured-completion client on the AWS
// Bedrock Converse API. The target schema is presented as the input schema
// of a single forced tool; the model's tool-use input is the structured
// result.
package bedrock

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"savouragent/llm"
)

const (
	// defaultModelID is an inference profile ID, not the foundation model's ID.
	// See https://docs.aws.amazon.com/bedrock/latest/userguide/inference-profiles.html.
	defaultModelID = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"

	defaultMaxTokens   = 4096
	defaultTemperature = 0.5
	defaultTopP        = 0.9

	// emitToolName is the forced tool the model must call to deliver the
	// structured result.
	emitToolName = "emit_result"
)

type bedrockRuntimeClient interface {
	Converse(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type ClientOpts struct {
	ModelID     string
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

type Client struct {
	brc  bedrockRuntimeClient
	opts ClientOpts
}

func NewClient(brc bedrockRuntimeClient, opts ClientOpts) *Client {
	if opts.ModelID == "" {
		opts.ModelID = defaultModelID
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.TopP == 0 {
		opts.TopP = defaultTopP
	}
	return &Client{brc: brc, opts: opts}
}

// Invoke converses with the model, forcing a call to the emit tool whose
// input schema is the target, and returns the tool-use input as JSON.
func (c *Client) Invoke(ctx context.Context, prompt llm.Prompt, target *jsonschema.Schema) (json.RawMessage, error) {
	slog.Info("LLM_CLIENT: Invoked", "model", c.opts.ModelID, "messages_len", len(prompt.Messages))

	var sys []types.SystemContentBlock
	var msgs []types.Message

	for _, m := range prompt.Messages {
		if m.Role == llm.RoleSystem {
			sys = append(sys, &types.SystemContentBlockMemberText{Value: m.Content})
			continue
		}

		msg := types.Message{Role: types.ConversationRole(m.Role)}
		if m.Content != "" {
			msg.Content = append(msg.Content, &types.ContentBlockMemberText{Value: m.Content})
		}
		for _, img := range m.Images {
			block, err := imageBlock(img)
			if err != nil {
				slog.Warn("LLM_CLIENT: Skipping undecodable image", "error", err)
				continue
			}
			msg.Content = append(msg.Content, block)
		}
		if len(msg.Content) == 0 {
			continue
		}
		msgs = append(msgs, msg)
	}

	spec, err := toolSpec(target)
	if err != nil {
		return nil, fmt.Errorf("build tool spec: %w", err)
	}

	in := &bedrockruntime.ConverseInput{
		ModelId:  &c.opts.ModelID,
		System:   sys,
		Messages: msgs,
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(c.opts.MaxTokens),
			Temperature: aws.Float32(c.opts.Temperature),
			TopP:        aws.Float32(c.opts.TopP),
		},
		ToolConfig: &types.ToolConfiguration{
			Tools: []types.Tool{&types.ToolMemberToolSpec{Value: spec}},
			ToolChoice: &types.ToolChoiceMemberTool{
				Value: types.SpecificToolChoice{Name: aws.String(emitToolName)},
			},
		},
	}

	out, err := c.brc.Converse(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("converse: %w", err)
	}

	slog.Info("LLM_CLIENT: Converse succeeded",
		"stop_reason", out.StopReason,
		"input_tokens", aws.ToInt32(out.Usage.InputTokens),
		"output_tokens", aws.ToInt32(out.Usage.OutputTokens),
	)

	switch out.StopReason {
	case types.StopReasonToolUse, types.StopReasonEndTurn:
		return resultFromOutput(out)
	case types.StopReasonMaxTokens:
		return nil, fmt.Errorf("model hit MaxTokens limit")
	case types.StopReasonContentFiltered:
		return nil, fmt.Errorf("model response blocked by Bedrock safety filters")
	default:
		return resultFromOutput(out)
	}
}

// toolSpec converts the target schema to the Converse tool representation.
func toolSpec(target *jsonschema.Schema) (types.ToolSpecification, error) {
	b, err := json.Marshal(target)
	if err != nil {
		return types.ToolSpecification{}, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return types.ToolSpecification{}, err
	}
	return types.ToolSpecification{
		Name:        aws.String(emitToolName),
		Description: aws.String("Deliver the structured result."),
		InputSchema: &types.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(m)},
	}, nil
}

func resultFromOutput(out *bedrockruntime.ConverseOutput) (json.RawMessage, error) {
	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, fmt.Errorf("unexpected output type %T", out.Output)
	}
	for _, block := range msg.Value.Content {
		tu, ok := block.(*types.ContentBlockMemberToolUse)
		if !ok {
			continue
		}
		b, err := tu.Value.Input.MarshalSmithyDocument()
		if err != nil {
			return nil, fmt.Errorf("marshal tool input: %w", err)
		}
		return json.RawMessage(b), nil
	}
	return nil, fmt.Errorf("no tool use block in model output")
}

func imageBlock(dataURI string) (types.ContentBlock, error) {
	mime, data := llm.SplitDataURI(dataURI)
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode image data: %w", err)
	}
	format := types.ImageFormatJpeg
	switch mime {
	case "image/png":
		format = types.ImageFormatPng
	case "image/gif":
		format = types.ImageFormatGif
	case "image/webp":
		format = types.ImageFormatWebp
	}
	return &types.ContentBlockMemberImage{
		Value: types.ImageBlock{
			Format: format,
			Source: &types.ImageSourceMemberBytes{Value: raw},
		},
	}, nil
}
