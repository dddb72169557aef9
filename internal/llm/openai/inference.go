package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bakkerme/polaris/internal/config"
	"github.com/bakkerme/polaris/internal/core"
	"github.com/bakkerme/polaris/internal/llm"
	"github.com/bakkerme/polaris/internal/observability/otelx"
)

// ErrUnexpectedShape is returned when an inference pipeline answers with JSON
// that does not fit the task.
var ErrUnexpectedShape = errors.New("inference: unexpected response shape")

// InferenceClient calls Hugging Face task pipelines through the SDK's raw
// request support, sharing auth, timeouts and tracing with chat completions.
type InferenceClient struct {
	client openai.Client
}

func NewInferenceClient(cfg config.OpenAIEnvConfig, opts ...option.RequestOption) *InferenceClient {
	base := cfg.InferenceBaseURL
	if base == "" {
		base = config.DefaultInferenceBaseURL
	}
	options := baseOptions(cfg, base)
	options = append(options, opts...)
	return &InferenceClient{client: openai.NewClient(options...)}
}

func startSpan(ctx context.Context, name, model string) (context.Context, trace.Span) {
	ctx, span := otelx.Tracer("llm/openai").Start(ctx, name)
	span.SetAttributes(
		attribute.String("llm.provider", "hf-inference"),
		attribute.String("llm.model", model),
		attribute.String("request.id", core.RequestIDFromContext(ctx)),
	)
	return ctx, span
}

type inferenceRequest struct {
	Inputs any `json:"inputs"`
}

// Embed runs the feature-extraction pipeline of model over texts.
func (c *InferenceClient) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	ctx, span := startSpan(ctx, "llm.hf.feature_extraction", model)
	defer span.End()
	span.SetAttributes(attribute.Int("llm.inputs", len(texts)))

	var raw []byte
	if err := c.client.Post(ctx, "models/"+model+"/pipeline/feature-extraction", inferenceRequest{Inputs: texts}, &raw); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	vectors, err := decodeVectors(raw, len(texts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return vectors, nil
}

// decodeVectors accepts one pooled vector per input. A single input may come
// back as a bare vector.
func decodeVectors(raw []byte, inputs int) ([][]float32, error) {
	var vectors [][]float32
	if err := json.Unmarshal(raw, &vectors); err == nil {
		if len(vectors) != inputs {
			return nil, fmt.Errorf("%w: %d vectors for %d inputs", ErrUnexpectedShape, len(vectors), inputs)
		}
		return vectors, nil
	}
	var single []float32
	if err := json.Unmarshal(raw, &single); err == nil && inputs == 1 {
		return [][]float32{single}, nil
	}
	return nil, fmt.Errorf("%w: feature extraction", ErrUnexpectedShape)
}

// Classify runs the text-classification pipeline of model over text and
// returns its labels, highest score first.
func (c *InferenceClient) Classify(ctx context.Context, model string, text string) ([]llm.Label, error) {
	ctx, span := startSpan(ctx, "llm.hf.text_classification", model)
	defer span.End()

	var raw []byte
	if err := c.client.Post(ctx, "models/"+model, inferenceRequest{Inputs: text}, &raw); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	labels, err := decodeLabels(raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	sort.SliceStable(labels, func(i, j int) bool { return labels[i].Score > labels[j].Score })
	span.SetStatus(codes.Ok, "")
	return labels, nil
}

// decodeLabels accepts both the nested per-input form and a flat label list.
func decodeLabels(raw []byte) ([]llm.Label, error) {
	var nested [][]llm.Label
	if err := json.Unmarshal(raw, &nested); err == nil {
		if len(nested) == 0 {
			return nil, fmt.Errorf("%w: no labels", ErrUnexpectedShape)
		}
		return nested[0], nil
	}
	var flat []llm.Label
	if err := json.Unmarshal(raw, &flat); err == nil {
		return flat, nil
	}
	return nil, fmt.Errorf("%w: text classification", ErrUnexpectedShape)
}
