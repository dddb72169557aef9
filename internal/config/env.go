package config

import (
	"errors"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL        = "https://router.huggingface.co/v1"
	DefaultTemperature    = 0.7
	DefaultMaxTokens      = 2048
	DefaultPort           = "5000"
	DefaultMaxUploadBytes = 32 << 20
	DefaultComposerURL    = "http://localhost:5000/api/llm/chat"

	DefaultInferenceBaseURL = "https://router.huggingface.co/hf-inference/"
	DefaultEmbeddingModel   = "intfloat/multilingual-e5-large"
	DefaultSentimentModel   = "siebert/sentiment-roberta-large-english"
	DefaultAgenticTopK      = 3
)

// DefaultAllowedOrigins are the local development front-ends permitted by CORS.
var DefaultAllowedOrigins = []string{
	"http://localhost:8080",
	"http://localhost:3000",
	"http://localhost:5173",
}

var (
	ErrMissingAPIKey = errors.New("missing upstream credential: set HF_ACCESS_TOKEN or OPENAI_API_KEY")
	ErrMissingModel  = errors.New("missing upstream model: set HF_MODEL or OPENAI_MODEL")
)

type EnvConfig struct {
	ConfigPath string
	OpenAI     OpenAIEnvConfig
	Relay      RelayEnvConfig
	Server     ServerEnvConfig
	OTel       OTelEnvConfig
	Log        LogEnvConfig
	Composer   ComposerEnvConfig
	Agentic    AgenticEnvConfig
	Sentiment  SentimentEnvConfig
}

type OpenAIEnvConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	HTTPTimeout time.Duration
	// InferenceBaseURL serves Hugging Face task pipelines (embeddings,
	// classification) that have no OpenAI-compatible route.
	InferenceBaseURL string
	OTel             OpenAIOTelEnvConfig
}

type OpenAIOTelEnvConfig struct {
	Enabled       bool
	CaptureBodies bool
	MaxBodyBytes  int
}

type RelayEnvConfig struct {
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
}

type ServerEnvConfig struct {
	Port            string
	AllowedOrigins  []string
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
}

type OTelEnvConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	Protocol    string // "grpc" or "http/protobuf"
	Headers     map[string]string
	Insecure    bool
	SampleRatio float64
}

type LogEnvConfig struct {
	Level  string
	Format string // "text" or "json"
	File   string
}

// AgenticEnvConfig drives the routed event assistant behind /api/chat.
type AgenticEnvConfig struct {
	Model          string
	EmbeddingModel string
	// EventsFile is a JSON or YAML list of events to search. Empty means no
	// events are known.
	EventsFile string
	TopK       int
}

type SentimentEnvConfig struct {
	Model    string
	Comments []string
}

type ComposerEnvConfig struct {
	URL         string
	HTTPTimeout time.Duration
}

// Load reads the optional YAML document named by POLARIS_CONFIG and then the
// environment. Environment values win over the document, which wins over the
// built-in defaults.
func Load() (EnvConfig, error) {
	path := envString("POLARIS_CONFIG", "polaris.yaml")
	file, err := LoadFile(path)
	if err != nil {
		return EnvConfig{}, err
	}
	cfg := loadEnv(file)
	cfg.ConfigPath = path
	return cfg, nil
}

// LoadEnv reads the configuration from the environment only.
func LoadEnv() EnvConfig {
	return loadEnv(FileConfig{})
}

func loadEnv(file FileConfig) EnvConfig {
	otlpEndpoint := strings.TrimSpace(envString("OTEL_EXPORTER_OTLP_ENDPOINT", ""))

	apiKey := envString("HF_ACCESS_TOKEN", envString("OPENAI_API_KEY", ""))
	model := envString("HF_MODEL", envString("OPENAI_MODEL", file.LLM.Model))

	temperature := DefaultTemperature
	if file.LLM.Temperature != nil {
		temperature = *file.LLM.Temperature
	}
	maxTokens := DefaultMaxTokens
	if file.LLM.MaxTokens > 0 {
		maxTokens = file.LLM.MaxTokens
	}

	origins := DefaultAllowedOrigins
	if len(file.Server.AllowedOrigins) > 0 {
		origins = file.Server.AllowedOrigins
	}
	if raw := envString("CORS_ALLOWED_ORIGINS", ""); raw != "" {
		origins = parseList(raw)
	}

	topK := DefaultAgenticTopK
	if file.Agentic.TopK > 0 {
		topK = file.Agentic.TopK
	}

	maxUpload := int64(DefaultMaxUploadBytes)
	if file.Server.MaxUploadBytes > 0 {
		maxUpload = file.Server.MaxUploadBytes
	}

	return EnvConfig{
		OpenAI: OpenAIEnvConfig{
			APIKey:           strings.TrimSpace(apiKey),
			BaseURL:          strings.TrimSpace(envString("OPENAI_BASE_URL", orDefault(file.LLM.BaseURL, DefaultBaseURL))),
			Model:            strings.TrimSpace(model),
			HTTPTimeout:      envDuration("OPENAI_HTTP_TIMEOUT", 0),
			InferenceBaseURL: strings.TrimSpace(envString("HF_INFERENCE_BASE_URL", DefaultInferenceBaseURL)),
			OTel: OpenAIOTelEnvConfig{
				Enabled:       envBool("OTEL_OPENAI_ENABLED", true),
				CaptureBodies: envBool("OTEL_CAPTURE_OPENAI_BODIES", false),
				MaxBodyBytes:  envInt("OTEL_OPENAI_MAX_BODY_BYTES", 64*1024),
			},
		},
		Relay: RelayEnvConfig{
			SystemPrompt: file.LLM.SystemPrompt,
			Temperature:  envFloat("LLM_TEMPERATURE", temperature),
			MaxTokens:    envInt("LLM_MAX_TOKENS", maxTokens),
		},
		Server: ServerEnvConfig{
			Port:            envString("PORT", orDefault(file.Server.Port, DefaultPort)),
			AllowedOrigins:  origins,
			MaxUploadBytes:  int64(envInt("SERVER_MAX_UPLOAD_BYTES", int(maxUpload))),
			ShutdownTimeout: envDuration("SERVER_SHUTDOWN_TIMEOUT", 5*time.Second),
		},
		OTel: OTelEnvConfig{
			Enabled:     envBool("OTEL_ENABLED", false),
			ServiceName: strings.TrimSpace(envString("OTEL_SERVICE_NAME", "polaris")),
			Endpoint:    otlpEndpoint,
			Protocol:    strings.ToLower(strings.TrimSpace(envString("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
			Headers:     parseHeaders(envString("OTEL_EXPORTER_OTLP_HEADERS", "")),
			Insecure:    envBool("OTEL_EXPORTER_OTLP_INSECURE", defaultInsecure(otlpEndpoint)),
			SampleRatio: clamp01(envFloat("OTEL_TRACES_SAMPLE_RATIO", 1.0)),
		},
		Log: LogEnvConfig{
			Level:  envString("LOG_LEVEL", orDefault(file.Log.Level, "info")),
			Format: envString("LOG_FORMAT", orDefault(file.Log.Format, "text")),
			File:   envString("LOG_FILE", file.Log.File),
		},
		Composer: ComposerEnvConfig{
			URL:         envString("POLARIS_URL", DefaultComposerURL),
			HTTPTimeout: envDuration("POLARIS_HTTP_TIMEOUT", 0),
		},
		Agentic: AgenticEnvConfig{
			Model:          strings.TrimSpace(envString("AGENTIC_MODEL", orDefault(file.Agentic.Model, model))),
			EmbeddingModel: envString("AGENTIC_EMBEDDING_MODEL", orDefault(file.Agentic.EmbeddingModel, DefaultEmbeddingModel)),
			EventsFile:     envString("AGENTIC_EVENTS_FILE", file.Agentic.EventsFile),
			TopK:           envInt("AGENTIC_TOP_K", topK),
		},
		Sentiment: SentimentEnvConfig{
			Model:    envString("SENTIMENT_MODEL", orDefault(file.Sentiment.Model, DefaultSentimentModel)),
			Comments: file.Sentiment.Comments,
		},
	}
}

// Validate reports configuration the relay cannot start without.
func (c EnvConfig) Validate() error {
	var errs []error
	if c.OpenAI.APIKey == "" {
		errs = append(errs, ErrMissingAPIKey)
	}
	if c.OpenAI.Model == "" {
		errs = append(errs, ErrMissingModel)
	}
	return errors.Join(errs...)
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func orDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func parseList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseHeaders(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	out := map[string]string{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

func defaultInsecure(endpoint string) bool {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return true
	}
	if strings.Contains(endpoint, "://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return false
		}
		return u.Scheme == "http"
	}
	return strings.HasPrefix(endpoint, "localhost:") ||
		strings.HasPrefix(endpoint, "127.0.0.1:") ||
		strings.HasPrefix(endpoint, "0.0.0.0:")
}
