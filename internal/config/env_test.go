package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HF_ACCESS_TOKEN", "OPENAI_API_KEY", "HF_MODEL", "OPENAI_MODEL", "OPENAI_BASE_URL",
		"OPENAI_HTTP_TIMEOUT", "LLM_TEMPERATURE", "LLM_MAX_TOKENS", "PORT", "CORS_ALLOWED_ORIGINS",
		"SERVER_MAX_UPLOAD_BYTES", "POLARIS_CONFIG", "LOG_LEVEL", "LOG_FORMAT", "LOG_FILE",
		"HF_INFERENCE_BASE_URL", "AGENTIC_MODEL", "AGENTIC_EMBEDDING_MODEL", "AGENTIC_EVENTS_FILE",
		"AGENTIC_TOP_K", "SENTIMENT_MODEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg := LoadEnv()
	if cfg.OpenAI.BaseURL != DefaultBaseURL {
		t.Fatalf("expected default base url, got %q", cfg.OpenAI.BaseURL)
	}
	if cfg.Relay.Temperature != 0.7 {
		t.Fatalf("expected temperature 0.7, got %v", cfg.Relay.Temperature)
	}
	if cfg.Relay.MaxTokens != 2048 {
		t.Fatalf("expected max tokens 2048, got %d", cfg.Relay.MaxTokens)
	}
	if cfg.Server.Port != "5000" {
		t.Fatalf("expected port 5000, got %q", cfg.Server.Port)
	}
	if !reflect.DeepEqual(cfg.Server.AllowedOrigins, DefaultAllowedOrigins) {
		t.Fatalf("unexpected origins: %v", cfg.Server.AllowedOrigins)
	}
	if cfg.OpenAI.HTTPTimeout != 0 {
		t.Fatalf("expected no upstream timeout, got %v", cfg.OpenAI.HTTPTimeout)
	}
}

func TestLoadEnvPrefersHFVariables(t *testing.T) {
	clearEnv(t)
	t.Setenv("HF_ACCESS_TOKEN", "hf-token")
	t.Setenv("OPENAI_API_KEY", "sk-other")
	t.Setenv("HF_MODEL", "meta-llama/Llama-3.2-11B-Vision-Instruct")
	t.Setenv("OPENAI_HTTP_TIMEOUT", "30s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg := LoadEnv()
	if cfg.OpenAI.APIKey != "hf-token" {
		t.Fatalf("expected HF token, got %q", cfg.OpenAI.APIKey)
	}
	if cfg.OpenAI.Model != "meta-llama/Llama-3.2-11B-Vision-Instruct" {
		t.Fatalf("unexpected model %q", cfg.OpenAI.Model)
	}
	if cfg.OpenAI.HTTPTimeout != 30*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.OpenAI.HTTPTimeout)
	}
	want := []string{"http://a.test", "http://b.test"}
	if !reflect.DeepEqual(cfg.Server.AllowedOrigins, want) {
		t.Fatalf("got origins %v want %v", cfg.Server.AllowedOrigins, want)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestLoadEnvFallsBackToOpenAIKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")

	cfg := LoadEnv()
	if cfg.OpenAI.APIKey != "sk-test" || cfg.OpenAI.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected openai config: %+v", cfg.OpenAI)
	}
}

func TestValidateReportsMissingCredentialAndModel(t *testing.T) {
	clearEnv(t)

	err := LoadEnv().Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey in %v", err)
	}
	if !errors.Is(err, ErrMissingModel) {
		t.Errorf("expected ErrMissingModel in %v", err)
	}
}

func TestLoadAppliesFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "polaris.yaml")
	doc := []byte(`
server:
  port: "9090"
  allowed_origins: ["https://chat.example.com"]
llm:
  model: file-model
  temperature: 0.2
  max_tokens: 512
  system_prompt: "Be brief."
log:
  format: json
`)
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("POLARIS_CONFIG", path)
	t.Setenv("LLM_MAX_TOKENS", "1024")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected file port, got %q", cfg.Server.Port)
	}
	if cfg.OpenAI.Model != "file-model" {
		t.Errorf("expected file model, got %q", cfg.OpenAI.Model)
	}
	if cfg.Relay.Temperature != 0.2 {
		t.Errorf("expected file temperature, got %v", cfg.Relay.Temperature)
	}
	if cfg.Relay.MaxTokens != 1024 {
		t.Errorf("expected env to win for max tokens, got %d", cfg.Relay.MaxTokens)
	}
	if cfg.Relay.SystemPrompt != "Be brief." {
		t.Errorf("unexpected system prompt %q", cfg.Relay.SystemPrompt)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("expected json log format, got %q", cfg.Log.Format)
	}
	if !reflect.DeepEqual(cfg.Server.AllowedOrigins, []string{"https://chat.example.com"}) {
		t.Errorf("unexpected origins %v", cfg.Server.AllowedOrigins)
	}
}

func TestLoadFileMissingIsEmpty(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !reflect.DeepEqual(cfg, FileConfig{}) {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadFileRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParseHeaders(t *testing.T) {
	got := parseHeaders("a=1, b = 2 ,broken,=x,c=")
	want := map[string]string{"a": "1", "b": "2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestLoadAgenticAndSentiment(t *testing.T) {
	clearEnv(t)
	t.Setenv("HF_MODEL", "chat-model")

	cfg := LoadEnv()
	if cfg.Agentic.Model != "chat-model" {
		t.Fatalf("agentic model should default to the chat model, got %q", cfg.Agentic.Model)
	}
	if cfg.Agentic.EmbeddingModel != DefaultEmbeddingModel || cfg.Agentic.TopK != 3 {
		t.Fatalf("unexpected agentic defaults %+v", cfg.Agentic)
	}
	if cfg.Sentiment.Model != DefaultSentimentModel {
		t.Fatalf("unexpected sentiment model %q", cfg.Sentiment.Model)
	}
	if cfg.OpenAI.InferenceBaseURL != DefaultInferenceBaseURL {
		t.Fatalf("unexpected inference base %q", cfg.OpenAI.InferenceBaseURL)
	}

	path := filepath.Join(t.TempDir(), "polaris.yaml")
	doc := "agentic:\n  events_file: events.yaml\n  top_k: 5\nsentiment:\n  comments:\n    - great\n    - awful\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("POLARIS_CONFIG", path)
	t.Setenv("AGENTIC_MODEL", "router-model")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agentic.Model != "router-model" || cfg.Agentic.EventsFile != "events.yaml" || cfg.Agentic.TopK != 5 {
		t.Fatalf("unexpected agentic config %+v", cfg.Agentic)
	}
	if !reflect.DeepEqual(cfg.Sentiment.Comments, []string{"great", "awful"}) {
		t.Fatalf("unexpected comments %v", cfg.Sentiment.Comments)
	}
}
