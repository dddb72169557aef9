package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig is the optional YAML document. Credentials are only read from
// the environment.
type FileConfig struct {
	Server    FileServerConfig    `yaml:"server"`
	LLM       FileLLMConfig       `yaml:"llm"`
	Log       FileLogConfig       `yaml:"log"`
	Agentic   FileAgenticConfig   `yaml:"agentic"`
	Sentiment FileSentimentConfig `yaml:"sentiment"`
}

type FileAgenticConfig struct {
	Model          string `yaml:"model"`
	EmbeddingModel string `yaml:"embedding_model"`
	EventsFile     string `yaml:"events_file"`
	TopK           int    `yaml:"top_k"`
}

type FileSentimentConfig struct {
	Model    string   `yaml:"model"`
	Comments []string `yaml:"comments"`
}

type FileServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
}

type FileLLMConfig struct {
	BaseURL      string   `yaml:"base_url"`
	Model        string   `yaml:"model"`
	SystemPrompt string   `yaml:"system_prompt"`
	Temperature  *float64 `yaml:"temperature"`
	MaxTokens    int      `yaml:"max_tokens"`
}

type FileLogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// LoadFile parses the YAML document at path. A missing file yields an empty
// FileConfig.
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
