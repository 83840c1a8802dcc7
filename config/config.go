// Package config loads service configuration from an optional YAML file
// layered under environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"
	ProviderOllama  = "ollama"
	ProviderStub    = "stub"
)

type Config struct {
	Addr      string `yaml:"addr"`
	UploadDir string `yaml:"upload_dir"`
	OutputDir string `yaml:"output_dir"`

	GuidelinesPath string `yaml:"guidelines_path"`
	ChecklistPath  string `yaml:"checklist_path"`

	Suggest SuggestConfig `yaml:"suggest"`
	Review  ReviewConfig  `yaml:"review"`

	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	OllamaHost    string `yaml:"ollama_host"`
	AWSRegion     string `yaml:"aws_region"`

	SessionTTL Duration `yaml:"session_ttl"`
}

// Duration is a time.Duration that YAML decodes from either a Go duration
// string ("2h", "45m") or integer nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err == nil {
		*d = Duration(parsed)
		return nil
	}
	ns, nerr := strconv.ParseInt(raw, 10, 64)
	if nerr != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(ns)
	return nil
}

type SuggestConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

type ReviewConfig struct {
	StandardSections []string `yaml:"standard_sections"`
	ExcludedSections []string `yaml:"excluded_sections"`
}

// DefaultStandardSections are the writeup section names recognized as headers
// regardless of colon or capitalization cues.
var DefaultStandardSections = []string{
	"Executive Summary",
	"Background",
	"Resolving Actions",
	"Root Cause",
	"Preventative Actions",
	"Investigation Process",
	"Seller Classification",
	"Documentation and Reporting",
	"Impact Assessment",
	"Timeline",
	"Recommendations",
}

// DefaultExcludedSections name sections that are detected but withheld from
// review (their paragraphs are still consumed).
var DefaultExcludedSections = []string{
	"Original Email",
	"Email Correspondence",
	"Raw Data",
	"Logs",
	"Attachments",
}

func Default() Config {
	return Config{
		Addr:      ":8080",
		UploadDir: "uploads",
		OutputDir: "outputs",
		Suggest: SuggestConfig{
			Provider: ProviderStub,
			Model:    "anthropic.claude-3-sonnet-20240229-v1:0",
		},
		Review: ReviewConfig{
			StandardSections: append([]string(nil), DefaultStandardSections...),
			ExcludedSections: append([]string(nil), DefaultExcludedSections...),
		},
		OllamaHost: "http://localhost:11434",
		AWSRegion:  "us-east-1",
		SessionTTL: Duration(2 * time.Hour),
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// REVIEW_AGENT_CONFIG (if any), then individual environment overrides.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("REVIEW_AGENT_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.Addr = getEnv("REVIEW_AGENT_ADDR", cfg.Addr)
	cfg.UploadDir = getEnv("REVIEW_AGENT_UPLOAD_DIR", cfg.UploadDir)
	cfg.OutputDir = getEnv("REVIEW_AGENT_OUTPUT_DIR", cfg.OutputDir)
	cfg.GuidelinesPath = getEnv("REVIEW_AGENT_GUIDELINES", cfg.GuidelinesPath)
	cfg.ChecklistPath = getEnv("REVIEW_AGENT_CHECKLIST", cfg.ChecklistPath)
	cfg.Suggest.Provider = getEnv("REVIEW_AGENT_PROVIDER", cfg.Suggest.Provider)
	cfg.Suggest.Model = getEnv("REVIEW_AGENT_MODEL", cfg.Suggest.Model)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.OllamaHost = getEnv("OLLAMA_HOST", cfg.OllamaHost)
	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)

	if raw := os.Getenv("REVIEW_AGENT_SESSION_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return cfg, fmt.Errorf("parse REVIEW_AGENT_SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = Duration(ttl)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

// ParseBool reads a boolean environment variable, defaulting on absence or
// malformed input.
func ParseBool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}
