package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/BusulwaJordan/Oticbot/internal/backend"
	"github.com/BusulwaJordan/Oticbot/internal/services"
	"gopkg.in/yaml.v3"
)

type llmConfig interface {
	llm(systemPrompt string, logger *slog.Logger) (backend.LLM, error)
}

// BaseLLMConfig contains the common fields for all LLM configurations.
type BaseLLMConfig struct {
	Provider   string              `yaml:"provider"`
	Model      string              `yaml:"model"`
	Parameters services.Parameters `yaml:"parameters"`
}

type config struct {
	Port           string    `yaml:"port"`
	SystemPrompt   string    `yaml:"systemPrompt"`
	AllowedOrigins []string  `yaml:"allowedOrigins"`
	LLM            llmConfig `yaml:"llm"`
	LogLevel       string    `yaml:"logLevel"`
	LogFormat      string    `yaml:"logFormat"`
}

type openAIConfig struct {
	BaseLLMConfig `yaml:",inline"`
	BaseURL       string `yaml:"baseURL"`
	APIKey        string `yaml:"apiKey"`

	apiKeyEnv string
}

type ollamaConfig struct {
	BaseLLMConfig `yaml:",inline"`
	Host          string `yaml:"host"`
}

type anthropicConfig struct {
	BaseLLMConfig `yaml:",inline"`
	APIKey        string `yaml:"apiKey"`
	MaxTokens     int    `yaml:"maxTokens"`
}

type openRouterConfig struct {
	BaseLLMConfig `yaml:",inline"`
	APIKey        string `yaml:"apiKey"`
}

const defaultSystemPrompt = `You are a helpful and knowledgeable AI assistant for the Otic Foundation.
The Otic Foundation is a social enterprise in Uganda dedicated to leveraging Artificial Intelligence (AI) for societal impact.
It is officially endorsed by the Ugandan Ministry of ICT & National Guidance.
Mission: Democratize access to AI knowledge and emerging technologies through grassroots advocacy, free skilling initiatives, and community-driven programs.
Goal: Raise 3 million AI talents and create 1 million AI-centric jobs in Uganda by 2030.
Key Initiatives:
- National Free AI Skilling Initiative: Training in ML, Data Science, GenAI, and Cybersecurity.
- AI in Every City Campaign: Aiming to reach 1 million Ugandans by 2025.
- Partnerships: Collaborates with the Ministry of ICT.
Founded in 2021.
Tone: Professional, inspiring, helpful, and community-focused.
`

func groqConfig() *openAIConfig {
	return &openAIConfig{
		BaseLLMConfig: BaseLLMConfig{Provider: "groq", Model: services.GroqModel},
		BaseURL:       services.GroqBaseURL,
		apiKeyEnv:     "GROQ_API_KEY",
	}
}

func defaultConfig() config {
	return config{
		Port:           "8000",
		SystemPrompt:   defaultSystemPrompt,
		AllowedOrigins: []string{"*"},
		LLM:            groqConfig(),
	}
}

// loadConfig reads the config file at path on top of the defaults. A missing file is not an error.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return config{}, fmt.Errorf("error opening config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return config{}, fmt.Errorf("error decoding config file: %w", err)
	}
	return cfg, nil
}

func (c *config) UnmarshalYAML(value *yaml.Node) error {
	var rawConfig struct {
		Port           string         `yaml:"port"`
		SystemPrompt   string         `yaml:"systemPrompt"`
		AllowedOrigins []string       `yaml:"allowedOrigins"`
		LLM            map[string]any `yaml:"llm"`
		LogLevel       string         `yaml:"logLevel"`
		LogFormat      string         `yaml:"logFormat"`
	}

	if err := value.Decode(&rawConfig); err != nil {
		return err
	}

	if rawConfig.Port != "" {
		c.Port = rawConfig.Port
	}
	if rawConfig.SystemPrompt != "" {
		c.SystemPrompt = rawConfig.SystemPrompt
	}
	if rawConfig.AllowedOrigins != nil {
		c.AllowedOrigins = rawConfig.AllowedOrigins
	}
	c.LogLevel = rawConfig.LogLevel
	c.LogFormat = rawConfig.LogFormat

	if rawConfig.LLM == nil {
		return nil
	}

	llmProvider, ok := rawConfig.LLM["provider"].(string)
	if !ok {
		return fmt.Errorf("llm provider is required")
	}

	llmRawYAML, err := yaml.Marshal(rawConfig.LLM)
	if err != nil {
		return err
	}

	var llm llmConfig
	switch llmProvider {
	case "groq":
		llm = groqConfig()
	case "openai":
		llm = &openAIConfig{apiKeyEnv: "OPENAI_API_KEY"}
	case "ollama":
		llm = &ollamaConfig{}
	case "anthropic":
		llm = &anthropicConfig{}
	case "openrouter":
		llm = &openRouterConfig{}
	default:
		return fmt.Errorf("unknown llm provider: %s", llmProvider)
	}

	if err := yaml.Unmarshal(llmRawYAML, llm); err != nil {
		return err
	}

	c.LLM = llm
	return nil
}

func (o openAIConfig) llm(systemPrompt string, logger *slog.Logger) (backend.LLM, error) {
	if o.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	apiKey := o.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(o.apiKeyEnv)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required, set apiKey or %s", o.apiKeyEnv)
	}
	return services.NewOpenAI(apiKey, o.BaseURL, o.Model, systemPrompt, o.Parameters, logger), nil
}

func (o ollamaConfig) llm(systemPrompt string, _ *slog.Logger) (backend.LLM, error) {
	if o.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	host := o.Host
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	return services.NewOllama(host, o.Model, systemPrompt, o.Parameters)
}

func (a anthropicConfig) llm(systemPrompt string, _ *slog.Logger) (backend.LLM, error) {
	if a.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if a.MaxTokens == 0 && a.Parameters.MaxTokens == nil {
		return nil, fmt.Errorf("maxTokens is required")
	}

	apiKey := a.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required, set apiKey or ANTHROPIC_API_KEY")
	}
	return services.NewAnthropic(apiKey, a.Model, systemPrompt, a.MaxTokens, a.Parameters), nil
}

func (o openRouterConfig) llm(systemPrompt string, logger *slog.Logger) (backend.LLM, error) {
	if o.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	apiKey := o.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required, set apiKey or OPENROUTER_API_KEY")
	}
	return services.NewOpenRouter(apiKey, o.Model, systemPrompt, o.Parameters, logger), nil
}
