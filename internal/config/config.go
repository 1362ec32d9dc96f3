package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI = "openai"
	ProviderVertex = "vertex"
)

type Config struct {
	Port        string
	ProjectID   string
	Region      string
	LogLevel    string
	DatabaseURL string
	LLMProvider string
	LLMAPIKey   string
	LLMBaseURL  string
	LLMModel    string
	VertexModel string
	AITTL       time.Duration
	ChatKMSKey  string
	Timezone    string
}

// New reads the environment. A .env file in the working directory is loaded
// first when present; real environment variables take precedence over it.
func New() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		ProjectID:   os.Getenv("PROJECTID"),
		Region:      getEnvOrDefault("REGION", "us-central1"),
		LogLevel:    os.Getenv("LOGLEVEL"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		LLMProvider: strings.ToLower(getEnvOrDefault("LLMPROVIDER", ProviderOpenAI)),
		LLMAPIKey:   os.Getenv("LLMAPIKEY"),
		LLMBaseURL:  getEnvOrDefault("LLMBASEURL", "https://api.deepseek.com/v1"),
		LLMModel:    getEnvOrDefault("LLMMODEL", "deepseek-reasoner"),
		VertexModel: getEnvOrDefault("VERTEXMODEL", "gemini-2.0-flash"),
		AITTL:       getDuration("AITTL", 7*24*time.Hour),
		ChatKMSKey:  os.Getenv("CHATKMSKEY"),
		Timezone:    getEnvOrDefault("TIMEZONE", "UTC"),
	}
}

func (c *Config) Validate() error {
	var problems []error
	if c.DatabaseURL == "" {
		problems = append(problems, errors.New("DATABASE_URL is required"))
	}
	switch c.LLMProvider {
	case ProviderOpenAI:
		if c.LLMAPIKey == "" {
			problems = append(problems, errors.New("LLMAPIKEY is required for the openai provider"))
		}
	case ProviderVertex:
		if c.ProjectID == "" {
			problems = append(problems, errors.New("PROJECTID is required for the vertex provider"))
		}
	default:
		problems = append(problems, errors.New("LLMPROVIDER must be openai or vertex"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		problems = append(problems, errors.New("TIMEZONE is not a valid IANA zone"))
	}
	return errors.Join(problems...)
}

// Location is the zone reports bucket days and months in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SecretRefs lists the values that may hold Secret Manager references.
func (c *Config) SecretRefs() []*string {
	return []*string{&c.DatabaseURL, &c.LLMAPIKey}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
