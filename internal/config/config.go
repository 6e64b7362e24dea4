package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	OutputDir string

	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	OpenAITemperature float64
	CompareTimeoutMs  int
	CompareRateRPS    int
	CompareRetries    int
	MaxPromptChars    int

	CompareConcurrency int

	MasterIDColumn string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAITemperature: getEnvFloat("OPENAI_TEMPERATURE", 0.0),
		CompareTimeoutMs:  getEnvInt("COMPARE_TIMEOUT_MS", 30000),
		CompareRateRPS:    getEnvInt("COMPARE_RATE_LIMIT_RPS", 2),
		CompareRetries:    getEnvInt("COMPARE_RETRIES", 3),
		MaxPromptChars:    getEnvInt("MAX_PROMPT_CHARS", 3800),

		CompareConcurrency: getEnvInt("COMPARE_CONCURRENCY", 1),

		MasterIDColumn: getEnv("MASTER_ID_COLUMN", "Patient ID"),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
