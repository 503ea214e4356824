package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	LLMAPIKey       string
	LLMBaseURL      string
	LLMModel        string
	TTSVoice        string
	RealtimeAPIKey  string
	RealtimeAgentID string
	RealtimeBaseURL string
	AllowedOrigins  []string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := &Config{
		LLMAPIKey:       os.Getenv("OPENAI_API_KEY"),
		LLMBaseURL:      getenvDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		LLMModel:        getenvDefault("OPENAI_MODEL", "gpt-4o-mini"),
		TTSVoice:        getenvDefault("TTS_VOICE", "alloy"),
		RealtimeAPIKey:  os.Getenv("REALTIME_API_KEY"),
		RealtimeAgentID: os.Getenv("REALTIME_AGENT_ID"),
		RealtimeBaseURL: getenvDefault("REALTIME_BASE_URL", "https://api.elevenlabs.io"),
		AllowedOrigins:  []string{"*"},
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = strings.Split(origins, ",")
	}

	return cfg
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
