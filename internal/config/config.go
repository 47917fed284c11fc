package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Ai      AIConfig
	Speech  SpeechConfig
	Tracing TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	LLMLogFilePath     string
	CorsAllowedOrigins string
	UploadDir          string
	AudioDir           string
	RedisURL           string
	SessionStore       string // "memory" or "redis"
	SessionSecret      string
	SessionTTL         time.Duration
	BodyLimitMB        int
}

type AIConfig struct {
	LLMProvider      string // "ollama" or "openrouter"
	LLMModel         string // e.g. "llama3", "mistralai/mistral-7b-instruct"
	OllamaBaseURL    string
	OpenRouterURL    string
	OpenRouterAPIKey string
	InferenceTimeout time.Duration
	ContextMaxChars  int
	RecentTurns      int
	MaxPages         int
}

type SpeechConfig struct {
	ElevenLabsBaseURL  string
	ElevenLabsAPIKey   string
	DefaultVoice       string
	AssumedChunks      int
	MaxCharsPerRequest int
	JobTimeout         time.Duration
	// ArtifactTTL is how long finished audio and its progress stay available
	ArtifactTTL time.Duration
}

type TracingConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "5000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			LLMLogFilePath:     getEnv("LLM_LOG_FILE_PATH", "logs/llm.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			UploadDir:          getEnv("UPLOAD_DIR", "uploads"),
			AudioDir:           getEnv("AUDIO_DIR", "static/audio"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			SessionStore:       getEnv("SESSION_STORE", "memory"),
			SessionSecret:      getEnv("SESSION_SECRET", "change-me"),
			SessionTTL:         getEnvAsDuration("SESSION_TTL", 24*time.Hour),
			BodyLimitMB:        getEnvAsInt("BODY_LIMIT_MB", 32),
		},
		Ai: AIConfig{
			LLMProvider:      getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:         getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL:    getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OpenRouterURL:    getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
			OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
			InferenceTimeout: getEnvAsDuration("INFERENCE_TIMEOUT", 60*time.Second),
			ContextMaxChars:  getEnvAsInt("CONTEXT_MAX_CHARS", 3500),
			RecentTurns:      getEnvAsInt("RECENT_TURNS", 4),
			MaxPages:         getEnvAsInt("PDF_MAX_PAGES", 100),
		},
		Speech: SpeechConfig{
			ElevenLabsBaseURL:  getEnv("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
			ElevenLabsAPIKey:   getEnv("ELEVENLABS_API_KEY", ""),
			DefaultVoice:       getEnv("ELEVENLABS_VOICE_ID", "JBFqnCBsd6RMkjVDRZzb"),
			AssumedChunks:      getEnvAsInt("TTS_ASSUMED_CHUNKS", 50),
			MaxCharsPerRequest: getEnvAsInt("TTS_MAX_CHARS", 2500),
			JobTimeout:         getEnvAsDuration("TTS_JOB_TIMEOUT", 5*time.Minute),
			ArtifactTTL:        getEnvAsDuration("TTS_ARTIFACT_TTL", time.Hour),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvAsBool("TRACING_ENABLED", false),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "studymate-be"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
