package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var ErrEmptyEnvironmentVariable = errors.New("empty environment variable")

// Config holds all application configuration
type Config struct {
	Server      ServerConfig
	OpenAI      OpenAIConfig
	Twilio      TwilioConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	AMQP        AMQPConfig
	StreamToken StreamTokenConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port              int
	PublicHost        string // host used in the media stream URL; request host when empty
	ValidateSignature bool   // verify X-Twilio-Signature on webhooks
	AllowedOrigins    []string
	APIKey            string // required on /api requests; the API refuses everything when empty
}

// OpenAIConfig holds realtime session settings
type OpenAIConfig struct {
	APIKey             string
	RealtimeURL        string
	Model              string
	Voice              string
	Temperature        float64
	Instructions       string
	GreetingPrompt     string
	ClassifierModel    string
	TranscriptsEnabled bool
	EndCallDetection   bool
}

// TwilioConfig holds telephony provider credentials and call-answer settings
type TwilioConfig struct {
	AccountSID   string
	AuthToken    string
	Greeting     string
	PauseSeconds int
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Username string
	Password string
	Name     string
}

// RedisConfig holds settings for the shared call session registry
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// AMQPConfig holds settings for the transcript publisher
type AMQPConfig struct {
	Enabled bool
	URL     string
	Queue   string
}

// StreamTokenConfig holds signing settings for media stream tokens
type StreamTokenConfig struct {
	Secret string
	TTL    time.Duration
}

const (
	defaultRealtimeURL     = "wss://api.openai.com/v1/realtime"
	defaultModel           = "gpt-4o-realtime-preview"
	defaultVoice           = "sage"
	defaultClassifierModel = "gpt-4o-mini"
	defaultGreetingPrompt  = "Greet the user with 'Hello there! I am an AI voice assistant that will help you with any questions you may have.'"
	defaultTwilioGreeting  = "Hello! I am an AI assistant. Please tell me your message."
)

// Load reads and validates all required environment variables
func Load() (*Config, error) {
	// Load env.local in non-production environments
	if os.Getenv("GO_ENV") != "production" {
		if err := godotenv.Load("env.local"); err != nil {
			return nil, fmt.Errorf("failed to load env.local: %w", err)
		}
	}
	return fromEnv()
}

func fromEnv() (*Config, error) {
	cfg := &Config{}
	var err error

	// Server configuration
	serverPort := getEnvWithDefault("SERVER_PORT", "5050")
	cfg.Server.Port, err = strconv.Atoi(serverPort)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SERVER_PORT: %w", err)
	}
	cfg.Server.PublicHost = os.Getenv("PUBLIC_HOST")
	if cfg.Server.ValidateSignature, err = parseBool("TWILIO_VALIDATE_SIGNATURE", os.Getenv("GO_ENV") == "production"); err != nil {
		return nil, err
	}
	cfg.Server.APIKey = os.Getenv("API_KEY")
	if origin := os.Getenv("DASHBOARD_ORIGIN"); origin != "" {
		cfg.Server.AllowedOrigins = []string{origin}
	}

	// OpenAI configuration
	if cfg.OpenAI.APIKey, err = requireEnv("OPENAI_API_KEY"); err != nil {
		return nil, err
	}
	cfg.OpenAI.RealtimeURL = getEnvWithDefault("OPENAI_REALTIME_URL", defaultRealtimeURL)
	cfg.OpenAI.Model = getEnvWithDefault("OPENAI_REALTIME_MODEL", defaultModel)
	cfg.OpenAI.Voice = getEnvWithDefault("OPENAI_VOICE", defaultVoice)
	cfg.OpenAI.Temperature, err = strconv.ParseFloat(getEnvWithDefault("OPENAI_TEMPERATURE", "0.8"), 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OPENAI_TEMPERATURE: %w", err)
	}
	cfg.OpenAI.GreetingPrompt = getEnvWithDefault("OPENAI_GREETING_PROMPT", defaultGreetingPrompt)
	cfg.OpenAI.ClassifierModel = getEnvWithDefault("OPENAI_CLASSIFIER_MODEL", defaultClassifierModel)
	if cfg.OpenAI.TranscriptsEnabled, err = parseBool("TRANSCRIPTS_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.OpenAI.EndCallDetection, err = parseBool("END_CALL_DETECTION", false); err != nil {
		return nil, err
	}

	instructionsPath := getEnvWithDefault("SYSTEM_MESSAGE_PATH", "prompt.txt")
	instructions, err := os.ReadFile(instructionsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read SYSTEM_MESSAGE_PATH %s: %w", instructionsPath, err)
	}
	cfg.OpenAI.Instructions = string(instructions)

	// Twilio configuration
	if cfg.Twilio.AccountSID, err = requireEnv("TWILIO_ACCOUNT_SID"); err != nil {
		return nil, err
	}
	if cfg.Twilio.AuthToken, err = requireEnv("TWILIO_AUTH_TOKEN"); err != nil {
		return nil, err
	}
	cfg.Twilio.Greeting = getEnvWithDefault("TWILIO_GREETING", defaultTwilioGreeting)
	cfg.Twilio.PauseSeconds, err = strconv.Atoi(getEnvWithDefault("TWILIO_PAUSE_SECONDS", "60"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse TWILIO_PAUSE_SECONDS: %w", err)
	}

	// Database configuration, optional
	cfg.Database.Host = os.Getenv("DB_HOST")
	if cfg.Database.Host != "" {
		cfg.Database.Enabled = true
		if cfg.Database.Username, err = requireEnv("DB_USERNAME"); err != nil {
			return nil, err
		}
		if cfg.Database.Password, err = requireEnv("DB_PASSWORD"); err != nil {
			return nil, err
		}
		if cfg.Database.Name, err = requireEnv("DB_NAME"); err != nil {
			return nil, err
		}
	}

	// Redis configuration, optional
	if cfg.Redis.Enabled, err = parseBool("REDIS_ENABLED", false); err != nil {
		return nil, err
	}
	cfg.Redis.Host = getEnvWithDefault("REDIS_HOST", "localhost")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if cfg.Redis.Port, err = strconv.Atoi(getEnvWithDefault("REDIS_PORT", "6379")); err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_PORT: %w", err)
	}
	if cfg.Redis.DB, err = strconv.Atoi(getEnvWithDefault("REDIS_DB", "0")); err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_DB: %w", err)
	}

	// AMQP configuration, optional
	cfg.AMQP.URL = os.Getenv("AMQP_URL")
	if cfg.AMQP.URL != "" {
		cfg.AMQP.Enabled = true
		cfg.AMQP.Queue = getEnvWithDefault("AMQP_QUEUE_NAME", "call-transcripts")
	}

	// Stream tokens are signed with the Twilio auth token unless overridden
	cfg.StreamToken.Secret = getEnvWithDefault("STREAM_TOKEN_SECRET", cfg.Twilio.AuthToken)
	cfg.StreamToken.TTL, err = time.ParseDuration(getEnvWithDefault("STREAM_TOKEN_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse STREAM_TOKEN_TTL: %w", err)
	}

	return cfg, nil
}

// ConnectionString returns a PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s",
		c.Username, c.Password, c.Host, c.Name)
}

// Addr returns the host:port pair for the Redis server
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// requireEnv retrieves an environment variable or returns an error if empty
func requireEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s is not set: %w", key, ErrEmptyEnvironmentVariable)
	}
	return value, nil
}

// getEnvWithDefault retrieves an environment variable or returns a default value
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func parseBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return parsed, nil
}
