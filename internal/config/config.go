// Package config provides configuration for the orchestration core.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the orchestration core configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Graph store
	StoreHost            string
	StorePort            int
	StoreUser            string
	StorePassword        string
	StoreConnectAttempts int

	// Circuit breaker
	BreakerThreshold   int
	BreakerResetWindow time.Duration

	// Job worker
	JobPollInterval time.Duration
	JobTimeout      time.Duration

	// Workflow engine
	StepTimeout   time.Duration
	WorkflowsDir  string
	PolicyPath    string
	ArtifactIndex string

	// Capability providers
	ResearchAgentURL    string
	QueryAgentURL       string
	DocumentExporterURL string
	AudioSynthesizerURL string
	ProviderTimeout     time.Duration
	ProviderRetryDelay  time.Duration
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:             getEnvInt("HTTP_PORT", 8080),
		StoreHost:            getEnv("STORE_HOST", "localhost"),
		StorePort:            getEnvInt("STORE_PORT", 7687),
		StoreUser:            getEnv("STORE_USER", "neo4j"),
		StorePassword:        getEnv("STORE_PASSWORD", ""),
		StoreConnectAttempts: getEnvInt("STORE_CONNECT_ATTEMPTS", 3),
		BreakerThreshold:     getEnvInt("BREAKER_THRESHOLD", 5),
		BreakerResetWindow:   time.Duration(getEnvInt("BREAKER_RESET_MS", 30000)) * time.Millisecond,
		JobPollInterval:      time.Duration(getEnvInt("JOB_POLL_MS", 5000)) * time.Millisecond,
		JobTimeout:           time.Duration(getEnvInt("JOB_TIMEOUT_MS", 600000)) * time.Millisecond,
		StepTimeout:          time.Duration(getEnvInt("STEP_TIMEOUT_MS", 300000)) * time.Millisecond,
		WorkflowsDir:         getEnv("WORKFLOWS_DIR", "workflows"),
		PolicyPath:           getEnv("POLICY_PATH", ""),
		ArtifactIndex:        getEnv("ARTIFACT_INDEX", "artifacts.json"),
		ResearchAgentURL:     getEnv("RESEARCH_AGENT_URL", "http://localhost:8091"),
		QueryAgentURL:        getEnv("QUERY_AGENT_URL", "http://localhost:8092"),
		DocumentExporterURL:  getEnv("DOCUMENT_EXPORTER_URL", "http://localhost:8093"),
		AudioSynthesizerURL:  getEnv("AUDIO_SYNTHESIZER_URL", "http://localhost:8094"),
		ProviderTimeout:      time.Duration(getEnvInt("PROVIDER_TIMEOUT_MS", 120000)) * time.Millisecond,
		ProviderRetryDelay:   time.Duration(getEnvInt("PROVIDER_RETRY_DELAY_MS", 1000)) * time.Millisecond,
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
