// Package config provides configuration utilities for the application.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ExpandPath expands ~ and environment variables in a file path.
// It handles both ~ for home directory and $VAR style environment variables.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	// First expand tilde if present
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	// Then expand environment variables
	return os.ExpandEnv(path)
}

// LoadLLMSettings pulls the LLM provider settings from Viper with
// environment-variable fallbacks for the API key.
func LoadLLMSettings() (provider, apiKey, model string) {
	provider = viper.GetString("llm.provider")
	if provider == "" {
		provider = "openai"
	}
	model = viper.GetString("llm.model")

	apiKey = viper.GetString("llm.api_key")
	if apiKey == "" {
		switch provider {
		case "anthropic":
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		default:
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	return provider, apiKey, model
}
