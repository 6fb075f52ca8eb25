package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// LoadCredentials reads API_KEY (and GEMINI_API_KEY when needed) from the .env file at
// envPath, falling back to the process environment. The environment is never modified.
func (c *Config) LoadCredentials(envPath string) error {
	values := map[string]string{}
	if envPath != "" {
		read, err := godotenv.Read(envPath)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read %s: %w", envPath, err)
		}
		if read != nil {
			values = read
		}
	}

	lookup := func(key string) string {
		if v := strings.TrimSpace(values[key]); v != "" {
			return v
		}
		return strings.TrimSpace(os.Getenv(key))
	}

	c.OpenAI.APIKey = lookup("API_KEY")
	if c.OpenAI.APIKey == "" {
		return ErrMissingAPIKey
	}

	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = lookup("OPENAI_API_BASE")
	}

	if c.Response.Provider == "gemini" {
		c.Gemini.APIKey = lookup("GEMINI_API_KEY")
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY must be set when response provider is gemini")
		}
	}

	return nil
}
