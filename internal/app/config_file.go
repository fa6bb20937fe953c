package app

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfigFile merges a YAML config file over the defaults. A missing
// path returns the defaults untouched.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv fills credentials from the environment where the config file
// left them empty. Missing keys degrade the matching probe or audit;
// they never abort a run.
func (c *Config) ApplyEnv() {
	setIfEmpty := func(dst *string, key string) {
		if *dst == "" {
			*dst = os.Getenv(key)
		}
	}
	setIfEmpty(&c.Gemini.APIKey, "GEMINI_API_KEY")
	setIfEmpty(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	setIfEmpty(&c.ScreenshotOneKey, "SCREENSHOTONE_API_KEY")
	setIfEmpty(&c.SerpAPIKey, "SERPAPI_KEY")
	setIfEmpty(&c.DataForSEOLogin, "DATAFORSEO_LOGIN")
	setIfEmpty(&c.DataForSEOPassword, "DATAFORSEO_PASSWORD")
	setIfEmpty(&c.PSIKey, "PSI_API_KEY")
}
