// config.go
package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings is the YAML configuration. Everything has a workable default so
// the tool runs with no settings file at all; only the category list and
// base URL are deployment-specific.
type Settings struct {
	// BaseURL is the help-center API root, e.g.
	// "https://support.example.com/api/v2/help_center/en-us".
	BaseURL string `yaml:"base_url"`
	// CategoryIDs are the top-level collections to mirror.
	CategoryIDs []int64 `yaml:"category_ids"`

	DataDirectory string `yaml:"data_directory"`
	LogDirectory  string `yaml:"log_directory"`

	VectorStoreName string `yaml:"vector_store_name"`
	UploadPurpose   string `yaml:"upload_purpose"`
	MaxUploads      int    `yaml:"max_uploads"`

	// Fan-out caps for the two enumeration depths; the category cap
	// should stay below the section cap.
	CategoryConcurrency int `yaml:"category_concurrency"`
	SectionConcurrency  int `yaml:"section_concurrency"`

	LogLevel string `yaml:"log_level"`
}

func defaultSettings() *Settings {
	return &Settings{
		DataDirectory:       "articles",
		LogDirectory:        "logs",
		VectorStoreName:     "support-articles",
		UploadPurpose:       "assistants",
		CategoryConcurrency: 5,
		SectionConcurrency:  15,
		LogLevel:            "info",
	}
}

// loadSettings reads the YAML settings file, falling back to defaults when
// the file does not exist. A present-but-unparseable file is an error; a
// silently ignored typo'd config is worse than a failed start.
func loadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultSettings(), nil
		}
		return nil, fmt.Errorf("reading settings file %s: %w", path, err)
	}

	settings := defaultSettings()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parsing settings YAML: %w", err)
	}

	if settings.CategoryConcurrency < 1 {
		settings.CategoryConcurrency = 1
	}
	if settings.SectionConcurrency < 1 {
		settings.SectionConcurrency = 1
	}
	return settings, nil
}
