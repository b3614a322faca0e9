package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	HTTPClient HTTPClientConfig `yaml:"http_client"`
	Database   DatabaseConfig   `yaml:"database"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	ImageGen   ImageGenConfig   `yaml:"image_gen"`
	Storage    StorageConfig    `yaml:"storage"`
	Template   TemplateConfig   `yaml:"template"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
}

type ServerConfig struct {
	Addr                string `yaml:"addr"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type HTTPClientConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
	MaxRetries     int `yaml:"max_retries"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type ImageGenConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type StorageConfig struct {
	BasePath string `yaml:"base_path"`
}

// TemplateConfig locates the deck template and carries the layout fallback
// indexes, which are template-specific and must stay tunable.
type TemplateConfig struct {
	Path               string `yaml:"path"`
	TOCLayoutIndex     int    `yaml:"toc_layout_index"`
	DefaultLayoutIndex int    `yaml:"default_layout_index"`
	TOCMaxSections     int    `yaml:"toc_max_sections"`
}

type PipelineConfig struct {
	ImageWorkers           int     `yaml:"image_workers"`
	ImageRetries           int     `yaml:"image_retries"`
	ImageBatchTimeoutSecs  int     `yaml:"image_batch_timeout_seconds"`
	ImageRatePerSecond     float64 `yaml:"image_rate_per_second"`
	TargetSlideCount       int     `yaml:"target_slide_count"`
	PreviewEnabled         bool    `yaml:"preview_enabled"`
	StepTimeoutSeconds     int     `yaml:"step_timeout_seconds"`
	ResearchTimeoutSeconds int     `yaml:"research_timeout_seconds"`
}

func Load() (*Config, error) {
	cfg := defaultConfig()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return applyEnvOverrides(cfg), nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return applyEnvOverrides(cfg), nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:                ":8080",
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 120,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		HTTPClient: HTTPClientConfig{
			TimeoutSeconds: 60,
			MaxRetries:     2,
		},
		Database: DatabaseConfig{
			Path: "./data/presentations.db",
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.5-flash",
		},
		ImageGen: ImageGenConfig{
			Model: "gemini-2.0-flash-exp-image-generation",
		},
		Storage: StorageConfig{
			BasePath: "./output",
		},
		Template: TemplateConfig{
			Path:               "./templates/default.pptx",
			TOCLayoutIndex:     26,
			DefaultLayoutIndex: 1,
			TOCMaxSections:     8,
		},
		Pipeline: PipelineConfig{
			ImageWorkers:           3,
			ImageRetries:           2,
			ImageBatchTimeoutSecs:  300,
			ImageRatePerSecond:     2,
			TargetSlideCount:       10,
			PreviewEnabled:         true,
			StepTimeoutSeconds:     600,
			ResearchTimeoutSeconds: 300,
		},
	}
}

func applyEnvOverrides(cfg *Config) *Config {
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.Gemini.Model = v
	}
	if v := os.Getenv("IMAGEGEN_API_KEY"); v != "" {
		cfg.ImageGen.APIKey = v
	}
	if v := os.Getenv("IMAGEGEN_MODEL"); v != "" {
		cfg.ImageGen.Model = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("STORAGE_BASE_PATH"); v != "" {
		cfg.Storage.BasePath = v
	}
	if v := os.Getenv("TEMPLATE_PATH"); v != "" {
		cfg.Template.Path = v
	}
	if v := os.Getenv("IMAGE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Pipeline.ImageWorkers = n
		}
	}
	return cfg
}
