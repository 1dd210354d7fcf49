package main

import (
	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

// envConfig is the typed environment surface, loaded with caarlos0/env the
// way BrunoKrugel-snapshot2stream configures its stream worker. godotenv
// populates the process environment from a local .env file first, if one
// is present, so this struct only needs to know about os.Environ.
type envConfig struct {
	Host           string `env:"OPENSENTRY_HOST" envDefault:"0.0.0.0"`
	Port           string `env:"OPENSENTRY_PORT" envDefault:"8080"`
	SettingsPath   string `env:"OPENSENTRY_SETTINGS_PATH" envDefault:"opensentry.json"`
	SessionSecret  string `env:"OPENSENTRY_SESSION_SECRET" envDefault:""`
	VideoDevice    string `env:"OPENSENTRY_VIDEO_DEVICE" envDefault:""`
	VideoIndex     int    `env:"OPENSENTRY_VIDEO_INDEX" envDefault:"0"`
	VideoWidth     int    `env:"OPENSENTRY_VIDEO_WIDTH" envDefault:"640"`
	VideoHeight    int    `env:"OPENSENTRY_VIDEO_HEIGHT" envDefault:"480"`
	VideoFPS       int    `env:"OPENSENTRY_VIDEO_FPS" envDefault:"15"`
	LogMaxBytes    int    `env:"OPENSENTRY_LOG_MAX_BYTES" envDefault:"1048576"`
	LogMaxLines    int    `env:"OPENSENTRY_LOG_MAX_LINES" envDefault:"10000"`
}

func loadEnvConfig() (envConfig, error) {
	_ = godotenv.Load()
	var cfg envConfig
	if err := env.Parse(&cfg); err != nil {
		return envConfig{}, err
	}
	return cfg, nil
}
