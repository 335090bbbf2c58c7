package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	internalconfig "github.com/wouk1805/prepgenius/internal/config"
)

type envConfig struct {
	Env                        string `env:"ENV" envDefault:"production"`
	ListenAddr                 string `env:"LISTEN_ADDR" envDefault:":8080"`
	DefaultLanguage            string `env:"DEFAULT_LANGUAGE" envDefault:"en"`
	DefaultVoiceEngine         string `env:"DEFAULT_VOICE_ENGINE" envDefault:"generative"`
	OracleTimeoutSec           int    `env:"ORACLE_TIMEOUT_SEC" envDefault:"60"`
	GeminiAPIKey               string `env:"GEMINI_API_KEY,required"`
	GeminiBaseURL              string `env:"GEMINI_BASE_URL"`
	GeminiFlashModel           string `env:"GEMINI_FLASH_MODEL" envDefault:"gemini-3-flash-preview"`
	GeminiProModel             string `env:"GEMINI_PRO_MODEL" envDefault:"gemini-3-pro-preview"`
	GeminiTTSModel             string `env:"GEMINI_TTS_MODEL" envDefault:"gemini-2.5-flash-preview-tts"`
	TranscriberBackend         string `env:"TRANSCRIBER_BACKEND" envDefault:"gemini"`
	GoogleCloudProjectID       string `env:"GOOGLE_CLOUD_PROJECT_ID"`
	GoogleCloudCredentialsJSON string `env:"GOOGLE_CLOUD_CREDENTIALS_JSON"`
	GoogleCloudSpeechLocation  string `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"global"`
	GoogleCloudSpeechModel     string `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"chirp_3"`
	UplinkCodec                string `env:"UPLINK_CODEC" envDefault:"pcm"`
	DatabaseURL                string `env:"DATABASE_URL,required"`
	ReportWebhookURL           string `env:"REPORT_WEBHOOK_URL"`
	DiscordToken               string `env:"DISCORD_TOKEN"`
	DiscordReportChannelID     string `env:"DISCORD_REPORT_CHANNEL_ID"`
}

// Load reads an optional .env file, then the process environment.
// Variables already set in the environment win over the file.
func Load() (*internalconfig.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}

	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                        raw.Env,
		ListenAddr:                 raw.ListenAddr,
		DefaultLanguage:            raw.DefaultLanguage,
		DefaultVoiceEngine:         raw.DefaultVoiceEngine,
		OracleTimeoutSec:           raw.OracleTimeoutSec,
		GeminiAPIKey:               raw.GeminiAPIKey,
		GeminiBaseURL:              raw.GeminiBaseURL,
		GeminiFlashModel:           raw.GeminiFlashModel,
		GeminiProModel:             raw.GeminiProModel,
		GeminiTTSModel:             raw.GeminiTTSModel,
		TranscriberBackend:         raw.TranscriberBackend,
		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:  raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:     raw.GoogleCloudSpeechModel,
		UplinkCodec:                raw.UplinkCodec,
		DatabaseURL:                raw.DatabaseURL,
		ReportWebhookURL:           raw.ReportWebhookURL,
		DiscordToken:               raw.DiscordToken,
		DiscordReportChannelID:     raw.DiscordReportChannelID,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
