package config

import (
	"fmt"
	"time"
)

const (
	TranscriberBackendGemini      = "gemini"
	TranscriberBackendCloudSpeech = "cloudspeech"

	UplinkCodecPCM  = "pcm"
	UplinkCodecOpus = "opus"
)

type Config struct {
	Env                        string
	ListenAddr                 string
	DefaultLanguage            string
	DefaultVoiceEngine         string
	OracleTimeoutSec           int
	GeminiAPIKey               string
	GeminiBaseURL              string
	GeminiFlashModel           string
	GeminiProModel             string
	GeminiTTSModel             string
	TranscriberBackend         string
	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string
	UplinkCodec                string
	DatabaseURL                string
	ReportWebhookURL           string
	DiscordToken               string
	DiscordReportChannelID     string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if c.OracleTimeoutSec <= 0 {
		return fmt.Errorf("ORACLE_TIMEOUT_SEC must be positive, got %d", c.OracleTimeoutSec)
	}
	switch c.TranscriberBackend {
	case TranscriberBackendGemini:
	case TranscriberBackendCloudSpeech:
		if c.GoogleCloudProjectID == "" || c.GoogleCloudCredentialsJSON == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT_ID and GOOGLE_CLOUD_CREDENTIALS_JSON are required when TRANSCRIBER_BACKEND=%s", TranscriberBackendCloudSpeech)
		}
	default:
		return fmt.Errorf("TRANSCRIBER_BACKEND must be %q or %q, got %q", TranscriberBackendGemini, TranscriberBackendCloudSpeech, c.TranscriberBackend)
	}
	if c.UplinkCodec != UplinkCodecPCM && c.UplinkCodec != UplinkCodecOpus {
		return fmt.Errorf("UPLINK_CODEC must be %q or %q, got %q", UplinkCodecPCM, UplinkCodecOpus, c.UplinkCodec)
	}
	if c.DiscordToken != "" && c.DiscordReportChannelID == "" {
		return fmt.Errorf("DISCORD_REPORT_CHANNEL_ID is required when DISCORD_TOKEN is set")
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "LISTEN_ADDR", value: c.ListenAddr},
		{name: "DEFAULT_LANGUAGE", value: c.DefaultLanguage},
		{name: "GEMINI_API_KEY", value: c.GeminiAPIKey},
		{name: "GEMINI_FLASH_MODEL", value: c.GeminiFlashModel},
		{name: "GEMINI_PRO_MODEL", value: c.GeminiProModel},
		{name: "GEMINI_TTS_MODEL", value: c.GeminiTTSModel},
		{name: "DATABASE_URL", value: c.DatabaseURL},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) OracleTimeout() time.Duration {
	return time.Duration(c.OracleTimeoutSec) * time.Second
}
