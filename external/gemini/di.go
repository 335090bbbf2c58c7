package gemini

import (
	"context"

	"github.com/samber/do/v2"
	"github.com/wouk1805/prepgenius/internal/config"
	"github.com/wouk1805/prepgenius/internal/feedback"
	"github.com/wouk1805/prepgenius/internal/questioner"
	"github.com/wouk1805/prepgenius/internal/voice"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Client, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewClient(context.Background(), Config{
			APIKey:     c.GeminiAPIKey,
			BaseURL:    c.GeminiBaseURL,
			FlashModel: c.GeminiFlashModel,
			ProModel:   c.GeminiProModel,
			TTSModel:   c.GeminiTTSModel,
		})
	})
	do.Provide(injector, func(i do.Injector) (questioner.Generator, error) {
		return do.MustInvoke[*Client](i), nil
	})
	do.Provide(injector, func(i do.Injector) (feedback.Generator, error) {
		return do.MustInvoke[*Client](i), nil
	})
	do.Provide(injector, func(i do.Injector) (voice.Synthesizer, error) {
		return do.MustInvoke[*Client](i), nil
	})
}
