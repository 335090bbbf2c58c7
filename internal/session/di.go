package session

import (
	"github.com/samber/do/v2"
	"github.com/wouk1805/prepgenius/internal/config"
	"github.com/wouk1805/prepgenius/internal/discord"
	"github.com/wouk1805/prepgenius/internal/feedback"
	"github.com/wouk1805/prepgenius/internal/questioner"
	"github.com/wouk1805/prepgenius/internal/repository"
	"github.com/wouk1805/prepgenius/internal/transcriber"
	"github.com/wouk1805/prepgenius/internal/voice"
	"github.com/wouk1805/prepgenius/internal/webhook"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Manager, error) {
		cfg := do.MustInvoke[*config.Config](i)
		questions := do.MustInvoke[questioner.Generator](i)
		stt := do.MustInvoke[transcriber.Transcriber](i)
		synth := do.MustInvoke[voice.Synthesizer](i)
		aggregator := feedback.NewAggregator(do.MustInvoke[feedback.Generator](i))
		repo := do.MustInvoke[repository.Repository](i)
		wh := do.MustInvoke[webhook.Sender](i)
		dc := do.MustInvoke[discord.Client](i)
		return NewManager(cfg, questions, stt, synth, aggregator, repo, wh, dc), nil
	})
}
