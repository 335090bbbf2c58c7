package discord

import (
	"fmt"
	"log/slog"

	"github.com/samber/do/v2"
	"github.com/wouk1805/prepgenius/internal/config"
	discordpkg "github.com/wouk1805/prepgenius/internal/discord"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (discordpkg.Client, error) {
		c := do.MustInvoke[*config.Config](i)
		client, err := NewClient(c.DiscordToken)
		if err != nil {
			return nil, err
		}
		if !client.Enabled() {
			slog.Info("discord report delivery disabled")
			return client, nil
		}
		name, err := client.ChannelName(c.DiscordReportChannelID)
		if err != nil {
			return nil, fmt.Errorf("resolve discord report channel: %w", err)
		}
		slog.Info("discord report delivery enabled", "channel_id", c.DiscordReportChannelID, "channel_name", name)
		return client, nil
	})
}
