package transport

import (
	"github.com/samber/do/v2"
	"github.com/wouk1805/prepgenius/internal/audio"
	"github.com/wouk1805/prepgenius/internal/config"
	"github.com/wouk1805/prepgenius/internal/session"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		c := do.MustInvoke[*config.Config](i)
		manager := do.MustInvoke[*session.Manager](i)
		decoders := do.MustInvoke[audio.DecoderFactory](i)
		return NewServer(c.ListenAddr, manager, decoders), nil
	})
}
