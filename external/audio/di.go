package audio

import (
	"fmt"

	"github.com/samber/do/v2"
	"github.com/wouk1805/prepgenius/internal/audio"
	"github.com/wouk1805/prepgenius/internal/config"
)

// pcmUplinkRate is the sample rate clients use when streaming raw PCM.
const pcmUplinkRate = 16000

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (audio.DecoderFactory, error) {
		cfg := do.MustInvoke[*config.Config](i)
		factory := NewDecoderFactory(cfg.UplinkCodec)
		probe, err := factory()
		if err != nil {
			return nil, fmt.Errorf("uplink codec %q: %w", cfg.UplinkCodec, err)
		}
		probe.Close()
		return factory, nil
	})
}

func NewDecoderFactory(codec string) audio.DecoderFactory {
	if codec == config.UplinkCodecOpus {
		return NewOpusDecoder
	}
	return func() (audio.Decoder, error) {
		return audio.NewPCMDecoder(pcmUplinkRate), nil
	}
}
