package voice

import (
	"context"
	"encoding/binary"
	"errors"

	"github.com/wouk1805/prepgenius/internal/interview"
)

// PCMSampleRate is the rate of the audio returned by the generative engine.
const PCMSampleRate = 24000

type Engine string

const (
	EngineGenerative Engine = "generative"
	EngineLocal      Engine = "local"
)

func ParseEngine(s string) Engine {
	switch s {
	case string(EngineLocal), "browser", "device":
		return EngineLocal
	default:
		return EngineGenerative
	}
}

// ErrQuotaExhausted is returned by a Synthesizer when the remote service
// refuses work because of rate limits or quota.
var ErrQuotaExhausted = errors.New("synthesis quota exhausted")

// Synthesizer returns 24 kHz 16-bit little-endian mono PCM.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice interview.VoiceParameters) ([]byte, error)
}

type Buffer struct {
	Samples    []float32
	SampleRate int
}

// AudioSink plays decoded audio. Play blocks until playback finishes or ctx
// is done; a new Play replaces whatever was playing.
type AudioSink interface {
	Play(ctx context.Context, buf Buffer) error
	Stop()
}

type LocalVoice struct {
	Name  string `json:"name"`
	Lang  string `json:"lang"`
	Local bool   `json:"local"`
}

// LocalSpeaker drives on-device speech. Speak returns once the utterance has
// been spoken, so synthesis and playback are the same call.
type LocalSpeaker interface {
	Voices(ctx context.Context) ([]LocalVoice, error)
	Speak(ctx context.Context, text string, voice LocalVoice, lang string) error
	Cancel()
}

// DecodePCM16 converts little-endian signed 16-bit samples to floats in
// [-1, 1). A trailing odd byte is ignored.
func DecodePCM16(pcm []byte) []float32 {
	out := make([]float32, len(pcm)/2)
	for i := range out {
		out[i] = float32(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768
	}
	return out
}
