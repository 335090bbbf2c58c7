//go:build opus

package audio

import (
	"fmt"

	"github.com/hraban/opus"
	"github.com/wouk1805/prepgenius/internal/audio"
)

const (
	sampleRate = 48000
	channels   = 1
	// maxFrameSamples covers the longest Opus frame (120 ms).
	maxFrameSamples = sampleRate * 120 / 1000
)

type OpusDecoder struct {
	dec *opus.Decoder
	pcm []int16
}

func NewOpusDecoder() (audio.Decoder, error) {
	dec, err := opus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("create opus decoder: %w", err)
	}
	return &OpusDecoder{dec: dec, pcm: make([]int16, maxFrameSamples*channels)}, nil
}

func (d *OpusDecoder) DecodePacket(packet []byte) ([]byte, error) {
	if len(packet) == 0 {
		return nil, nil
	}
	n, err := d.dec.Decode(packet, d.pcm)
	if err != nil {
		return nil, fmt.Errorf("decode opus packet: %w", err)
	}
	return audio.EncodePCM16(d.pcm[:n*channels]), nil
}

func (d *OpusDecoder) SampleRate() int { return sampleRate }

func (d *OpusDecoder) Close() {
	d.pcm = nil
}
