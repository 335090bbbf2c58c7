package audio

import (
	"encoding/binary"
	"errors"
)

// ErrCodecUnavailable is returned by a DecoderFactory when the binary was
// built without the codec.
var ErrCodecUnavailable = errors.New("audio codec not available in this build")

// Decoder turns uplink packets from the candidate's microphone into 16-bit
// little-endian mono PCM.
type Decoder interface {
	DecodePacket(packet []byte) ([]byte, error)
	SampleRate() int
	Close()
}

type DecoderFactory func() (Decoder, error)

// PCMDecoder accepts packets that already carry 16-bit mono PCM.
type PCMDecoder struct {
	rate int
}

func NewPCMDecoder(sampleRate int) *PCMDecoder {
	return &PCMDecoder{rate: sampleRate}
}

func (d *PCMDecoder) DecodePacket(packet []byte) ([]byte, error) {
	if len(packet)%2 != 0 {
		return nil, errors.New("pcm packet has odd length")
	}
	out := make([]byte, len(packet))
	copy(out, packet)
	return out, nil
}

func (d *PCMDecoder) SampleRate() int { return d.rate }

func (d *PCMDecoder) Close() {}

// EncodePCM16 serializes samples as little-endian bytes.
func EncodePCM16(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
