//go:build !opus

package audio

import "github.com/wouk1805/prepgenius/internal/audio"

func NewOpusDecoder() (audio.Decoder, error) {
	return nil, audio.ErrCodecUnavailable
}
