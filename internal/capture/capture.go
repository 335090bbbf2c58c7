package capture

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	MinDuration  = 500 * time.Millisecond
	MinClipBytes = 1000

	WAVMimeType = "audio/wav"
)

var (
	ErrTooShort         = errors.New("recording too short")
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrNotRecording     = errors.New("no recording in progress")
)

// Stream delivers 16-bit little-endian mono PCM chunks until it is closed.
type Stream interface {
	Chunks() <-chan []byte
	SampleRate() int
	Close() error
}

// Microphone is exclusively owned by one recording at a time.
type Microphone interface {
	Open(ctx context.Context) (Stream, error)
}

type Clip struct {
	Audio    []byte
	MIMEType string
	Duration time.Duration
	// PCMBytes is the size of the raw sample payload without the WAV header.
	PCMBytes int
}

type Recorder struct {
	mic Microphone
	now func() time.Time

	mu        sync.Mutex
	stream    Stream
	startedAt time.Time
	buf       *bytes.Buffer
	drained   chan struct{}
}

func NewRecorder(mic Microphone) *Recorder {
	return &Recorder{mic: mic, now: time.Now}
}

func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stream != nil
}

func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stream != nil {
		return ErrAlreadyRecording
	}
	stream, err := r.mic.Open(ctx)
	if err != nil {
		return fmt.Errorf("open microphone: %w", err)
	}
	buf := &bytes.Buffer{}
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for chunk := range stream.Chunks() {
			buf.Write(chunk)
		}
	}()
	r.stream = stream
	r.startedAt = r.now()
	r.buf = buf
	r.drained = drained
	slog.Debug("recording started", "sample_rate", stream.SampleRate())
	return nil
}

// Stop finalizes the recording. Clips shorter than MinDuration or smaller
// than MinClipBytes are rejected with ErrTooShort.
func (r *Recorder) Stop() (*Clip, error) {
	r.mu.Lock()
	stream, buf, drained, startedAt := r.stream, r.buf, r.drained, r.startedAt
	r.stream, r.buf, r.drained = nil, nil, nil
	r.mu.Unlock()
	if stream == nil {
		return nil, ErrNotRecording
	}

	elapsed := r.now().Sub(startedAt)
	if err := stream.Close(); err != nil {
		slog.Warn("failed to close microphone stream", "error", err)
	}
	<-drained

	pcm := buf.Bytes()
	if elapsed < MinDuration || len(pcm) < MinClipBytes {
		slog.Info("recording rejected as too short", "elapsed_ms", elapsed.Milliseconds(), "bytes", len(pcm))
		return nil, fmt.Errorf("%w: %s, %d bytes", ErrTooShort, elapsed.Round(time.Millisecond), len(pcm))
	}
	return &Clip{
		Audio:    EncodeWAV(pcm, stream.SampleRate()),
		MIMEType: WAVMimeType,
		Duration: elapsed,
		PCMBytes: len(pcm),
	}, nil
}

// Cancel releases the microphone and discards buffered audio.
func (r *Recorder) Cancel() {
	r.mu.Lock()
	stream, drained := r.stream, r.drained
	r.stream, r.buf, r.drained = nil, nil, nil
	r.mu.Unlock()
	if stream == nil {
		return
	}
	_ = stream.Close()
	<-drained
}

// EncodeWAV wraps 16-bit mono PCM in a canonical RIFF header.
func EncodeWAV(pcm []byte, sampleRate int) []byte {
	const (
		headerSize    = 44
		channels      = 1
		bitsPerSample = 16
	)
	out := make([]byte, headerSize+len(pcm))
	copy(out[0:], "RIFF")
	binary.LittleEndian.PutUint32(out[4:], uint32(36+len(pcm)))
	copy(out[8:], "WAVE")
	copy(out[12:], "fmt ")
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 1)
	binary.LittleEndian.PutUint16(out[22:], channels)
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(sampleRate*channels*bitsPerSample/8))
	binary.LittleEndian.PutUint16(out[32:], channels*bitsPerSample/8)
	binary.LittleEndian.PutUint16(out[34:], bitsPerSample)
	copy(out[36:], "data")
	binary.LittleEndian.PutUint32(out[40:], uint32(len(pcm)))
	copy(out[headerSize:], pcm)
	return out
}
