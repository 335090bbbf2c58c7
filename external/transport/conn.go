package transport

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wouk1805/prepgenius/internal/audio"
	"github.com/wouk1805/prepgenius/internal/capture"
	"github.com/wouk1805/prepgenius/internal/voice"
)

const (
	writeTimeout       = 10 * time.Second
	playbackGrace      = 5 * time.Second
	speakTimeout       = 2 * time.Minute
	micChunkBufferSize = 256
)

var errConnectionClosed = errors.New("connection closed")

type wsConn interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// conn is one browser tab. Besides carrying commands it is the candidate's
// speaker, local speech engine and microphone for the session it starts.
type conn struct {
	ws       wsConn
	decoders audio.DecoderFactory

	writeMu sync.Mutex

	mu        sync.Mutex
	closed    bool
	done      chan struct{}
	nextID    int
	playbacks map[string]chan error
	speeches  map[string]chan error
	voices    []voice.LocalVoice
	mic       *micStream
}

func newConn(ws wsConn, decoders audio.DecoderFactory) *conn {
	return &conn{
		ws:        ws,
		decoders:  decoders,
		done:      make(chan struct{}),
		playbacks: make(map[string]chan error),
		speeches:  make(map[string]chan error),
	}
}

func (c *conn) writeJSON(msg serverMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", msg.Type, err)
	}
	return c.write(websocket.TextMessage, b)
}

func (c *conn) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteMessage(messageType, data)
}

func (c *conn) newIDLocked(prefix string) string {
	c.nextID++
	return prefix + "_" + strconv.Itoa(c.nextID)
}

// Play sends the buffer as a binary frame of little-endian float32 samples
// and waits for the client to report the end of playback.
func (c *conn) Play(ctx context.Context, buf voice.Buffer) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errConnectionClosed
	}
	id := c.newIDLocked("play")
	done := make(chan error, 1)
	c.playbacks[id] = done
	c.mu.Unlock()
	defer c.forget(c.playbacks, id)

	if err := c.writeJSON(serverMessage{Type: msgPlay, PlaybackID: id, SampleRate: buf.SampleRate, Samples: len(buf.Samples)}); err != nil {
		return err
	}
	if err := c.write(websocket.BinaryMessage, encodeFloat32(buf.Samples)); err != nil {
		return err
	}

	limit := playbackGrace
	if buf.SampleRate > 0 {
		limit += time.Duration(len(buf.Samples)) * time.Second / time.Duration(buf.SampleRate)
	}
	return c.await(ctx, done, limit)
}

func (c *conn) Stop() {
	if err := c.writeJSON(serverMessage{Type: msgStopPlayback}); err != nil {
		slog.Debug("failed to send stop playback", "error", err)
	}
}

// Voices returns the device voices the client announced.
func (c *conn) Voices(context.Context) ([]voice.LocalVoice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.voices) == 0 {
		return nil, errors.New("client announced no local voices")
	}
	return append([]voice.LocalVoice(nil), c.voices...), nil
}

func (c *conn) Speak(ctx context.Context, text string, v voice.LocalVoice, lang string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errConnectionClosed
	}
	id := c.newIDLocked("speak")
	done := make(chan error, 1)
	c.speeches[id] = done
	c.mu.Unlock()
	defer c.forget(c.speeches, id)

	if err := c.writeJSON(serverMessage{Type: msgSpeak, SpeakID: id, Text: text, Voice: &v, Lang: lang}); err != nil {
		return err
	}
	return c.await(ctx, done, speakTimeout)
}

func (c *conn) Cancel() {
	if err := c.writeJSON(serverMessage{Type: msgCancelSpeech}); err != nil {
		slog.Debug("failed to send cancel speech", "error", err)
	}
}

func (c *conn) await(ctx context.Context, done <-chan error, limit time.Duration) error {
	timer := time.NewTimer(limit)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return errConnectionClosed
	case <-timer.C:
		return fmt.Errorf("client did not confirm within %s", limit)
	}
}

func (c *conn) forget(pending map[string]chan error, id string) {
	c.mu.Lock()
	delete(pending, id)
	c.mu.Unlock()
}

// resolve completes a pending playback or utterance reported by the client.
func (c *conn) resolve(pending map[string]chan error, id, errMsg string) {
	c.mu.Lock()
	done, ok := pending[id]
	c.mu.Unlock()
	if !ok {
		return
	}
	var err error
	if errMsg != "" {
		err = errors.New(errMsg)
	}
	select {
	case done <- err:
	default:
	}
}

func (c *conn) setVoices(voices []voice.LocalVoice) {
	c.mu.Lock()
	c.voices = append([]voice.LocalVoice(nil), voices...)
	c.mu.Unlock()
}

// Open starts routing binary client frames into a new stream.
func (c *conn) Open(context.Context) (capture.Stream, error) {
	dec, err := c.decoders()
	if err != nil {
		return nil, fmt.Errorf("create uplink decoder: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		dec.Close()
		return nil, errConnectionClosed
	}
	if c.mic != nil {
		dec.Close()
		return nil, capture.ErrAlreadyRecording
	}
	stream := &micStream{
		owner:   c,
		decoder: dec,
		chunks:  make(chan []byte, micChunkBufferSize),
	}
	c.mic = stream
	return stream, nil
}

func (c *conn) handleAudio(packet []byte) {
	c.mu.Lock()
	stream := c.mic
	c.mu.Unlock()
	if stream == nil {
		return
	}
	stream.push(packet)
}

func (c *conn) releaseMic(stream *micStream) {
	c.mu.Lock()
	if c.mic == stream {
		c.mic = nil
	}
	c.mu.Unlock()
}

func (c *conn) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	stream := c.mic
	close(c.done)
	c.mu.Unlock()
	if stream != nil {
		_ = stream.Close()
	}
	_ = c.ws.Close()
}

type micStream struct {
	owner   *conn
	decoder audio.Decoder

	mu     sync.Mutex
	closed bool
	chunks chan []byte
}

func (s *micStream) Chunks() <-chan []byte { return s.chunks }

func (s *micStream) SampleRate() int { return s.decoder.SampleRate() }

func (s *micStream) push(packet []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	pcm, err := s.decoder.DecodePacket(packet)
	if err != nil {
		slog.Warn("failed to decode microphone packet", "error", err, "bytes", len(packet))
		return
	}
	select {
	case s.chunks <- pcm:
	default:
		slog.Warn("dropping microphone chunk; recorder is not keeping up", "bytes", len(pcm))
	}
}

func (s *micStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.chunks)
	s.decoder.Close()
	s.mu.Unlock()
	s.owner.releaseMic(s)
	return nil
}

func encodeFloat32(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, v := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}
