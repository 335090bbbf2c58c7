package transport

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wouk1805/prepgenius/internal/audio"
	"github.com/wouk1805/prepgenius/internal/capture"
	"github.com/wouk1805/prepgenius/internal/voice"
)

type recordedWrite struct {
	messageType int
	data        []byte
}

type fakeWS struct {
	mu     sync.Mutex
	writes []recordedWrite
	wrote  chan struct{}
}

func newFakeWS() *fakeWS {
	return &fakeWS{wrote: make(chan struct{}, 64)}
}

func (f *fakeWS) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeWS) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	f.writes = append(f.writes, recordedWrite{messageType: messageType, data: append([]byte(nil), data...)})
	f.mu.Unlock()
	f.wrote <- struct{}{}
	return nil
}

func (f *fakeWS) ReadMessage() (int, []byte, error) {
	return 0, nil, errors.New("not readable")
}

func (f *fakeWS) Close() error { return nil }

func (f *fakeWS) snapshot() []recordedWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedWrite(nil), f.writes...)
}

func (f *fakeWS) waitWrites(t *testing.T, n int) []recordedWrite {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-f.wrote:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for write %d", i+1)
		}
	}
	return f.snapshot()
}

func decodeServerMessage(t *testing.T, w recordedWrite) serverMessage {
	t.Helper()
	if w.messageType != websocket.TextMessage {
		t.Fatalf("expected text frame, got %d", w.messageType)
	}
	var msg serverMessage
	if err := json.Unmarshal(w.data, &msg); err != nil {
		t.Fatalf("decode server message: %v", err)
	}
	return msg
}

func TestConnPlay_WaitsForClient(t *testing.T) {
	ws := newFakeWS()
	c := newConn(ws, pcmDecoders())

	done := make(chan error, 1)
	go func() {
		done <- c.Play(context.Background(), voice.Buffer{Samples: []float32{0.5, -0.25}, SampleRate: 24000})
	}()

	writes := ws.waitWrites(t, 2)
	header := decodeServerMessage(t, writes[0])
	if header.Type != msgPlay || header.SampleRate != 24000 || header.Samples != 2 {
		t.Fatalf("unexpected play header: %+v", header)
	}
	if writes[1].messageType != websocket.BinaryMessage || len(writes[1].data) != 8 {
		t.Fatalf("unexpected audio frame: %+v", writes[1])
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(writes[1].data[4:])); got != -0.25 {
		t.Fatalf("unexpected second sample: %v", got)
	}

	c.resolve(c.playbacks, header.PlaybackID, "")
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("play did not return")
	}
}

func TestConnPlay_CancelledByContext(t *testing.T) {
	ws := newFakeWS()
	c := newConn(ws, pcmDecoders())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- c.Play(ctx, voice.Buffer{Samples: make([]float32, 24000), SampleRate: 24000})
	}()
	ws.waitWrites(t, 2)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context cancellation, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("play did not return")
	}
}

func TestConnSpeak_ReportsClientError(t *testing.T) {
	ws := newFakeWS()
	c := newConn(ws, pcmDecoders())
	c.setVoices([]voice.LocalVoice{{Name: "Amelie", Lang: "fr-FR", Local: true}})

	voices, err := c.Voices(context.Background())
	if err != nil || len(voices) != 1 {
		t.Fatalf("unexpected voices: %v %v", voices, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- c.Speak(context.Background(), "Bonjour", voices[0], "fr-FR")
	}()
	msg := decodeServerMessage(t, ws.waitWrites(t, 1)[0])
	if msg.Type != msgSpeak || msg.Text != "Bonjour" || msg.Voice == nil || msg.Voice.Name != "Amelie" {
		t.Fatalf("unexpected speak message: %+v", msg)
	}

	c.resolve(c.speeches, msg.SpeakID, "synthesis-failed")
	select {
	case err := <-done:
		if err == nil || err.Error() != "synthesis-failed" {
			t.Fatalf("expected client error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("speak did not return")
	}
}

func TestConnVoices_EmptyIsError(t *testing.T) {
	c := newConn(newFakeWS(), pcmDecoders())
	if _, err := c.Voices(context.Background()); err == nil {
		t.Fatal("expected error without announced voices")
	}
}

func TestConnMicrophone_RoutesBinaryFrames(t *testing.T) {
	c := newConn(newFakeWS(), pcmDecoders())

	stream, err := c.Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if stream.SampleRate() != 16000 {
		t.Fatalf("unexpected sample rate: %d", stream.SampleRate())
	}
	if _, err := c.Open(context.Background()); !errors.Is(err, capture.ErrAlreadyRecording) {
		t.Fatalf("expected exclusive microphone, got %v", err)
	}

	c.handleAudio([]byte{1, 2, 3, 4})
	c.handleAudio([]byte{5})
	if err := stream.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var got []byte
	for chunk := range stream.Chunks() {
		got = append(got, chunk...)
	}
	if string(got) != string([]byte{1, 2, 3, 4}) {
		t.Fatalf("unexpected pcm: %v", got)
	}

	c.handleAudio([]byte{9, 9})
	if _, err := c.Open(context.Background()); err != nil {
		t.Fatalf("expected microphone to be free after close: %v", err)
	}
}

func TestConnMicrophone_DecoderUnavailable(t *testing.T) {
	c := newConn(newFakeWS(), func() (audio.Decoder, error) {
		return nil, audio.ErrCodecUnavailable
	})
	if _, err := c.Open(context.Background()); !errors.Is(err, audio.ErrCodecUnavailable) {
		t.Fatalf("expected codec error, got %v", err)
	}
}

func TestConnClose_UnblocksPendingPlayback(t *testing.T) {
	ws := newFakeWS()
	c := newConn(ws, pcmDecoders())

	done := make(chan error, 1)
	go func() {
		done <- c.Play(context.Background(), voice.Buffer{Samples: []float32{0}, SampleRate: 24000})
	}()
	ws.waitWrites(t, 2)
	c.close()

	select {
	case err := <-done:
		if !errors.Is(err, errConnectionClosed) {
			t.Fatalf("expected closed connection error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("play did not return")
	}
	if err := c.Play(context.Background(), voice.Buffer{}); !errors.Is(err, errConnectionClosed) {
		t.Fatalf("expected closed connection error, got %v", err)
	}
}
