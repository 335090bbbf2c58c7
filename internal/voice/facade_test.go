package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wouk1805/prepgenius/internal/interview"
)

type mockSynthesizer struct {
	mu    sync.Mutex
	calls int
	pcm   []byte
	err   error
	block chan struct{}
}

func (m *mockSynthesizer) Synthesize(ctx context.Context, _ string, _ interview.VoiceParameters) ([]byte, error) {
	m.mu.Lock()
	m.calls++
	block, pcm, err := m.block, m.pcm, m.err
	m.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return pcm, err
}

func (m *mockSynthesizer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockSink struct {
	mu     sync.Mutex
	played []Buffer
	stops  int
}

func (s *mockSink) Play(ctx context.Context, buf Buffer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.played = append(s.played, buf)
	return nil
}

func (s *mockSink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
}

func (s *mockSink) playCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.played)
}

type mockSpeaker struct {
	mu      sync.Mutex
	voices  []LocalVoice
	spoken  []string
	used    []LocalVoice
	cancels int
}

func (s *mockSpeaker) Voices(_ context.Context) ([]LocalVoice, error) { return s.voices, nil }

func (s *mockSpeaker) Speak(_ context.Context, text string, v LocalVoice, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, text)
	s.used = append(s.used, v)
	return nil
}

func (s *mockSpeaker) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels++
}

func TestDecodePCM16(t *testing.T) {
	got := DecodePCM16([]byte{0x00, 0x00, 0x00, 0x40, 0x00, 0x80, 0xff, 0x7f, 0x01})
	want := []float32{0, 0.5, -1, 32767.0 / 32768}
	if len(got) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFacade_GenerativePlaysDecodedAudio(t *testing.T) {
	synth := &mockSynthesizer{pcm: []byte{0x00, 0x40, 0x00, 0xc0}}
	sink := &mockSink{}
	f := NewFacade(synth, &mockSpeaker{}, sink, interview.LanguageEnglish, EngineGenerative)

	res, err := f.SynthesizeAndSpeak(context.Background(), "Hello", interview.DefaultVoice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Engine != EngineGenerative || res.FallbackActivated {
		t.Fatalf("unexpected result: %+v", res)
	}
	if sink.playCount() != 1 || sink.played[0].SampleRate != PCMSampleRate || len(sink.played[0].Samples) != 2 {
		t.Fatalf("unexpected playback: %+v", sink.played)
	}
	if f.Busy() {
		t.Fatal("expected facade to be idle after playback")
	}
}

func TestFacade_QuotaFallbackNotifiesOnce(t *testing.T) {
	synth := &mockSynthesizer{err: ErrQuotaExhausted}
	speaker := &mockSpeaker{}
	f := NewFacade(synth, speaker, &mockSink{}, interview.LanguageEnglish, EngineGenerative)

	notifications := 0
	for i := 0; i < 4; i++ {
		res, err := f.SynthesizeAndSpeak(context.Background(), "Question", interview.DefaultVoice)
		if err != nil {
			t.Fatalf("turn %d: unexpected error: %v", i, err)
		}
		if res.Engine != EngineLocal {
			t.Fatalf("turn %d: expected local engine, got %s", i, res.Engine)
		}
		if res.FallbackActivated {
			notifications++
		}
	}
	if notifications != 1 {
		t.Fatalf("expected exactly one notification, got %d", notifications)
	}
	if synth.callCount() != 1 {
		t.Fatalf("expected remote to be skipped after fallback, got %d calls", synth.callCount())
	}
	if len(speaker.spoken) != 4 {
		t.Fatalf("expected every line spoken locally, got %d", len(speaker.spoken))
	}
	if !f.UsingFallback() || f.ActiveEngine() != EngineLocal {
		t.Fatal("expected facade to stay on the local engine")
	}
}

func TestFacade_ConfigureResetsQuota(t *testing.T) {
	synth := &mockSynthesizer{err: ErrQuotaExhausted}
	f := NewFacade(synth, &mockSpeaker{}, &mockSink{}, interview.LanguageEnglish, EngineGenerative)
	_, _ = f.SynthesizeAndSpeak(context.Background(), "x", interview.DefaultVoice)

	f.Configure(EngineGenerative)
	if f.UsingFallback() {
		t.Fatal("expected configure to clear quota state")
	}
	res, _ := f.SynthesizeAndSpeak(context.Background(), "x", interview.DefaultVoice)
	if !res.FallbackActivated {
		t.Fatal("expected notification to be re-armed after configure")
	}
}

func TestFacade_NonQuotaErrorSurfaces(t *testing.T) {
	synth := &mockSynthesizer{err: errors.New("boom")}
	f := NewFacade(synth, &mockSpeaker{}, &mockSink{}, interview.LanguageEnglish, EngineGenerative)
	if _, err := f.SynthesizeAndSpeak(context.Background(), "x", interview.DefaultVoice); err == nil {
		t.Fatal("expected error")
	}
	if f.UsingFallback() {
		t.Fatal("transient errors must not trigger fallback")
	}
}

func TestFacade_StopCancelsPendingSynthesis(t *testing.T) {
	synth := &mockSynthesizer{pcm: make([]byte, 100), block: make(chan struct{})}
	sink := &mockSink{}
	f := NewFacade(synth, &mockSpeaker{}, sink, interview.LanguageEnglish, EngineGenerative)

	done := make(chan error, 1)
	go func() {
		_, err := f.SynthesizeAndSpeak(context.Background(), "x", interview.DefaultVoice)
		done <- err
	}()
	waitFor(t, func() bool { return synth.callCount() == 1 })

	f.Stop()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("synthesis was not cancelled")
	}
	if sink.playCount() != 0 {
		t.Fatal("no audio may play after cancellation")
	}
	if sink.stops == 0 {
		t.Fatal("expected output to be silenced")
	}
}

func TestFacade_NewCallCancelsPrevious(t *testing.T) {
	synth := &mockSynthesizer{pcm: make([]byte, 100), block: make(chan struct{})}
	sink := &mockSink{}
	f := NewFacade(synth, &mockSpeaker{}, sink, interview.LanguageEnglish, EngineGenerative)

	first := make(chan error, 1)
	go func() {
		_, err := f.SynthesizeAndSpeak(context.Background(), "first", interview.DefaultVoice)
		first <- err
	}()
	waitFor(t, func() bool { return synth.callCount() == 1 })

	synth.mu.Lock()
	synth.block = nil
	synth.mu.Unlock()
	if _, err := f.SynthesizeAndSpeak(context.Background(), "second", interview.DefaultVoice); err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected first call cancelled, got %v", err)
	}
	if sink.playCount() != 1 {
		t.Fatalf("expected only the second line to play, got %d", sink.playCount())
	}
}

func TestFacade_ProbeQuotaIsIdempotent(t *testing.T) {
	synth := &mockSynthesizer{err: errors.New("unavailable")}
	f := NewFacade(synth, &mockSpeaker{}, &mockSink{}, interview.LanguageEnglish, EngineGenerative)
	if f.ProbeQuota(context.Background()) {
		t.Fatal("expected probe failure")
	}
	synth.mu.Lock()
	synth.err = nil
	synth.mu.Unlock()
	if f.ProbeQuota(context.Background()) {
		t.Fatal("expected the same verdict without an intervening successful call")
	}
	if synth.callCount() != 1 {
		t.Fatalf("expected a single remote call, got %d", synth.callCount())
	}

	res, _ := f.SynthesizeAndSpeak(context.Background(), "x", interview.DefaultVoice)
	if res.Engine != EngineLocal || !res.FallbackActivated {
		t.Fatalf("expected first spoken line to report the fallback, got %+v", res)
	}

	ok := NewFacade(&mockSynthesizer{pcm: []byte{0, 0}}, nil, &mockSink{}, interview.LanguageEnglish, EngineGenerative)
	if !ok.ProbeQuota(context.Background()) || !ok.ProbeQuota(context.Background()) {
		t.Fatal("expected available verdict twice")
	}
}

func TestFacade_LocalEngineSelectsVoice(t *testing.T) {
	speaker := &mockSpeaker{voices: []LocalVoice{
		{Name: "Google Deutsch", Lang: "de-DE"},
		{Name: "Microsoft Zira", Lang: "en-US"},
		{Name: "Microsoft David", Lang: "en-US", Local: true},
	}}
	f := NewFacade(nil, speaker, &mockSink{}, interview.LanguageEnglish, EngineLocal)
	res, err := f.SynthesizeAndSpeak(context.Background(), "Hi", interview.VoiceParameters{Gender: interview.GenderMale})
	if err != nil || res.Engine != EngineLocal {
		t.Fatalf("unexpected result %+v err=%v", res, err)
	}
	if speaker.used[0].Name != "Microsoft David" {
		t.Fatalf("expected male English voice, got %s", speaker.used[0].Name)
	}
}

func TestPickLocalVoice(t *testing.T) {
	voices := []LocalVoice{
		{Name: "Thomas", Lang: "fr-FR"},
		{Name: "Amélie female", Lang: "fr-CA"},
		{Name: "Samantha", Lang: "en-US"},
	}
	v, ok := PickLocalVoice(voices, "fr-FR", interview.GenderFemale)
	if !ok || v.Name != "Amélie female" {
		t.Fatalf("unexpected pick: %+v", v)
	}
	v, _ = PickLocalVoice(voices, "fr-FR", interview.GenderMale)
	if v.Name != "Thomas" {
		t.Fatalf("unexpected pick: %+v", v)
	}
	if _, ok := PickLocalVoice(nil, "en-US", interview.GenderMale); ok {
		t.Fatal("expected no voice from empty list")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestFacade_WithoutSinkSpeaksLocally(t *testing.T) {
	synth := &mockSynthesizer{pcm: []byte{0x00, 0x40}}
	speaker := &mockSpeaker{}
	f := NewFacade(synth, speaker, nil, interview.LanguageEnglish, EngineGenerative)

	if f.ActiveEngine() != EngineLocal {
		t.Fatalf("expected local engine without a sink, got %s", f.ActiveEngine())
	}
	res, err := f.SynthesizeAndSpeak(context.Background(), "Hello", interview.DefaultVoice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Engine != EngineLocal || res.FallbackActivated {
		t.Fatalf("unexpected result: %+v", res)
	}
	if synth.callCount() != 0 {
		t.Fatalf("expected no remote synthesis, got %d calls", synth.callCount())
	}
	if len(speaker.spoken) != 1 || speaker.spoken[0] != "Hello" {
		t.Fatalf("unexpected local speech: %v", speaker.spoken)
	}
	if f.ProbeQuota(context.Background()) {
		t.Fatal("expected probe to report unavailable without a sink")
	}
	f.Stop()
}

func TestFacade_WithoutDevicesReturnsError(t *testing.T) {
	f := NewFacade(&mockSynthesizer{pcm: []byte{0, 0}}, nil, nil, interview.LanguageEnglish, EngineGenerative)
	if _, err := f.SynthesizeAndSpeak(context.Background(), "Hello", interview.DefaultVoice); err == nil {
		t.Fatal("expected error without any audio output")
	}
	f.Stop()
}
