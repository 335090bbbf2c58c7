package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wouk1805/prepgenius/internal/interview"
)

const probeText = "This is a voice test."

type Result struct {
	Engine Engine
	// FallbackActivated is true only for the call that switched the session
	// to the local engine.
	FallbackActivated bool
}

// Facade speaks interviewer lines through the generative engine and falls
// back to the local engine for the rest of the session once quota runs out.
// At most one synthesis is in flight; starting another cancels it.
type Facade struct {
	remote Synthesizer
	local  LocalSpeaker
	sink   AudioSink
	lang   interview.Language

	mu               sync.Mutex
	engine           Engine
	quotaExhausted   bool
	fallbackNotified bool
	current          *operation
	nextID           uint64
	voiceCache       map[interview.Gender]LocalVoice
}

type operation struct {
	id     uint64
	cancel context.CancelFunc
}

func NewFacade(remote Synthesizer, local LocalSpeaker, sink AudioSink, lang interview.Language, engine Engine) *Facade {
	return &Facade{
		remote:     remote,
		local:      local,
		sink:       sink,
		lang:       lang,
		engine:     engine,
		voiceCache: make(map[interview.Gender]LocalVoice),
	}
}

// Configure selects the preferred engine and clears quota state.
func (f *Facade) Configure(engine Engine) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.engine = engine
	f.quotaExhausted = false
	f.fallbackNotified = false
}

func (f *Facade) ActiveEngine() Engine {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activeEngineLocked()
}

// activeEngineLocked picks local whenever generative audio has nowhere to
// come from or nowhere to go.
func (f *Facade) activeEngineLocked() Engine {
	if f.engine == EngineGenerative && (f.quotaExhausted || f.remote == nil || f.sink == nil) {
		return EngineLocal
	}
	return f.engine
}

func (f *Facade) UsingFallback() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.engine == EngineGenerative && f.quotaExhausted
}

// activateFallbackLocked reports whether the caller should notify the user.
func (f *Facade) activateFallbackLocked() bool {
	f.quotaExhausted = true
	return f.claimNotificationLocked()
}

func (f *Facade) claimNotificationLocked() bool {
	if f.fallbackNotified {
		return false
	}
	f.fallbackNotified = true
	return true
}

// SynthesizeAndSpeak speaks text and returns once playback ends. Cancelled
// calls return the context error and never reach the audio output.
func (f *Facade) SynthesizeAndSpeak(ctx context.Context, text string, params interview.VoiceParameters) (Result, error) {
	opCtx, op := f.begin(ctx)
	defer f.finish(op)

	f.mu.Lock()
	engine := f.activeEngineLocked()
	notify := false
	if engine == EngineLocal && f.engine == EngineGenerative && f.quotaExhausted {
		notify = f.claimNotificationLocked()
	}
	f.mu.Unlock()
	if engine == EngineLocal {
		return Result{Engine: EngineLocal, FallbackActivated: notify}, f.speakLocal(opCtx, text, params)
	}

	pcm, err := f.remote.Synthesize(opCtx, text, params)
	if err != nil {
		if opCtx.Err() != nil {
			return Result{Engine: engine}, opCtx.Err()
		}
		if !errors.Is(err, ErrQuotaExhausted) {
			return Result{Engine: engine}, fmt.Errorf("synthesize speech: %w", err)
		}
		f.mu.Lock()
		first := f.activateFallbackLocked()
		f.mu.Unlock()
		slog.Warn("synthesis quota exhausted; switching to local speech", "first_activation", first)
		return Result{Engine: EngineLocal, FallbackActivated: first}, f.speakLocal(opCtx, text, params)
	}

	if !f.isCurrent(op) || opCtx.Err() != nil {
		return Result{Engine: engine}, context.Canceled
	}
	if err := f.sink.Play(opCtx, Buffer{Samples: DecodePCM16(pcm), SampleRate: PCMSampleRate}); err != nil {
		if opCtx.Err() != nil {
			return Result{Engine: engine}, opCtx.Err()
		}
		return Result{Engine: engine}, fmt.Errorf("play speech: %w", err)
	}
	return Result{Engine: engine}, nil
}

func (f *Facade) speakLocal(ctx context.Context, text string, params interview.VoiceParameters) error {
	if f.local == nil {
		return errors.New("no local speech engine available")
	}
	v := f.localVoice(ctx, params.Gender)
	if err := f.local.Speak(ctx, text, v, f.lang.Locale()); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("local speech: %w", err)
	}
	return nil
}

func (f *Facade) localVoice(ctx context.Context, gender interview.Gender) LocalVoice {
	f.mu.Lock()
	v, ok := f.voiceCache[gender]
	f.mu.Unlock()
	if ok {
		return v
	}
	voices, err := f.local.Voices(ctx)
	if err != nil {
		slog.Warn("failed to list local voices", "error", err)
		return LocalVoice{Lang: f.lang.Locale()}
	}
	v, ok = PickLocalVoice(voices, f.lang.Locale(), gender)
	if !ok {
		return LocalVoice{Lang: f.lang.Locale()}
	}
	f.mu.Lock()
	f.voiceCache[gender] = v
	f.mu.Unlock()
	return v
}

// Stop aborts any pending synthesis and silences the output.
func (f *Facade) Stop() {
	f.mu.Lock()
	op := f.current
	f.current = nil
	f.mu.Unlock()
	if op != nil {
		op.cancel()
	}
	f.silence()
}

func (f *Facade) silence() {
	if f.sink != nil {
		f.sink.Stop()
	}
	if f.local != nil {
		f.local.Cancel()
	}
}

// ProbeQuota reports whether the generative engine is usable. Any failure
// counts as unavailable and switches the session to the local engine.
func (f *Facade) ProbeQuota(ctx context.Context) bool {
	f.mu.Lock()
	exhausted := f.quotaExhausted
	f.mu.Unlock()
	if exhausted || f.remote == nil || f.sink == nil {
		return false
	}
	if _, err := f.remote.Synthesize(ctx, probeText, interview.DefaultVoice); err != nil {
		slog.Info("voice quota probe failed", "error", err)
		f.mu.Lock()
		f.quotaExhausted = true
		f.mu.Unlock()
		return false
	}
	return true
}

func (f *Facade) begin(ctx context.Context) (context.Context, *operation) {
	opCtx, cancel := context.WithCancel(ctx)
	f.mu.Lock()
	prev := f.current
	f.nextID++
	op := &operation{id: f.nextID, cancel: cancel}
	f.current = op
	f.mu.Unlock()
	if prev != nil {
		prev.cancel()
		f.silence()
	}
	return opCtx, op
}

func (f *Facade) finish(op *operation) {
	f.mu.Lock()
	if f.current == op {
		f.current = nil
	}
	f.mu.Unlock()
	op.cancel()
}

func (f *Facade) isCurrent(op *operation) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current == op
}

// Busy reports whether a synthesis or playback is in flight.
func (f *Facade) Busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current != nil
}
