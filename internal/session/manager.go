package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wouk1805/prepgenius/internal/capture"
	"github.com/wouk1805/prepgenius/internal/config"
	"github.com/wouk1805/prepgenius/internal/discord"
	"github.com/wouk1805/prepgenius/internal/feedback"
	"github.com/wouk1805/prepgenius/internal/interview"
	"github.com/wouk1805/prepgenius/internal/metrics"
	"github.com/wouk1805/prepgenius/internal/questioner"
	"github.com/wouk1805/prepgenius/internal/repository"
	"github.com/wouk1805/prepgenius/internal/transcriber"
	"github.com/wouk1805/prepgenius/internal/voice"
	"github.com/wouk1805/prepgenius/internal/webhook"
)

const (
	eventBufferSize   = 64
	persistQueueSize  = 256
	persistJobTimeout = 10 * time.Second

	// endedSessionRetention bounds how long a finished session stays in
	// memory when nobody releases it.
	endedSessionRetention = 30 * time.Minute
)

type Manager struct {
	cfg         *config.Config
	questions   questioner.Generator
	transcriber transcriber.Transcriber
	synth       voice.Synthesizer
	aggregator  *feedback.Aggregator
	repo        repository.Repository
	webhook     webhook.Sender
	discord     discord.Client
	now         func() time.Time
	newID       func() string
	retention   time.Duration

	mu         sync.Mutex
	sessions   map[string]*runningSession
	closed     bool
	jobsClosed bool

	jobs        chan persistJob
	persistDone chan struct{}
}

type persistJob struct {
	name      string
	sessionID string
	run       func(ctx context.Context) error
}

type runningSession struct {
	id     string
	setup  Setup
	ctx    context.Context
	cancel context.CancelFunc

	facade   *voice.Facade
	recorder *capture.Recorder

	mu                sync.Mutex
	state             State
	target            int
	transcript        []interview.Entry
	questionsAsked    int
	activeInterviewer int
	voice             interview.VoiceParameters
	metrics           *metrics.Collector
	startedAt         time.Time
	endedAt           time.Time
	lastLineAt        time.Time
	generation        uint64
	busy              bool
	opCancel          context.CancelFunc
	feedbackRuns      int
	feedbackPending   bool
	report            *feedback.Report
	released          bool
	retireTimer       *time.Timer

	evMu     sync.Mutex
	events   chan Event
	evClosed bool
}

// turnOp is one oracle round trip. A result is committed only if the
// session generation still matches when it arrives.
type turnOp struct {
	ctx        context.Context
	cancel     context.CancelFunc
	generation uint64
}

func NewManager(cfg *config.Config, questions questioner.Generator, stt transcriber.Transcriber, synth voice.Synthesizer, aggregator *feedback.Aggregator, repo repository.Repository, wh webhook.Sender, dc discord.Client) *Manager {
	m := &Manager{
		cfg:         cfg,
		questions:   questions,
		transcriber: stt,
		synth:       synth,
		aggregator:  aggregator,
		repo:        repo,
		webhook:     wh,
		discord:     dc,
		now:         time.Now,
		newID:       uuid.NewString,
		retention:   endedSessionRetention,
		sessions:    make(map[string]*runningSession),
		jobs:        make(chan persistJob, persistQueueSize),
		persistDone: make(chan struct{}),
	}
	go m.runPersistence()
	return m
}

// Start opens a session and asks the opening question. The session only
// becomes visible once the opening line exists.
func (m *Manager) Start(ctx context.Context, setup Setup, dev Devices) (Snapshot, error) {
	setup = m.normalizeSetup(setup)
	sessionCtx, cancel := context.WithCancel(context.Background())
	rs := &runningSession{
		id:         m.newID(),
		setup:      setup,
		ctx:        sessionCtx,
		cancel:     cancel,
		facade:     voice.NewFacade(m.synth, dev.Speaker, dev.Sink, setup.Language, setup.Engine),
		state:      StateIdle,
		target:     setup.Type.TargetTurns(),
		metrics:    metrics.NewCollector(),
		transcript: make([]interview.Entry, 0, setup.Type.TargetTurns()*2+1),
		events:     make(chan Event, eventBufferSize),
	}
	if dev.Microphone != nil {
		rs.recorder = capture.NewRecorder(dev.Microphone)
	}
	slog.Info("start session requested", "session_id", rs.id, "interview_type", setup.Type, "language", setup.Language, "target_turns", rs.target, "interviewers", len(setup.Personas))

	rs.mu.Lock()
	rs.state = StateActive
	rs.startedAt = m.now()
	rs.voice = rs.personaLocked().Voice()
	op, _ := rs.beginOpLocked(ctx, m.cfg.OracleTimeout())
	req := m.questionRequestLocked(rs, questioner.KindOpening, rs.transcript, "")
	rs.mu.Unlock()

	resp, err := m.questions.Generate(op.ctx, req)
	if err != nil {
		op.cancel()
		cancel()
		slog.Error("failed to generate opening question", "error", err, "session_id", rs.id)
		return Snapshot{}, fmt.Errorf("generate opening question: %w", err)
	}

	rs.mu.Lock()
	line := questioner.Line(questioner.KindOpening, resp)
	entry := interview.Entry{Role: interview.RoleInterviewer, Content: line, Interviewer: rs.activeInterviewer}
	rs.endOpLocked(op)
	rs.lastLineAt = m.now()
	startedAt := rs.startedAt
	rs.mu.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		cancel()
		return Snapshot{}, ErrShuttingDown
	}
	m.sessions[rs.id] = rs
	m.mu.Unlock()

	m.persist("create_session", rs.id, func(ctx context.Context) error {
		return m.repo.CreateSession(ctx, repository.CreateSessionInput{
			SessionID:     rs.id,
			InterviewType: string(setup.Type),
			Language:      string(setup.Language),
			TargetTurns:   rs.target,
			StartedAt:     startedAt,
		})
	})
	rs.mu.Lock()
	m.appendLocked(rs, entry)
	snap := rs.snapshotLocked()
	voiceParams := rs.voice
	rs.mu.Unlock()

	slog.Info("session activated", "session_id", rs.id)
	m.publish(rs, Event{Type: EventLine, Entry: &entry})
	go m.speak(rs, line, voiceParams)
	return snap, nil
}

func (m *Manager) normalizeSetup(s Setup) Setup {
	if s.Type == "" {
		s.Type = interview.TypeFull
	}
	if s.Style == "" {
		s.Style = interview.StyleBalanced
	}
	if s.Language == "" {
		s.Language = interview.ParseLanguage(m.cfg.DefaultLanguage)
	}
	if s.Engine == "" {
		s.Engine = voice.ParseEngine(m.cfg.DefaultVoiceEngine)
	}
	if len(s.Personas) == 0 {
		s.Personas = []interview.Persona{{}}
	}
	return s
}

// EndEarly stops the interview before the target is reached. Pending
// synthesis and capture are cancelled before the state changes.
func (m *Manager) EndEarly(sessionID string) (Snapshot, error) {
	rs, err := m.get(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	rs.mu.Lock()
	if rs.state != StateActive && rs.state != StateCompleting {
		rs.mu.Unlock()
		return Snapshot{}, fmt.Errorf("%w: end from %s", ErrInvalidState, rs.state)
	}
	m.haltLocked(rs)
	rs.state = StateAborted
	rs.endedAt = m.now()
	m.scheduleRetireLocked(rs)
	snap := rs.snapshotLocked()
	asked, endedAt := rs.questionsAsked, rs.endedAt
	rs.mu.Unlock()

	slog.Info("session ended early", "session_id", sessionID, "questions_asked", asked)
	m.persistEnd(sessionID, repository.SessionStatusAborted, asked, endedAt)
	m.publish(rs, Event{Type: EventState, Snapshot: &snap})
	return snap, nil
}

// Reset cancels everything in flight. A session that already produced or
// requested feedback stays reachable so its report can still be read;
// anything else is discarded.
func (m *Manager) Reset(sessionID string) (Snapshot, error) {
	rs, err := m.get(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	rs.mu.Lock()
	m.haltLocked(rs)
	rs.feedbackPending = false
	if !rs.state.ended() {
		rs.state = StateAborted
		rs.endedAt = m.now()
	}
	keep := rs.report != nil || rs.feedbackRuns > 0
	if keep {
		m.scheduleRetireLocked(rs)
	}
	snap := rs.snapshotLocked()
	rs.mu.Unlock()

	if keep {
		slog.Info("session reset; keeping feedback", "session_id", sessionID)
		m.publish(rs, Event{Type: EventState, Snapshot: &snap})
		m.settle(rs)
		return snap, nil
	}

	m.evict(rs)
	m.persist("delete_session", sessionID, func(ctx context.Context) error {
		return m.repo.DeleteSession(ctx, sessionID)
	})
	slog.Info("session reset and discarded", "session_id", sessionID)
	return Snapshot{SessionID: sessionID, State: StateIdle}, nil
}

// haltLocked invalidates every outstanding operation of the session.
func (m *Manager) haltLocked(rs *runningSession) {
	rs.generation++
	if rs.opCancel != nil {
		rs.opCancel()
		rs.opCancel = nil
	}
	rs.busy = false
	rs.facade.Stop()
	if rs.recorder != nil {
		rs.recorder.Cancel()
	}
}

// SwitchInterviewer hands the panel to another persona and locks its voice.
func (m *Manager) SwitchInterviewer(sessionID string, index int) (Snapshot, error) {
	rs, err := m.get(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	rs.mu.Lock()
	if index < 0 || index >= len(rs.setup.Personas) {
		rs.mu.Unlock()
		return Snapshot{}, fmt.Errorf("%w: interviewer index %d out of range", ErrInvalidInput, index)
	}
	if rs.state.ended() {
		rs.mu.Unlock()
		return Snapshot{}, fmt.Errorf("%w: switch interviewer from %s", ErrInvalidState, rs.state)
	}
	rs.activeInterviewer = index
	rs.voice = rs.personaLocked().Voice()
	snap := rs.snapshotLocked()
	rs.mu.Unlock()
	slog.Info("active interviewer switched", "session_id", sessionID, "index", index, "voice_gender", snap.Voice.Gender)
	m.publish(rs, Event{Type: EventState, Snapshot: &snap})
	return snap, nil
}

// SetEngine changes the preferred voice engine and clears quota state.
func (m *Manager) SetEngine(sessionID string, engine voice.Engine) (Snapshot, error) {
	rs, err := m.get(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	rs.facade.Configure(engine)
	return m.Snapshot(sessionID)
}

// ProbeVoice checks whether the generative engine is currently usable.
func (m *Manager) ProbeVoice(ctx context.Context, sessionID string) (bool, error) {
	rs, err := m.get(sessionID)
	if err != nil {
		return false, err
	}
	return rs.facade.ProbeQuota(ctx), nil
}

func (m *Manager) Snapshot(sessionID string) (Snapshot, error) {
	rs, err := m.get(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.snapshotLocked(), nil
}

// Events streams notifications for one session. The channel is closed when
// the session leaves memory or the manager shuts down.
func (m *Manager) Events(sessionID string) (<-chan Event, error) {
	rs, err := m.get(sessionID)
	if err != nil {
		return nil, err
	}
	return rs.events, nil
}

// Shutdown aborts running sessions and drains pending archive writes.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	sessions := make([]*runningSession, 0, len(m.sessions))
	for _, rs := range m.sessions {
		sessions = append(sessions, rs)
	}
	m.sessions = make(map[string]*runningSession)
	m.mu.Unlock()

	for _, rs := range sessions {
		rs.mu.Lock()
		if rs.retireTimer != nil {
			rs.retireTimer.Stop()
			rs.retireTimer = nil
		}
		m.haltLocked(rs)
		if !rs.state.ended() {
			rs.state = StateAborted
			rs.endedAt = m.now()
			m.persistEnd(rs.id, repository.SessionStatusAborted, rs.questionsAsked, rs.endedAt)
		}
		rs.mu.Unlock()
		rs.cancel()
		m.closeEvents(rs)
	}
	m.mu.Lock()
	m.jobsClosed = true
	close(m.jobs)
	m.mu.Unlock()

	select {
	case <-m.persistDone:
		slog.Info("session manager stopped", "sessions", len(sessions))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for pending writes: %w", ctx.Err())
	}
}

// Release hands a session back once its owner is gone. A running interview
// is ended first. The session leaves memory as soon as no feedback run needs
// it; its report stays readable through the archive.
func (m *Manager) Release(sessionID string) error {
	rs, err := m.get(sessionID)
	if err != nil {
		return err
	}
	rs.mu.Lock()
	running := rs.state == StateActive || rs.state == StateCompleting
	rs.mu.Unlock()
	if running {
		if _, err := m.EndEarly(sessionID); err != nil && !errors.Is(err, ErrInvalidState) {
			return err
		}
	}
	rs.mu.Lock()
	rs.released = true
	rs.mu.Unlock()
	m.settle(rs)
	return nil
}

// scheduleRetireLocked releases an ended session after the retention period
// in case its owner never does.
func (m *Manager) scheduleRetireLocked(rs *runningSession) {
	if rs.retireTimer != nil || m.retention <= 0 {
		return
	}
	rs.retireTimer = time.AfterFunc(m.retention, func() {
		rs.mu.Lock()
		rs.released = true
		rs.mu.Unlock()
		m.settle(rs)
	})
}

// settle evicts a released session once it has ended and no feedback run is
// pending.
func (m *Manager) settle(rs *runningSession) {
	rs.mu.Lock()
	ready := rs.released && rs.state.ended() && !rs.feedbackPending
	rs.mu.Unlock()
	if ready {
		m.evict(rs)
	}
}

func (m *Manager) evict(rs *runningSession) {
	m.mu.Lock()
	if m.sessions[rs.id] == rs {
		delete(m.sessions, rs.id)
	}
	m.mu.Unlock()
	rs.mu.Lock()
	if rs.retireTimer != nil {
		rs.retireTimer.Stop()
		rs.retireTimer = nil
	}
	rs.mu.Unlock()
	rs.cancel()
	m.closeEvents(rs)
	slog.Info("session evicted", "session_id", rs.id)
}

func (m *Manager) get(sessionID string) (*runningSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rs, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return rs, nil
}

func (m *Manager) publish(rs *runningSession, ev Event) {
	ev.SessionID = rs.id
	rs.evMu.Lock()
	defer rs.evMu.Unlock()
	if rs.evClosed {
		return
	}
	select {
	case rs.events <- ev:
	default:
		slog.Warn("dropping session event; subscriber is not keeping up", "session_id", rs.id, "event_type", ev.Type)
	}
}

func (m *Manager) closeEvents(rs *runningSession) {
	rs.evMu.Lock()
	defer rs.evMu.Unlock()
	if !rs.evClosed {
		rs.evClosed = true
		close(rs.events)
	}
}

// persist queues an archive write. Writes run in order on one worker so a
// session row always exists before its transcript entries.
func (m *Manager) persist(name, sessionID string, run func(ctx context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.jobsClosed {
		slog.Warn("dropping archive write after shutdown", "job", name, "session_id", sessionID)
		return
	}
	select {
	case m.jobs <- persistJob{name: name, sessionID: sessionID, run: run}:
	default:
		slog.Error("archive queue full; dropping write", "job", name, "session_id", sessionID)
	}
}

func (m *Manager) persistEnd(sessionID string, status repository.SessionStatus, asked int, endedAt time.Time) {
	m.persist("end_session", sessionID, func(ctx context.Context) error {
		return m.repo.UpdateSessionEnded(ctx, repository.EndSessionInput{
			SessionID:      sessionID,
			Status:         status,
			QuestionsAsked: asked,
			EndedAt:        endedAt,
		})
	})
}

func (m *Manager) runPersistence() {
	defer close(m.persistDone)
	for job := range m.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), persistJobTimeout)
		if err := job.run(ctx); err != nil {
			slog.Error("archive write failed", "job", job.name, "error", err, "session_id", job.sessionID)
		}
		cancel()
	}
}

// appendLocked adds a transcript line and queues it for the archive.
func (m *Manager) appendLocked(rs *runningSession, entry interview.Entry) {
	rs.transcript = append(rs.transcript, entry)
	idx := len(rs.transcript) - 1
	m.persist("insert_entry", rs.id, func(ctx context.Context) error {
		return m.repo.InsertEntry(ctx, repository.InsertEntryInput{
			SessionID:  rs.id,
			EntryIndex: idx,
			Role:       string(entry.Role),
			Content:    entry.Content,
			Skipped:    entry.Skipped(),
		})
	})
}

func (rs *runningSession) personaLocked() interview.Persona {
	if rs.activeInterviewer < len(rs.setup.Personas) {
		return rs.setup.Personas[rs.activeInterviewer]
	}
	return interview.Persona{}
}

func (rs *runningSession) beginOpLocked(parent context.Context, timeout time.Duration) (*turnOp, error) {
	if rs.busy {
		return nil, ErrBusy
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	rs.busy = true
	rs.opCancel = cancel
	return &turnOp{ctx: ctx, cancel: cancel, generation: rs.generation}, nil
}

func (rs *runningSession) endOpLocked(op *turnOp) {
	op.cancel()
	if rs.generation == op.generation {
		rs.busy = false
		rs.opCancel = nil
	}
}

func (rs *runningSession) staleLocked(op *turnOp) bool {
	return rs.generation != op.generation
}

func (rs *runningSession) snapshotLocked() Snapshot {
	persona := rs.personaLocked()
	snap := Snapshot{
		SessionID:         rs.id,
		State:             rs.state,
		InterviewType:     rs.setup.Type,
		Language:          rs.setup.Language,
		Transcript:        append([]interview.Entry(nil), rs.transcript...),
		QuestionsAsked:    rs.questionsAsked,
		TargetTurns:       rs.target,
		Complete:          rs.state == StateComplete,
		ActiveInterviewer: rs.activeInterviewer,
		InterviewerName:   persona.DisplayName(),
		InterviewerRole:   persona.RoleDisplay(),
		Voice:             rs.voice,
		Engine:            rs.facade.ActiveEngine(),
		UsingFallback:     rs.facade.UsingFallback(),
		Busy:              rs.busy,
		Speaking:          rs.facade.Busy(),
		FeedbackPending:   rs.feedbackPending,
		HasReport:         rs.report != nil,
	}
	if rs.recorder != nil {
		snap.Recording = rs.recorder.Recording()
	}
	return snap
}
