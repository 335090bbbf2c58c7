package repository

import (
	"context"
	"time"
)

type CreateSessionInput struct {
	SessionID     string
	InterviewType string
	Language      string
	TargetTurns   int
	StartedAt     time.Time
}

type EndSessionInput struct {
	SessionID      string
	Status         SessionStatus
	QuestionsAsked int
	EndedAt        time.Time
}

type InsertEntryInput struct {
	SessionID  string
	EntryIndex int
	Role       string
	Content    string
	Skipped    bool
}

type SaveReportInput struct {
	SessionID     string
	OverallScore  int
	ContentScore  int
	DeliveryScore int
	VisualScore   int
	ReportJSON    []byte
	GeneratedAt   time.Time
}

type SessionRepository interface {
	CreateSession(ctx context.Context, input CreateSessionInput) error
	UpdateSessionEnded(ctx context.Context, input EndSessionInput) error
	DeleteSession(ctx context.Context, sessionID string) error
}

type TranscriptRepository interface {
	InsertEntry(ctx context.Context, input InsertEntryInput) error
}

type ReportRepository interface {
	SaveReport(ctx context.Context, input SaveReportInput) error
	GetReport(ctx context.Context, sessionID string) (*FeedbackReport, error)
}

type Repository interface {
	SessionRepository
	TranscriptRepository
	ReportRepository
}
