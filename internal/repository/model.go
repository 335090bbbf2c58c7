package repository

import "time"

type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusAborted   SessionStatus = "aborted"
)

type FeedbackReport struct {
	SessionID     string
	OverallScore  int
	ContentScore  int
	DeliveryScore int
	VisualScore   int
	ReportJSON    []byte
	GeneratedAt   time.Time
}
