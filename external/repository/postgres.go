package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wouk1805/prepgenius/internal/repository"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) CreateSession(ctx context.Context, input repository.CreateSessionInput) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO interview_sessions (id, interview_type, language, target_turns, started_at, status)
		 VALUES ($1, $2, $3, $4, $5, 'active')`,
		input.SessionID, input.InterviewType, input.Language, input.TargetTurns, input.StartedAt)
	return err
}

func (r *PostgresRepository) UpdateSessionEnded(ctx context.Context, input repository.EndSessionInput) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE interview_sessions SET status = $2, questions_asked = $3, ended_at = $4 WHERE id = $1`,
		input.SessionID, string(input.Status), input.QuestionsAsked, input.EndedAt)
	return err
}

func (r *PostgresRepository) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM interview_sessions WHERE id = $1`, sessionID)
	return err
}

func (r *PostgresRepository) InsertEntry(ctx context.Context, input repository.InsertEntryInput) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO transcript_entries (session_id, entry_index, role, content, skipped)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (session_id, entry_index) DO NOTHING`,
		input.SessionID, input.EntryIndex, input.Role, input.Content, input.Skipped)
	return err
}

// SaveReport stores the report and marks the session with its final
// question count in one transaction.
func (r *PostgresRepository) SaveReport(ctx context.Context, input repository.SaveReportInput) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO feedback_reports (session_id, overall_score, content_score, delivery_score, visual_score, report, generated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (session_id) DO UPDATE SET
				overall_score = EXCLUDED.overall_score,
				content_score = EXCLUDED.content_score,
				delivery_score = EXCLUDED.delivery_score,
				visual_score = EXCLUDED.visual_score,
				report = EXCLUDED.report,
				generated_at = EXCLUDED.generated_at`,
			input.SessionID, input.OverallScore, input.ContentScore, input.DeliveryScore, input.VisualScore, input.ReportJSON, input.GeneratedAt); err != nil {
			return fmt.Errorf("upsert report: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE interview_sessions SET ended_at = COALESCE(ended_at, $2) WHERE id = $1`,
			input.SessionID, input.GeneratedAt); err != nil {
			return fmt.Errorf("touch session: %w", err)
		}
		return nil
	})
}

func (r *PostgresRepository) GetReport(ctx context.Context, sessionID string) (*repository.FeedbackReport, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT session_id::text, overall_score, content_score, delivery_score, visual_score, report, generated_at
		 FROM feedback_reports WHERE session_id = $1`,
		sessionID)
	var rep repository.FeedbackReport
	err := row.Scan(&rep.SessionID, &rep.OverallScore, &rep.ContentScore, &rep.DeliveryScore, &rep.VisualScore, &rep.ReportJSON, &rep.GeneratedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rep, nil
}

// Shutdown releases the pool when the injector shuts down.
func (r *PostgresRepository) Shutdown() error {
	r.pool.Close()
	return nil
}

var _ repository.Repository = (*PostgresRepository)(nil)
