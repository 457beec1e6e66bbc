package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/docqa/internal/service"
)

// QuestionLogRepository stores one row per asked question.
type QuestionLogRepository struct {
	db dbtx
}

func NewQuestionLogRepository(pool *pgxpool.Pool) *QuestionLogRepository {
	return &QuestionLogRepository{db: pool}
}

func (r *QuestionLogRepository) CreateQuestionLog(ctx context.Context, entry service.QuestionLogEntry) (string, error) {
	id := uuid.NewString()
	_, err := r.db.Exec(ctx,
		`INSERT INTO question_logs (id, question, status, context_records, context_tokens, duration_ms, error, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id,
		entry.Question,
		entry.Status,
		entry.ContextRecords,
		entry.ContextTokens,
		entry.DurationMs,
		nullableString(entry.Error),
		time.Now().UTC(),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}
