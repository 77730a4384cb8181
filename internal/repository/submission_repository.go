package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SubmissionOutcome labels the terminal state of a submission attempt.
type SubmissionOutcome string

const (
	OutcomeCreated   SubmissionOutcome = "CREATED"
	OutcomeDuplicate SubmissionOutcome = "DUPLICATE"
	OutcomeFailed    SubmissionOutcome = "FAILED"
)

// SubmissionRecord is one audit row per submission attempt.
type SubmissionRecord struct {
	ID              string
	ChannelID       string
	ChannelName     string
	DiscordID       string
	DiscordUsername string
	RobloxUsername  string
	RobloxID        string
	RobloxResolved  bool
	Outcome         SubmissionOutcome
	ErrorMessage    string
	CreatedAt       time.Time
}

// SubmissionRepository records submission attempts for auditing. A nil pool
// disables the trail; every method turns into a no-op so the workflow never
// depends on the database being present.
type SubmissionRepository interface {
	Create(ctx context.Context, rec *SubmissionRecord) error
	ListByChannelName(ctx context.Context, channelName string, limit int) ([]SubmissionRecord, error)
}

type submissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(pool *pgxpool.Pool) SubmissionRepository {
	return &submissionRepository{pool: pool}
}

func (r *submissionRepository) Create(ctx context.Context, rec *SubmissionRecord) error {
	if r.pool == nil {
		return nil
	}
	const query = `
        INSERT INTO report_submissions (channel_id, channel_name, discord_id, discord_username, roblox_username, roblox_id, roblox_resolved, outcome, error_message)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		rec.ChannelID,
		rec.ChannelName,
		rec.DiscordID,
		rec.DiscordUsername,
		rec.RobloxUsername,
		rec.RobloxID,
		rec.RobloxResolved,
		rec.Outcome,
		rec.ErrorMessage,
	).Scan(&rec.ID, &rec.CreatedAt)
}

func (r *submissionRepository) ListByChannelName(ctx context.Context, channelName string, limit int) ([]SubmissionRecord, error) {
	if r.pool == nil {
		return []SubmissionRecord{}, nil
	}
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, channel_id, channel_name, discord_id, discord_username, roblox_username, roblox_id, roblox_resolved, outcome, COALESCE(error_message, ''), created_at
        FROM report_submissions
        WHERE channel_name = $1
        ORDER BY created_at DESC
        LIMIT $2`
	rows, err := r.pool.Query(ctx, query, channelName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]SubmissionRecord, 0)
	for rows.Next() {
		var rec SubmissionRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.ChannelID,
			&rec.ChannelName,
			&rec.DiscordID,
			&rec.DiscordUsername,
			&rec.RobloxUsername,
			&rec.RobloxID,
			&rec.RobloxResolved,
			&rec.Outcome,
			&rec.ErrorMessage,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
