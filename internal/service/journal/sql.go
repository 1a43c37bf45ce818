package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"wellnessconnect/internal/models"
	"wellnessconnect/internal/risk"
)

// SQLJournal keeps history in the chat_logs and assessments tables.
type SQLJournal struct {
	db     *sql.DB
	sealer *Sealer
}

func NewSQL(db *sql.DB, sealer *Sealer) *SQLJournal {
	return &SQLJournal{db: db, sealer: sealer}
}

func (j *SQLJournal) RecordChat(ctx context.Context, log *models.ChatLog) error {
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now().UTC()
	}
	msg, resp, err := j.sealer.sealPair(log.Message, log.Response)
	if err != nil {
		return fmt.Errorf("seal chat: %w", err)
	}
	res, err := j.db.ExecContext(ctx,
		`INSERT INTO chat_logs (user_id, message, response, stress_level, created_at) VALUES (?, ?, ?, ?, ?)`,
		log.UserID, msg, resp, log.StressLevel, log.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert chat log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("chat log id: %w", err)
	}
	log.ID = strconv.FormatInt(id, 10)
	return nil
}

func (j *SQLJournal) ChatHistory(ctx context.Context, userID int64) ([]*models.ChatLog, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, user_id, message, response, stress_level, created_at
		 FROM chat_logs WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query chat logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.ChatLog
	for rows.Next() {
		var (
			l  models.ChatLog
			id int64
		)
		if err := rows.Scan(&id, &l.UserID, &l.Message, &l.Response, &l.StressLevel, &l.Timestamp); err != nil {
			return nil, fmt.Errorf("scan chat log: %w", err)
		}
		l.ID = strconv.FormatInt(id, 10)
		if l.Message, l.Response, err = j.sealer.openPair(l.Message, l.Response); err != nil {
			return nil, fmt.Errorf("open chat log %d: %w", id, err)
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

func (j *SQLJournal) RecordAssessment(ctx context.Context, a *models.Assessment) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	res, err := j.db.ExecContext(ctx,
		`INSERT INTO assessments (user_id, phq_score, gad_score, total_score, chat_stress_level, final_level, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, a.PHQScore, a.GADScore, a.TotalScore, a.ChatStressLevel, a.FinalLevel, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("assessment id: %w", err)
	}
	a.ID = strconv.FormatInt(id, 10)
	return nil
}

const assessmentColumns = `id, user_id, phq_score, gad_score, total_score, chat_stress_level, final_level, created_at`

func scanAssessment(scan func(dest ...interface{}) error) (*models.Assessment, error) {
	var (
		a  models.Assessment
		id int64
	)
	if err := scan(&id, &a.UserID, &a.PHQScore, &a.GADScore, &a.TotalScore, &a.ChatStressLevel, &a.FinalLevel, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.ID = strconv.FormatInt(id, 10)
	return &a, nil
}

func (j *SQLJournal) LatestAssessment(ctx context.Context, userID int64) (*models.Assessment, error) {
	row := j.db.QueryRowContext(ctx,
		`SELECT `+assessmentColumns+` FROM assessments WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`, userID)
	a, err := scanAssessment(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("latest assessment: %w", err)
	}
	return a, nil
}

func (j *SQLJournal) LatestAssessments(ctx context.Context, userIDs []int64) (map[int64]*models.Assessment, error) {
	out := make(map[int64]*models.Assessment, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(userIDs)), ",")
	args := make([]interface{}, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT `+assessmentColumns+` FROM assessments WHERE user_id IN (`+placeholders+`)
		 ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query assessments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		a, err := scanAssessment(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		if _, seen := out[a.UserID]; !seen {
			out[a.UserID] = a
		}
	}
	return out, rows.Err()
}

func (j *SQLJournal) DeleteUser(ctx context.Context, userID int64) error {
	if _, err := j.db.ExecContext(ctx, `DELETE FROM chat_logs WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete chat logs: %w", err)
	}
	if _, err := j.db.ExecContext(ctx, `DELETE FROM assessments WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete assessments: %w", err)
	}
	return nil
}

// Close is a no-op; the *sql.DB belongs to the caller.
func (j *SQLJournal) Close(context.Context) error { return nil }

var _ Journal = (*SQLJournal)(nil)

// FinalLevelFor is the level stored with an assessment: scores only, no chat label.
func FinalLevelFor(phq, gad int) risk.Level {
	return risk.Combine("", phq, gad)
}
