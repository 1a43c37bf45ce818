// Package journal stores chat logs and assessment results, in SQL or MongoDB.
package journal

import (
	"context"
	"database/sql"
	"fmt"

	"wellnessconnect/internal/config"
	"wellnessconnect/internal/models"
)

// Journal is the append-only history of a student's chats and assessments.
// It never feeds back into the risk snapshot.
type Journal interface {
	RecordChat(ctx context.Context, log *models.ChatLog) error
	// ChatHistory returns the user's chats, newest first.
	ChatHistory(ctx context.Context, userID int64) ([]*models.ChatLog, error)
	RecordAssessment(ctx context.Context, a *models.Assessment) error
	// LatestAssessment returns sql.ErrNoRows when the user has none.
	LatestAssessment(ctx context.Context, userID int64) (*models.Assessment, error)
	LatestAssessments(ctx context.Context, userIDs []int64) (map[int64]*models.Assessment, error)
	DeleteUser(ctx context.Context, userID int64) error
	Close(ctx context.Context) error
}

// Open returns the backend selected by cfg.Driver. db backs the sql driver.
func Open(ctx context.Context, cfg config.JournalConfig, db *sql.DB, sealer *Sealer) (Journal, error) {
	switch cfg.Driver {
	case "", config.JournalSQL:
		return NewSQL(db, sealer), nil
	case config.JournalMongo:
		return DialMongo(ctx, cfg.MongoURI, cfg.MongoDB, sealer)
	default:
		return nil, fmt.Errorf("unsupported journal driver: %s", cfg.Driver)
	}
}
