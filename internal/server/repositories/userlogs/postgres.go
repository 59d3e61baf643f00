package userlogs

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/jazzyauth/internal/dbx"
	"github.com/dmitrijs2005/jazzyauth/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, userID int64, event string) error {
	query := `
		INSERT INTO user_logs (user_id, event)
		VALUES ($1, $2)
	`
	if _, err := r.db.ExecContext(ctx, query, userID, event); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*models.UserLog, error) {
	query := `
		SELECT id, user_id, event, timestamp
		FROM user_logs
		WHERE user_id = $1
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.UserLog, 0)
	for rows.Next() {
		l := &models.UserLog{}
		if err := rows.Scan(&l.ID, &l.UserID, &l.Event, &l.Timestamp); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
