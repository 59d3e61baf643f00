package clients

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/jazzyauth/internal/common"
	"github.com/dmitrijs2005/jazzyauth/internal/dbx"
	"github.com/dmitrijs2005/jazzyauth/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, client *models.OAuth2Client) (*models.OAuth2Client, error) {
	query := `
		INSERT INTO oauth2_clients (client_id, client_secret_hash, redirect_uris, user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	var userID sql.NullInt64
	if client.UserID != 0 {
		userID = sql.NullInt64{Int64: client.UserID, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		client.ClientID, client.ClientSecretHash, strings.Join(client.RedirectURIs, ","), userID).
		Scan(&client.ID, &client.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return client, nil
}

func (r *PostgresRepository) GetByClientID(ctx context.Context, clientID string) (*models.OAuth2Client, error) {
	query := `
		SELECT id, client_id, client_secret_hash, redirect_uris, user_id, created_at
		FROM oauth2_clients
		WHERE client_id = $1
	`
	c := &models.OAuth2Client{}
	var uris string
	var userID sql.NullInt64
	err := r.db.QueryRowContext(ctx, query, clientID).
		Scan(&c.ID, &c.ClientID, &c.ClientSecretHash, &uris, &userID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	c.RedirectURIs = splitURIs(uris)
	c.UserID = userID.Int64
	return c, nil
}

func splitURIs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
