// Package storage persists StudySync users, matches, messages and study sessions.
//
// Two backends implement Store: a gorm/sqlite store for local runs and tests, and a
// DynamoDB store for deployments.
package storage

import (
	"context"
	"errors"
	"fmt"

	"studysync/config"
	"studysync/models"

	"github.com/rs/zerolog"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique field (such as a user's email) is taken.
	ErrConflict = errors.New("conflict")
)

// Store is the persistence boundary used by the services.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)

	CreateMatch(ctx context.Context, m *models.Match) error
	UpdateMatch(ctx context.Context, m *models.Match) error
	GetMatch(ctx context.Context, id int64) (*models.Match, error)
	// FindMatchBetween looks a match up regardless of which user decided first.
	FindMatchBetween(ctx context.Context, userA, userB int64) (*models.Match, error)
	ListMatchesForUser(ctx context.Context, userID int64) ([]models.Match, error)

	CreateMessage(ctx context.Context, msg *models.Message) error
	// ListMessages returns a conversation in ascending (timestamp, id) order.
	ListMessages(ctx context.Context, matchID int64) ([]models.Message, error)
	LastMessage(ctx context.Context, matchID int64) (*models.Message, error)
	FindMessageByClientID(ctx context.Context, matchID int64, clientMessageID string) (*models.Message, error)

	CreateStudySession(ctx context.Context, s *models.StudySession) error
	UpdateStudySession(ctx context.Context, s *models.StudySession) error
	GetStudySession(ctx context.Context, id int64) (*models.StudySession, error)
	ListStudySessionsForUser(ctx context.Context, userID int64) ([]models.StudySession, error)

	Close() error
}

// Open returns the backend selected by cfg.Store.
func Open(ctx context.Context, cfg *config.Server, log zerolog.Logger) (Store, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		log.Info().Str("path", cfg.SQLitePath).Msg("Opening sqlite store")
		return NewSQLite(cfg.SQLitePath)
	case config.StoreDynamoDB:
		log.Info().Str("region", cfg.AWSRegion).Str("prefix", cfg.DynamoTablePrefix).Msg("Opening DynamoDB store")
		client, err := NewDynamoDBClient(ctx, cfg.AWSRegion, cfg.DynamoEndpoint)
		if err != nil {
			return nil, err
		}
		return NewDynamoStore(client, cfg.DynamoTablePrefix, log), nil
	}
	return nil, fmt.Errorf("unsupported store %q", cfg.Store)
}
