package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"studysync/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormStore is a Store backed by gorm. NewSQLite opens it on a sqlite file.
type GormStore struct {
	db *gorm.DB
}

// NewSQLite opens (or creates) a sqlite database and migrates the schema.
// Use ":memory:" for a private in-memory database.
func NewSQLite(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; an in-memory database also lives on a single connection.
	sqlDB.SetMaxOpenConns(1)

	return NewGormStore(db)
}

// NewGormStore wraps an open gorm handle and migrates the schema.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&models.User{}, &models.Match{}, &models.Message{}, &models.StudySession{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	}
	return err
}

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("create user %s: %w", u.Email, translate(err))
	}
	return nil
}

func (s *GormStore) UpdateUser(ctx context.Context, u *models.User) error {
	if err := s.db.WithContext(ctx).Save(u).Error; err != nil {
		return fmt.Errorf("update user %d: %w", u.ID, translate(err))
	}
	return nil
}

func (s *GormStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, translate(err))
	}
	return &u, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, fmt.Errorf("get user %s: %w", email, translate(err))
	}
	return &u, nil
}

func (s *GormStore) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *GormStore) CreateMatch(ctx context.Context, m *models.Match) error {
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("create match: %w", translate(err))
	}
	return nil
}

func (s *GormStore) UpdateMatch(ctx context.Context, m *models.Match) error {
	if err := s.db.WithContext(ctx).Save(m).Error; err != nil {
		return fmt.Errorf("update match %d: %w", m.ID, translate(err))
	}
	return nil
}

func (s *GormStore) GetMatch(ctx context.Context, id int64) (*models.Match, error) {
	var m models.Match
	if err := s.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, fmt.Errorf("get match %d: %w", id, translate(err))
	}
	return &m, nil
}

func (s *GormStore) FindMatchBetween(ctx context.Context, userA, userB int64) (*models.Match, error) {
	var m models.Match
	err := s.db.WithContext(ctx).
		Where("(user1_id = ? AND user2_id = ?) OR (user1_id = ? AND user2_id = ?)", userA, userB, userB, userA).
		Order("id").
		First(&m).Error
	if err != nil {
		return nil, fmt.Errorf("find match %d/%d: %w", userA, userB, translate(err))
	}
	return &m, nil
}

func (s *GormStore) ListMatchesForUser(ctx context.Context, userID int64) ([]models.Match, error) {
	var matches []models.Match
	err := s.db.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("id").
		Find(&matches).Error
	if err != nil {
		return nil, fmt.Errorf("list matches for %d: %w", userID, err)
	}
	return matches, nil
}

func (s *GormStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("create message: %w", translate(err))
	}
	return nil
}

func (s *GormStore) ListMessages(ctx context.Context, matchID int64) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("timestamp asc, id asc").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("list messages for match %d: %w", matchID, err)
	}
	return msgs, nil
}

func (s *GormStore) LastMessage(ctx context.Context, matchID int64) (*models.Message, error) {
	var msg models.Message
	err := s.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("timestamp desc, id desc").
		First(&msg).Error
	if err != nil {
		return nil, fmt.Errorf("last message for match %d: %w", matchID, translate(err))
	}
	return &msg, nil
}

func (s *GormStore) FindMessageByClientID(ctx context.Context, matchID int64, clientMessageID string) (*models.Message, error) {
	var msg models.Message
	err := s.db.WithContext(ctx).
		Where("match_id = ? AND client_message_id = ?", matchID, clientMessageID).
		First(&msg).Error
	if err != nil {
		return nil, fmt.Errorf("find message %s: %w", clientMessageID, translate(err))
	}
	return &msg, nil
}

func (s *GormStore) CreateStudySession(ctx context.Context, ss *models.StudySession) error {
	if err := s.db.WithContext(ctx).Create(ss).Error; err != nil {
		return fmt.Errorf("create study session: %w", translate(err))
	}
	return nil
}

func (s *GormStore) UpdateStudySession(ctx context.Context, ss *models.StudySession) error {
	if err := s.db.WithContext(ctx).Save(ss).Error; err != nil {
		return fmt.Errorf("update study session %d: %w", ss.ID, translate(err))
	}
	return nil
}

func (s *GormStore) GetStudySession(ctx context.Context, id int64) (*models.StudySession, error) {
	var ss models.StudySession
	if err := s.db.WithContext(ctx).First(&ss, id).Error; err != nil {
		return nil, fmt.Errorf("get study session %d: %w", id, translate(err))
	}
	return &ss, nil
}

// ListStudySessionsForUser filters participants in Go: the id list is stored as JSON.
func (s *GormStore) ListStudySessionsForUser(ctx context.Context, userID int64) ([]models.StudySession, error) {
	var all []models.StudySession
	if err := s.db.WithContext(ctx).Order("start_time asc, id asc").Find(&all).Error; err != nil {
		return nil, fmt.Errorf("list study sessions: %w", err)
	}
	out := make([]models.StudySession, 0, len(all))
	for _, ss := range all {
		if ss.HasParticipant(userID) {
			out = append(out, ss)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
