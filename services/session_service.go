package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"studysync/models"
	"studysync/storage"

	"github.com/rs/zerolog"
)

// StudySessionService schedules study sessions between matched users
type StudySessionService struct {
	Store storage.Store
	Chat  *ChatService
	Log   zerolog.Logger
}

// CreateSessionInput is the body of POST /api/sessions/create
type CreateSessionInput struct {
	Title       string    `json:"title"`
	Course      string    `json:"course"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	OrganizerID int64     `json:"organizerId"`
	MatchID     int64     `json:"matchId"`
}

// Create stores a session with the organizer as first participant. When the session
// belongs to a match, a system message is added to that conversation.
func (ss *StudySessionService) Create(ctx context.Context, in CreateSessionInput) (*models.StudySession, error) {
	in.Title = strings.TrimSpace(in.Title)
	switch {
	case in.OrganizerID == 0:
		return nil, newError(ErrValidation, "organizerId is required")
	case in.Title == "":
		return nil, newError(ErrValidation, "Title is required")
	case in.StartTime.IsZero() || in.EndTime.IsZero():
		return nil, newError(ErrValidation, "Start and end time are required")
	case !in.EndTime.After(in.StartTime):
		return nil, newError(ErrValidation, "End time must be after start time")
	}

	if _, err := ss.Store.GetUser(ctx, in.OrganizerID); errors.Is(err, storage.ErrNotFound) {
		return nil, newError(ErrNotFound, "Organizer not found")
	} else if err != nil {
		return nil, err
	}

	participants := []int64{in.OrganizerID}
	if in.MatchID != 0 {
		if ss.Chat == nil {
			return nil, fmt.Errorf("chat service not configured")
		}
		m, err := ss.Chat.Authorize(ctx, in.MatchID, in.OrganizerID)
		if err != nil {
			return nil, err
		}
		if !m.IsMutual() {
			return nil, newError(ErrConflict, "Sessions can only be scheduled with confirmed matches")
		}
	}

	s := &models.StudySession{
		MatchID:        in.MatchID,
		OrganizerID:    in.OrganizerID,
		Title:          in.Title,
		Course:         strings.TrimSpace(in.Course),
		Description:    strings.TrimSpace(in.Description),
		Location:       strings.TrimSpace(in.Location),
		StartTime:      in.StartTime.UTC(),
		EndTime:        in.EndTime.UTC(),
		ParticipantIDs: participants,
		CreatedAt:      time.Now().UTC(),
	}
	if err := ss.Store.CreateStudySession(ctx, s); err != nil {
		return nil, fmt.Errorf("create study session: %w", err)
	}
	ss.Log.Info().Int64("session_id", s.ID).Int64("organizer_id", s.OrganizerID).Msg("📅 Study session created")

	if s.MatchID != 0 {
		body := ScheduledMessage(s)
		if _, err := ss.Chat.PostSystemMessage(ctx, s.MatchID, s.OrganizerID, body); err != nil {
			ss.Log.Error().Err(err).Int64("session_id", s.ID).Msg("❌ Failed to announce session")
		}
	}
	return s, nil
}

// ScheduledMessage is the conversation notice for a new session.
func ScheduledMessage(s *models.StudySession) string {
	msg := "📅 Study session scheduled for " + s.StartTime.Format("Mon Jan 2, 3:04 PM MST")
	if s.Location != "" {
		msg += " at " + s.Location
	}
	return msg
}

// ForUser lists the sessions the user takes part in, soonest first.
func (ss *StudySessionService) ForUser(ctx context.Context, userID int64) ([]models.StudySession, error) {
	sessions, err := ss.Store.ListStudySessionsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []models.StudySession{}
	}
	return sessions, nil
}

// Join adds the user to a session. Joining twice is a no-op.
func (ss *StudySessionService) Join(ctx context.Context, sessionID, userID int64) (*models.StudySession, error) {
	s, err := ss.Store.GetStudySession(ctx, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newError(ErrNotFound, "Study session not found")
	}
	if err != nil {
		return nil, err
	}
	if s.HasParticipant(userID) {
		return s, nil
	}
	if s.MatchID != 0 && ss.Chat != nil {
		if _, err := ss.Chat.Authorize(ctx, s.MatchID, userID); err != nil {
			return nil, err
		}
	}
	s.ParticipantIDs = append(s.ParticipantIDs, userID)
	if err := ss.Store.UpdateStudySession(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}
