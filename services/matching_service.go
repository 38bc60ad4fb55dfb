package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"studysync/metrics"
	"studysync/models"
	"studysync/storage"

	"github.com/rs/zerolog"
)

// MaxCandidates bounds the potential-match feed
const MaxCandidates = 12

// MatchingService ranks candidates and records swipe decisions
type MatchingService struct {
	Store storage.Store
	Chat  *ChatService
	Log   zerolog.Logger

	// mu serializes the pair lookup with the create or update that follows it
	mu sync.Mutex
}

// SwipeResult is returned by Swipe
type SwipeResult struct {
	Success bool          `json:"success"`
	IsMatch bool          `json:"isMatch"`
	MatchID int64         `json:"matchId,omitempty"`
	Message string        `json:"message"`
	Match   *models.Match `json:"match,omitempty"`
}

func (ms *MatchingService) user(ctx context.Context, id int64) (*models.User, error) {
	u, err := ms.Store.GetUser(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newError(ErrNotFound, "User not found")
	}
	return u, err
}

// PotentialMatches returns up to MaxCandidates users sharing at least one class with
// userID, best score first. Users this user already decided on are left out, as are
// confirmed or rejected pairs.
func (ms *MatchingService) PotentialMatches(ctx context.Context, userID int64) ([]models.Candidate, error) {
	me, err := ms.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	users, err := ms.Store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	matches, err := ms.Store.ListMatchesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	decided := make(map[int64]bool, len(matches))
	for _, m := range matches {
		if m.User1ID == userID || m.Status == models.MatchStatusLiked || m.Status == models.MatchStatusRejected {
			decided[m.PartnerID(userID)] = true
		}
	}

	candidates := []models.Candidate{}
	for i := range users {
		u := &users[i]
		if u.ID == me.ID || u.NeedsSetup() || decided[u.ID] {
			continue
		}
		c := Score(me, u)
		if len(c.SharedClasses) == 0 {
			continue
		}
		candidates = append(candidates, toCandidate(u, c))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].CompatibilityScore != candidates[j].CompatibilityScore {
			return candidates[i].CompatibilityScore > candidates[j].CompatibilityScore
		}
		return candidates[i].ID < candidates[j].ID
	})
	if len(candidates) > MaxCandidates {
		candidates = candidates[:MaxCandidates]
	}
	ms.Log.Debug().Int64("user_id", userID).Int("count", len(candidates)).Msg("🔍 Potential matches computed")
	return candidates, nil
}

func toCandidate(u *models.User, c Compatibility) models.Candidate {
	return models.Candidate{
		ID:                 u.ID,
		Name:               u.FullName(),
		FirstName:          u.FirstName,
		LastName:           u.LastName,
		Major:              u.Major,
		Year:               u.Year,
		Classes:            u.Classes,
		Goals:              u.Goals,
		StudyStyle:         u.StudyStyle,
		Bio:                u.Bio,
		ProfilePictureURL:  u.ProfilePictureURL,
		CompatibilityScore: c.Score,
		SharedClasses:      c.SharedClasses,
		SharedGoals:        c.SharedGoals,
		MatchReason:        MatchReason(u, c),
		Distance:           DescribeDistance(c.DistanceKm, c.DistanceKnown),
	}
}

// Swipe records userID's decision about targetID. A like on a pair the target already
// liked makes the match mutual and opens the conversation with a system message.
func (ms *MatchingService) Swipe(ctx context.Context, userID, targetID int64, liked bool) (*SwipeResult, error) {
	if userID == 0 || targetID == 0 {
		return nil, newError(ErrValidation, "userId and targetUserId are required")
	}
	if userID == targetID {
		return nil, newError(ErrValidation, "Cannot swipe on yourself")
	}
	me, err := ms.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	target, err := ms.user(ctx, targetID)
	if err != nil {
		return nil, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	existing, err := ms.Store.FindMatchBetween(ctx, userID, targetID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if existing == nil {
		return ms.createMatch(ctx, me, target, liked)
	}

	switch {
	case existing.Status == models.MatchStatusLiked:
		return &SwipeResult{Success: true, IsMatch: true, MatchID: existing.ID, Message: "You are already matched.", Match: existing}, nil
	case existing.Status == models.MatchStatusRejected:
		return &SwipeResult{Success: true, MatchID: existing.ID, Message: "Swipe recorded", Match: existing}, nil
	case !liked:
		existing.Status = models.MatchStatusRejected
		if err := ms.Store.UpdateMatch(ctx, existing); err != nil {
			return nil, err
		}
		metrics.SwipesTotal.WithLabelValues("passed").Inc()
		return &SwipeResult{Success: true, MatchID: existing.ID, Message: "Swipe recorded", Match: existing}, nil
	case existing.User1ID == userID:
		// repeated like before the other side decided
		return &SwipeResult{Success: true, MatchID: existing.ID, Message: "Like sent!", Match: existing}, nil
	}

	existing.Status = models.MatchStatusLiked
	if err := ms.Store.UpdateMatch(ctx, existing); err != nil {
		return nil, err
	}
	metrics.SwipesTotal.WithLabelValues("matched").Inc()
	ms.Log.Info().Int64("match_id", existing.ID).Int64("user1", existing.User1ID).Int64("user2", existing.User2ID).Msg("💖 Mutual match")

	if ms.Chat != nil {
		body := fmt.Sprintf("You have matched with %s! Say Hi!", target.FullName())
		if _, err := ms.Chat.PostSystemMessage(ctx, existing.ID, userID, body); err != nil {
			ms.Log.Error().Err(err).Int64("match_id", existing.ID).Msg("❌ Failed to add match message")
		}
	}
	return &SwipeResult{
		Success: true,
		IsMatch: true,
		MatchID: existing.ID,
		Message: "It's a match! You can now chat.",
		Match:   existing,
	}, nil
}

func (ms *MatchingService) createMatch(ctx context.Context, me, target *models.User, liked bool) (*SwipeResult, error) {
	c := Score(me, target)
	m := &models.Match{
		User1ID:            me.ID,
		User2ID:            target.ID,
		CompatibilityScore: c.Score,
		SharedClasses:      c.SharedClasses,
		Status:             models.MatchStatusPending,
	}
	msg, outcome := "Like sent!", "liked"
	if !liked {
		m.Status = models.MatchStatusRejected
		msg, outcome = "Swipe recorded", "passed"
	}
	if err := ms.Store.CreateMatch(ctx, m); err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}
	metrics.SwipesTotal.WithLabelValues(outcome).Inc()
	return &SwipeResult{Success: true, MatchID: m.ID, Message: msg, Match: m}, nil
}

// UserMatches lists confirmed matches with their latest message, most recent activity first.
func (ms *MatchingService) UserMatches(ctx context.Context, userID int64) ([]models.MatchSummary, error) {
	if _, err := ms.user(ctx, userID); err != nil {
		return nil, err
	}
	matches, err := ms.Store.ListMatchesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := []models.MatchSummary{}
	for i := range matches {
		m := &matches[i]
		if !m.IsMutual() {
			continue
		}
		partner, err := ms.Store.GetUser(ctx, m.PartnerID(userID))
		if err != nil {
			ms.Log.Warn().Err(err).Int64("match_id", m.ID).Msg("⚠️ Skipping match with missing partner")
			continue
		}
		s := models.MatchSummary{
			MatchID:            m.ID,
			PartnerID:          partner.ID,
			PartnerName:        partner.FullName(),
			PartnerMajor:       partner.Major,
			CompatibilityScore: m.CompatibilityScore,
			SharedClasses:      m.SharedClasses,
			Status:             m.Status,
			CreatedAt:          m.CreatedAt,
		}
		if s.PartnerName == "" {
			s.PartnerName = strings.Split(partner.Email, "@")[0]
		}
		if last, err := ms.Store.LastMessage(ctx, m.ID); err == nil {
			ts := last.Timestamp
			s.LastMessage, s.LastMessageTime = last.Body, &ts
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return activity(out[i]).After(activity(out[j]))
	})
	return out, nil
}

func activity(s models.MatchSummary) time.Time {
	if s.LastMessageTime != nil {
		return *s.LastMessageTime
	}
	return s.CreatedAt
}

// MatchDetail returns a match with both users hydrated.
func (ms *MatchingService) MatchDetail(ctx context.Context, matchID, requesterID int64) (*models.Match, error) {
	m, err := ms.Store.GetMatch(ctx, matchID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newError(ErrNotFound, "Match not found")
	}
	if err != nil {
		return nil, err
	}
	if !m.HasUser(requesterID) {
		return nil, newError(ErrForbidden, "Not a participant of this match")
	}
	if m.User1, err = ms.Store.GetUser(ctx, m.User1ID); err != nil {
		return nil, err
	}
	if m.User2, err = ms.Store.GetUser(ctx, m.User2ID); err != nil {
		return nil, err
	}
	return m, nil
}

// ApplyAction moves a match through the client-side transitions: view marks a pending
// match viewed, like confirms a pending or viewed match, reject closes it. Only the
// user who received the like can view or confirm; for the initiator both are no-ops.
func (ms *MatchingService) ApplyAction(ctx context.Context, matchID, requesterID int64, action string) (*models.Match, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	m, err := ms.MatchDetail(ctx, matchID, requesterID)
	if err != nil {
		return nil, err
	}
	next, err := nextStatus(m.Status, strings.ToLower(strings.TrimSpace(action)), m.User1ID == requesterID)
	if err != nil {
		return nil, err
	}
	if next == m.Status {
		return m, nil
	}
	wasMutual := m.IsMutual()
	m.Status = next
	if err := ms.Store.UpdateMatch(ctx, m); err != nil {
		return nil, err
	}
	if m.IsMutual() && !wasMutual && ms.Chat != nil {
		partner := m.User1
		if partner.ID == requesterID {
			partner = m.User2
		}
		body := fmt.Sprintf("You have matched with %s! Say Hi!", partner.FullName())
		if _, err := ms.Chat.PostSystemMessage(ctx, m.ID, requesterID, body); err != nil {
			ms.Log.Error().Err(err).Int64("match_id", m.ID).Msg("❌ Failed to add match message")
		}
	}
	return m, nil
}

func nextStatus(current, action string, initiator bool) (string, error) {
	if current == models.MatchStatusRejected {
		return "", newError(ErrConflict, "Match was rejected")
	}
	switch action {
	case models.MatchActionView:
		if current == models.MatchStatusPending && !initiator {
			return models.MatchStatusViewed, nil
		}
		return current, nil
	case models.MatchActionLike:
		if initiator {
			// the initiator already liked; the partner has to answer
			return current, nil
		}
		return models.MatchStatusLiked, nil
	case models.MatchActionReject:
		return models.MatchStatusRejected, nil
	}
	return "", newError(ErrValidation, "Unknown action %q", action)
}
