package client

import (
	"context"
	"sync"

	"studysync/models"
)

// Feed notices
const (
	MsgAuthLoadFailed    = "Failed to load matches. Please try signing in again."
	MsgNetworkLoadFailed = "Network error loading matches."
	MsgLikeSent          = "Like sent!"
	MsgDecisionFailed    = "Error processing like"
)

// MatchNotice is the success notice for a mutual match
func MatchNotice(name string) string {
	return "It's a match with " + name + "! 🎉"
}

// CandidateSource is the part of *Client the feed needs
type CandidateSource interface {
	PotentialMatches(ctx context.Context, userID int64) ([]models.Candidate, error)
	Swipe(ctx context.Context, userID, targetUserID int64, liked bool) (*SwipeResult, error)
	Matches(ctx context.Context, userID int64) ([]models.MatchSummary, error)
}

// Decision is the outcome of Like or Pass
type Decision struct {
	Candidate models.Candidate
	Liked     bool
	IsMatch   bool
	MatchID   int64
	// Refetched is set when the decision exhausted the feed and candidates were reloaded
	Refetched bool
}

// Feed walks the candidate list with a cursor
type Feed struct {
	src    CandidateSource
	userID int64
	notify Notifier

	mu         sync.Mutex
	candidates []models.Candidate
	cursor     int
	matches    []models.MatchSummary
}

// NewFeed returns an empty feed; call Load before deciding. notifier may be nil.
func NewFeed(src CandidateSource, userID int64, notifier Notifier) *Feed {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Feed{src: src, userID: userID, notify: notifier}
}

// reportFetchError separates expired sessions from other failures
func (f *Feed) reportFetchError(err error) {
	if IsAuthExpired(err) {
		f.notify.Error(MsgAuthLoadFailed)
		return
	}
	f.notify.Error(MsgNetworkLoadFailed)
}

// Load fetches candidates and resets the cursor to 0
func (f *Feed) Load(ctx context.Context) error {
	candidates, err := f.src.PotentialMatches(ctx, f.userID)
	if err != nil {
		f.reportFetchError(err)
		return err
	}
	f.mu.Lock()
	f.candidates = candidates
	f.cursor = 0
	f.mu.Unlock()
	return nil
}

// Current returns the candidate under the cursor
func (f *Feed) Current() (models.Candidate, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cursor >= len(f.candidates) {
		return models.Candidate{}, false
	}
	return f.candidates[f.cursor], true
}

// Cursor is the zero-based position in the last fetched list
func (f *Feed) Cursor() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cursor
}

// Len is the size of the last fetched list
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.candidates)
}

// Like records a like on the current candidate
func (f *Feed) Like(ctx context.Context) (*Decision, error) {
	return f.recordDecision(ctx, true)
}

// Pass records a pass on the current candidate
func (f *Feed) Pass(ctx context.Context) (*Decision, error) {
	return f.recordDecision(ctx, false)
}

// recordDecision posts the decision and advances the cursor. Deciding on the last
// candidate re-fetches once and resets the cursor. A failed post still advances.
func (f *Feed) recordDecision(ctx context.Context, liked bool) (*Decision, error) {
	f.mu.Lock()
	if f.cursor >= len(f.candidates) {
		f.mu.Unlock()
		return nil, ErrNoCandidates
	}
	cand := f.candidates[f.cursor]
	f.mu.Unlock()

	d := &Decision{Candidate: cand, Liked: liked}
	res, swipeErr := f.src.Swipe(ctx, f.userID, cand.ID, liked)
	switch {
	case swipeErr != nil:
		f.notify.Error(MsgDecisionFailed)
	case res.IsMatch:
		d.IsMatch, d.MatchID = true, res.MatchID
		f.notify.Success(MatchNotice(displayName(cand)))
		_, _ = f.Matches(ctx)
	case liked:
		f.notify.Success(MsgLikeSent)
	}

	f.mu.Lock()
	exhausted := f.cursor >= len(f.candidates)-1
	if !exhausted {
		f.cursor++
	}
	f.mu.Unlock()

	if exhausted {
		d.Refetched = true
		if err := f.Load(ctx); err != nil {
			f.mu.Lock()
			f.candidates, f.cursor = nil, 0
			f.mu.Unlock()
			if swipeErr == nil {
				return d, err
			}
		}
	}
	return d, swipeErr
}

func displayName(c models.Candidate) string {
	if c.Name != "" {
		return c.Name
	}
	return c.FirstName
}

// Matches fetches the confirmed matches
func (f *Feed) Matches(ctx context.Context) ([]models.MatchSummary, error) {
	matches, err := f.src.Matches(ctx, f.userID)
	if err != nil {
		f.reportFetchError(err)
		return nil, err
	}
	f.mu.Lock()
	f.matches = matches
	f.mu.Unlock()
	return matches, nil
}

// LastMatches returns the result of the latest successful Matches call
func (f *Feed) LastMatches() []models.MatchSummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.MatchSummary(nil), f.matches...)
}
