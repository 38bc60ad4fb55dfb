package services

import (
	"fmt"
	"math"
	"strings"

	"studysync/models"
)

// Compatibility is the pairwise score between a user and a candidate
type Compatibility struct {
	Score         int // 0..100
	SharedClasses []string
	SharedGoals   []string
	DistanceKm    float64
	DistanceKnown bool
}

// Score compares user with candidate. Classes and goals compare case-insensitively and
// keep user's ordering.
func Score(user, candidate *models.User) Compatibility {
	c := Compatibility{
		SharedClasses: intersectFold(user.Classes, candidate.Classes),
		SharedGoals:   intersectFold(user.Goals, candidate.Goals),
	}
	c.DistanceKm, c.DistanceKnown = UserDistanceKm(user, candidate)

	score := 0.0
	if len(c.SharedClasses) > 0 {
		maxClasses := math.Max(float64(len(user.Classes)), float64(len(candidate.Classes)))
		score += 0.4 * float64(len(c.SharedClasses)) / maxClasses
	}
	if user.StudyStyle != "" && candidate.StudyStyle != "" {
		if strings.EqualFold(user.StudyStyle, candidate.StudyStyle) {
			score += 0.3
		} else {
			score += 0.15
		}
	}
	if len(user.Goals) > 0 && len(candidate.Goals) > 0 {
		if len(c.SharedGoals) > 0 {
			score += 0.2
		} else {
			score += 0.1
		}
	}
	if c.DistanceKnown && c.DistanceKm <= NearbyRadiusKm {
		score += 0.1
	}
	c.Score = int(math.Round(math.Min(1.0, score) * 100))
	return c
}

// MatchReason summarizes why a candidate was suggested.
func MatchReason(candidate *models.User, c Compatibility) string {
	var b strings.Builder
	n := len(c.SharedClasses)
	fmt.Fprintf(&b, "You both share %d class", n)
	if n != 1 {
		b.WriteString("es")
	}
	if len(c.SharedGoals) > 0 {
		b.WriteString(" and have similar goals like ")
		b.WriteString(c.SharedGoals[0])
		if len(c.SharedGoals) > 1 {
			b.WriteString(" and more")
		}
		b.WriteString(".")
	} else {
		b.WriteString(", making collaboration easier.")
	}
	if style := strings.TrimSpace(candidate.StudyStyle); style != "" {
		b.WriteString(" Their preferred study style is ")
		b.WriteString(strings.ReplaceAll(strings.ToLower(style), "_", " "))
		b.WriteString(".")
	}
	return b.String()
}

func intersectFold(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return []string{}
	}
	set := make(map[string]bool, len(b))
	for _, v := range b {
		set[strings.ToUpper(strings.TrimSpace(v))] = true
	}
	out := []string{}
	seen := map[string]bool{}
	for _, v := range a {
		key := strings.ToUpper(strings.TrimSpace(v))
		if key != "" && set[key] && !seen[key] {
			seen[key] = true
			out = append(out, v)
		}
	}
	return out
}
