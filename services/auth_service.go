package services

import (
	"context"
	"errors"
	"strings"

	"studysync/models"
	"studysync/storage"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// AuthService handles email signup/login and profile completion
type AuthService struct {
	Store storage.Store
	Log   zerolog.Logger
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost
	Cost int
}

// ProfileUpdate holds the fields accepted by profile completion. Empty values leave
// the stored field untouched.
type ProfileUpdate struct {
	FirstName          string              `json:"firstName"`
	LastName           string              `json:"lastName"`
	Major              string              `json:"major"`
	Year               string              `json:"year"`
	StudentYear        string              `json:"studentYear"`
	Classes            []string            `json:"classes"`
	Goals              []string            `json:"goals"`
	StudyGoal          string              `json:"studyGoal"`
	StudyStyle         string              `json:"studyStyle"`
	Availability       map[string][]string `json:"availability"`
	PreferredLocations []string            `json:"preferredLocations"`
	PrefersGroups      *bool               `json:"prefersGroups"`
	Bio                string              `json:"bio"`
	Location           string              `json:"location"`
	Latitude           *float64            `json:"latitude"`
	Longitude          *float64            `json:"longitude"`
	ProfilePictureURL  string              `json:"profilePictureUrl"`
}

// SplitName splits a display name into first and last name on the first space.
func SplitName(name string) (string, string) {
	name = strings.TrimSpace(name)
	first, last, _ := strings.Cut(name, " ")
	return first, strings.TrimSpace(last)
}

// Signup creates an email/password account. An empty name falls back to the email.
func (as *AuthService) Signup(ctx context.Context, name, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, newError(ErrValidation, "Email and password are required")
	}
	if !strings.Contains(email, "@") {
		return nil, newError(ErrValidation, "A valid email address is required")
	}
	if len(password) < minPasswordLength {
		return nil, newError(ErrValidation, "Password must be at least %d characters", minPasswordLength)
	}

	if _, err := as.Store.GetUserByEmail(ctx, email); err == nil {
		return nil, newError(ErrUserExists, "User with this email already exists")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), as.cost())
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		name = email
	}
	first, last := SplitName(name)
	u := &models.User{Email: email, PasswordHash: string(hash), FirstName: first, LastName: last}
	if err := as.Store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, newError(ErrUserExists, "User with this email already exists")
		}
		return nil, err
	}
	as.Log.Info().Int64("user_id", u.ID).Str("email", email).Msg("✅ User signed up")
	return u, nil
}

// Login checks an email/password pair.
func (as *AuthService) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, newError(ErrValidation, "Email and password are required")
	}
	u, err := as.Store.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newError(ErrInvalidCredentials, "Invalid email or password")
	}
	if err != nil {
		return nil, err
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		as.Log.Warn().Str("email", email).Msg("❌ Failed login")
		return nil, newError(ErrInvalidCredentials, "Invalid email or password")
	}
	return u, nil
}

// CurrentUser loads the user bound to a session.
func (as *AuthService) CurrentUser(ctx context.Context, userID int64) (*models.User, error) {
	u, err := as.Store.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newError(ErrNotFound, "User not found")
	}
	return u, err
}

// CompleteProfile applies the setup form. The profile counts as completed once a major is set.
func (as *AuthService) CompleteProfile(ctx context.Context, userID int64, p ProfileUpdate) (*models.User, error) {
	u, err := as.CurrentUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ApplyProfile(u, p)
	u.ProfileCompleted = strings.TrimSpace(u.Major) != ""
	if err := as.Store.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	as.Log.Info().Int64("user_id", u.ID).Bool("completed", u.ProfileCompleted).Msg("✅ Profile updated")
	return u, nil
}

// ApplyProfile copies the non-empty fields of p onto u.
func ApplyProfile(u *models.User, p ProfileUpdate) {
	setString := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	setString(&u.FirstName, p.FirstName)
	setString(&u.LastName, p.LastName)
	setString(&u.Major, p.Major)
	setString(&u.Year, p.StudentYear)
	setString(&u.Year, p.Year)
	setString(&u.StudyStyle, p.StudyStyle)
	setString(&u.Bio, p.Bio)
	setString(&u.Location, p.Location)
	setString(&u.ProfilePictureURL, p.ProfilePictureURL)

	if p.Classes != nil {
		u.Classes = normalizeClasses(p.Classes)
	}
	if p.Goals != nil {
		u.Goals = trimAll(p.Goals)
	} else if g := strings.TrimSpace(p.StudyGoal); g != "" {
		u.Goals = []string{g}
	}
	if p.Availability != nil {
		u.Availability = p.Availability
	}
	if p.PreferredLocations != nil {
		u.PreferredLocations = trimAll(p.PreferredLocations)
	}
	if p.PrefersGroups != nil {
		u.PrefersGroups = *p.PrefersGroups
	}
	if p.Latitude != nil && p.Longitude != nil {
		u.Latitude, u.Longitude = p.Latitude, p.Longitude
	}
}

// FindOrCreateOAuthUser returns the account for a provider-verified email, creating it
// without a password on first login.
func (as *AuthService) FindOrCreateOAuthUser(ctx context.Context, email, name, picture string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, newError(ErrValidation, "Provider did not return an email address")
	}
	u, err := as.Store.GetUserByEmail(ctx, email)
	if err == nil {
		if picture != "" && picture != u.ProfilePictureURL {
			u.ProfilePictureURL = picture
			if err := as.Store.UpdateUser(ctx, u); err != nil {
				return nil, err
			}
		}
		return u, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		name = email
	}
	first, last := SplitName(name)
	u = &models.User{Email: email, FirstName: first, LastName: last, ProfilePictureURL: picture}
	if err := as.Store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	as.Log.Info().Int64("user_id", u.ID).Str("email", email).Msg("✅ OAuth user created")
	return u, nil
}

func (as *AuthService) cost() int {
	if as.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return as.Cost
}

func normalizeClasses(classes []string) []string {
	out := make([]string, 0, len(classes))
	seen := make(map[string]bool, len(classes))
	for _, c := range classes {
		c = strings.ToUpper(strings.Join(strings.Fields(c), ""))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
