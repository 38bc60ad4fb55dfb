package client

import "strings"

// Route is the outcome of the profile completion gate
type Route int

const (
	// Wait means identity resolution is still in flight
	Wait Route = iota
	// Login sends the user to the login view
	Login
	// Setup sends the user to profile setup
	Setup
	// Requested renders the requested view
	Requested
	// Dashboard is used by DecideAuthRoute for signed-in users
	Dashboard
)

func (r Route) String() string {
	switch r {
	case Wait:
		return "wait"
	case Login:
		return "login"
	case Setup:
		return "setup"
	case Requested:
		return "requested"
	case Dashboard:
		return "dashboard"
	}
	return "unknown"
}

// GateInput is everything the gate looks at
type GateInput struct {
	Loading          bool
	IsAuthenticated  bool
	ProfileCompleted bool
	Major            string
	RequiresProfile  bool
}

// Decide applies the rules in order: loading waits, anonymous users log in, views that
// need a profile send incomplete profiles to setup, everything else renders.
func Decide(in GateInput) Route {
	switch {
	case in.Loading:
		return Wait
	case !in.IsAuthenticated:
		return Login
	case in.RequiresProfile && (!in.ProfileCompleted || strings.TrimSpace(in.Major) == ""):
		return Setup
	}
	return Requested
}

// DecideFor evaluates the gate against a session state
func DecideFor(st State, requiresProfile bool) Route {
	return Decide(inputFor(st, requiresProfile))
}

func inputFor(st State, requiresProfile bool) GateInput {
	in := GateInput{Loading: st.Loading, IsAuthenticated: st.IsAuthenticated, RequiresProfile: requiresProfile}
	if st.User != nil {
		in.ProfileCompleted = st.User.ProfileCompleted
		in.Major = st.User.Major
	}
	return in
}

// DecideAuthRoute guards the login and signup views: signed-in users are sent on to
// setup or the dashboard.
func DecideAuthRoute(in GateInput) Route {
	switch {
	case in.Loading:
		return Wait
	case !in.IsAuthenticated:
		return Requested
	case !in.ProfileCompleted || strings.TrimSpace(in.Major) == "":
		return Setup
	}
	return Dashboard
}
