package cli

import (
	"errors"
	"strings"

	"studysync/client"
	"studysync/models"

	"github.com/spf13/cobra"
)

func newSignupCmd(opts *rootOptions) *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account with email and password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := newClientEnv(cmd, opts)
			if err != nil {
				return err
			}
			defer env.saveCookies()
			if password == "" {
				if password, err = readLine(cmd.InOrStdin()); err != nil {
					return err
				}
			}
			user, err := env.session.Signup(cmd.Context(), name, email, password)
			if err != nil {
				var appErr *client.AppError
				if errors.As(err, &appErr) && appErr.UserExists {
					return errors.New(appErr.Message + ", try `studysync login`")
				}
				return describe(err)
			}
			env.reportSignedIn(user, "Account created")
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Full name")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password (read from stdin when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := newClientEnv(cmd, opts)
			if err != nil {
				return err
			}
			defer env.saveCookies()
			if password == "" {
				if password, err = readLine(cmd.InOrStdin()); err != nil {
					return err
				}
			}
			user, err := env.session.Login(cmd.Context(), email, password)
			if client.IsAuthExpired(err) {
				return errors.New("invalid email or password")
			}
			if err != nil {
				return describe(err)
			}
			env.reportSignedIn(user, "Signed in")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password (read from stdin when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// reportSignedIn prints the identity and where the user goes next
func (e *clientEnv) reportSignedIn(user *models.User, verb string) {
	st := e.session.State()
	suffix := ""
	if st.Local {
		suffix = " (offline, not yet confirmed by the server)"
	}
	e.printf("%s as %s%s\n", verb, userLabel(user), suffix)

	route := client.DecideAuthRoute(client.GateInput{
		IsAuthenticated:  st.IsAuthenticated,
		ProfileCompleted: user.ProfileCompleted,
		Major:            user.Major,
	})
	switch route {
	case client.Setup:
		e.printf("Next: complete your profile with `studysync setup`\n")
	case client.Dashboard:
		e.printf("Next: find study partners with `studysync feed`\n")
	}
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the cached identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := newClientEnv(cmd, opts)
			if err != nil {
				return err
			}
			if err := env.session.Logout(cmd.Context()); err != nil {
				return err
			}
			env.printf("Logged out\n")
			return nil
		},
	}
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := newClientEnv(cmd, opts)
			if err != nil {
				return err
			}
			defer env.saveCookies()
			st := env.session.Resolve(cmd.Context())
			if !st.IsAuthenticated || st.User == nil {
				env.printf("Not signed in\n")
				return nil
			}
			u := st.User
			env.printf("%s\n", userLabel(u))
			if u.Major != "" {
				env.printf("Major: %s\n", u.Major)
			}
			if len(u.Classes) > 0 {
				env.printf("Classes: %s\n", strings.Join(u.Classes, ", "))
			}
			if u.NeedsSetup() {
				env.printf("Profile: incomplete\n")
			} else {
				env.printf("Profile: complete\n")
			}
			if st.Local {
				env.printf("Identity: offline\n")
			}
			return nil
		},
	}
}

func newSetupCmd(opts *rootOptions) *cobra.Command {
	var p client.Profile
	var prefersGroups bool
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Complete or update your study profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := newClientEnv(cmd, opts)
			if err != nil {
				return err
			}
			defer env.saveCookies()
			if _, err := env.gate(cmd, false); err != nil {
				return err
			}
			if cmd.Flags().Changed("prefers-groups") {
				p.PrefersGroups = &prefersGroups
			}
			user, err := env.session.CompleteProfile(cmd.Context(), p)
			if err != nil {
				return describe(err)
			}
			if env.session.State().Local {
				env.printf("Profile saved locally for %s\n", userLabel(user))
				return nil
			}
			env.printf("Profile saved for %s\n", userLabel(user))
			if !user.NeedsSetup() {
				env.printf("Next: find study partners with `studysync feed`\n")
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&p.FirstName, "first-name", "", "First name")
	f.StringVar(&p.LastName, "last-name", "", "Last name")
	f.StringVar(&p.Major, "major", "", "Major")
	f.StringVar(&p.Year, "year", "", "Year, e.g. Sophomore")
	f.StringSliceVar(&p.Classes, "classes", nil, "Course codes, e.g. CSE110,MAT265")
	f.StringSliceVar(&p.Goals, "goals", nil, "Study goals")
	f.StringVar(&p.StudyStyle, "study-style", "", "Preferred study style")
	f.StringSliceVar(&p.PreferredLocations, "locations", nil, "Preferred study locations")
	f.BoolVar(&prefersGroups, "prefers-groups", false, "Prefer group sessions")
	f.StringVar(&p.Bio, "bio", "", "Short bio")
	f.StringVar(&p.Location, "location", "", "Where you usually study from")
	return cmd
}
