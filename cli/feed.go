package cli

import (
	"bufio"
	"errors"
	"strings"
	"text/tabwriter"

	"studysync/client"
	"studysync/models"

	"github.com/spf13/cobra"
)

func newFeedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "feed",
		Short: "Browse candidates and like or pass on them",
		Long:  "Shows one candidate at a time. Answer l to like, p to pass and q to quit.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := newClientEnv(cmd, opts)
			if err != nil {
				return err
			}
			defer env.saveCookies()
			user, err := env.gate(cmd, true)
			if err != nil {
				return err
			}

			feed := client.NewFeed(env.api, user.ID, env.notify)
			if err := feed.Load(cmd.Context()); err != nil {
				return describe(err)
			}

			in := bufio.NewScanner(cmd.InOrStdin())
			for {
				cand, ok := feed.Current()
				if !ok {
					env.printf("No more candidates right now, check back later.\n")
					return nil
				}
				env.printCandidate(cand, feed.Cursor()+1, feed.Len())
				env.printf("[l]ike, [p]ass, [q]uit: ")
				if !in.Scan() {
					env.printf("\n")
					return in.Err()
				}

				var d *client.Decision
				switch strings.ToLower(strings.TrimSpace(in.Text())) {
				case "l", "like":
					d, err = feed.Like(cmd.Context())
				case "p", "pass":
					d, err = feed.Pass(cmd.Context())
				case "q", "quit":
					return nil
				default:
					continue
				}
				if errors.Is(err, client.ErrNoCandidates) {
					continue
				}
				if err != nil && client.IsAuthExpired(err) {
					return describe(err)
				}
				if d != nil && d.IsMatch {
					env.printf("Say hi with `studysync chat %d`\n", d.MatchID)
				}
			}
		},
	}
}

func (e *clientEnv) printCandidate(c models.Candidate, pos, total int) {
	name := c.Name
	if name == "" {
		name = strings.TrimSpace(c.FirstName + " " + c.LastName)
	}
	e.printf("\n(%d/%d) %s", pos, total, name)
	if c.Major != "" {
		e.printf(", %s", c.Major)
	}
	if c.Year != "" {
		e.printf(" (%s)", c.Year)
	}
	e.printf("\n  Compatibility: %d%%\n", c.CompatibilityScore)
	if len(c.SharedClasses) > 0 {
		e.printf("  Shared classes: %s\n", strings.Join(c.SharedClasses, ", "))
	}
	if c.MatchReason != "" {
		e.printf("  %s\n", c.MatchReason)
	}
	if c.Distance != "" {
		e.printf("  Distance: %s\n", c.Distance)
	}
	if c.Bio != "" {
		e.printf("  %q\n", c.Bio)
	}
}

func newMatchesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "matches",
		Short: "List your confirmed matches",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := newClientEnv(cmd, opts)
			if err != nil {
				return err
			}
			defer env.saveCookies()
			user, err := env.gate(cmd, true)
			if err != nil {
				return err
			}
			matches, err := client.NewFeed(env.api, user.ID, env.notify).Matches(cmd.Context())
			if err != nil {
				return describe(err)
			}
			if len(matches) == 0 {
				env.printf("No matches yet, try `studysync feed`\n")
				return nil
			}

			tw := tabwriter.NewWriter(env.out, 0, 4, 2, ' ', 0)
			_, _ = tw.Write([]byte("MATCH\tPARTNER\tSCORE\tSHARED\tLAST MESSAGE\n"))
			for _, m := range matches {
				last := truncate(m.LastMessage, 40)
				row := []string{
					itoa64(m.MatchID),
					m.PartnerName,
					itoa64(int64(m.CompatibilityScore)) + "%",
					strings.Join(m.SharedClasses, ","),
					last,
				}
				_, _ = tw.Write([]byte(strings.Join(row, "\t") + "\n"))
			}
			return tw.Flush()
		},
	}
}

// truncate shortens s to at most n runes, marking the cut with "..."
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
