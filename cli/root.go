// Package cli is the studysync command: the API server plus a terminal client built on
// the client SDK.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	apiURL     string
	dataDir    string
	configPath string
	logLevel   string
}

// NewRootCmd constructs the studysync command tree
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "studysync",
		Short:         "StudySync API server and command line client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.apiURL, "api", "", "API base URL (default from STUDYSYNC_API_URL or config file)")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "Directory for the local identity cache (default ~/.studysync)")
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Client config file (default ~/.studysync/config.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Client log level")

	root.AddCommand(newServeCmd())
	root.AddCommand(newSignupCmd(opts))
	root.AddCommand(newLoginCmd(opts))
	root.AddCommand(newLogoutCmd(opts))
	root.AddCommand(newWhoamiCmd(opts))
	root.AddCommand(newSetupCmd(opts))
	root.AddCommand(newFeedCmd(opts))
	root.AddCommand(newMatchesCmd(opts))
	root.AddCommand(newChatCmd(opts))
	root.AddCommand(newScheduleCmd(opts))
	root.AddCommand(newSessionsCmd(opts))
	root.AddCommand(newUploadURLCmd(opts))
	root.AddCommand(newCalendarCmd(opts))
	return root
}

// Execute runs the command line and returns the process exit code
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
