package cli

import (
	"bufio"
	"fmt"
	"strconv"
	"time"

	"studysync/client"
	"studysync/models"

	"github.com/spf13/cobra"
)

const dialMaxElapsed = 10 * time.Second

func itoa64(v int64) string { return strconv.FormatInt(v, 10) }

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, arg)
	}
	return id, nil
}

func newChatCmd(opts *rootOptions) *cobra.Command {
	var message string
	var pollOnly bool
	cmd := &cobra.Command{
		Use:   "chat <matchId>",
		Short: "Open the conversation of a match",
		Long: "Prints the conversation and keeps it live. Each line typed is sent as a message.\n" +
			"With --message, one message is sent and the command exits.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			matchID, err := parseID(args[0], "match id")
			if err != nil {
				return err
			}
			env, err := newClientEnv(cmd, opts)
			if err != nil {
				return err
			}
			defer env.saveCookies()
			user, err := env.gate(cmd, true)
			if err != nil {
				return err
			}

			chOpts := client.ChannelOptions{
				PollInterval: env.cfg.PollInterval,
				Notifier:     env.notify,
				Log:          env.log,
			}
			if !pollOnly && message == "" {
				chOpts.Dial = client.WebsocketDialer(env.api, dialMaxElapsed, env.log)
			}
			ch, err := client.OpenChannel(cmd.Context(), env.api, matchID, user, chOpts)
			if err != nil {
				return describe(err)
			}
			defer ch.Close()

			printed := map[string]bool{}
			env.printNew(ch.Messages(), printed)

			if message != "" {
				msg, err := ch.Send(cmd.Context(), message)
				if err != nil {
					return describe(err)
				}
				env.printNew([]models.Message{*msg}, printed)
				return nil
			}

			if ch.Realtime() {
				env.printf("-- live, type a message and press enter --\n")
			} else {
				env.printf("-- polling every %s, type a message and press enter --\n", env.cfg.PollInterval)
			}

			lines := make(chan string)
			done := make(chan struct{})
			defer close(done)
			go func() {
				defer close(lines)
				in := bufio.NewScanner(cmd.InOrStdin())
				for in.Scan() {
					select {
					case lines <- in.Text():
					case <-done:
						return
					}
				}
			}()

			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case <-ch.Updates():
					env.printNew(ch.Messages(), printed)
				case line, ok := <-lines:
					if !ok {
						return nil
					}
					if msg, err := ch.Send(cmd.Context(), line); err == nil {
						env.printNew([]models.Message{*msg}, printed)
					}
				}
			}
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Send one message and exit")
	cmd.Flags().BoolVar(&pollOnly, "poll-only", false, "Do not open the realtime connection")
	return cmd
}

func messageKey(m models.Message) string {
	if m.ClientMessageID != "" {
		return "c:" + m.ClientMessageID
	}
	return "i:" + itoa64(m.ID)
}

// printNew prints messages not shown yet, in the order given
func (e *clientEnv) printNew(msgs []models.Message, printed map[string]bool) {
	for _, m := range msgs {
		key := messageKey(m)
		if printed[key] {
			continue
		}
		printed[key] = true
		ts := m.Timestamp.Local().Format("Jan 2 15:04")
		if m.MessageType == models.MessageTypeSystem {
			e.printf("[%s] * %s\n", ts, m.Body)
			continue
		}
		sender := m.SenderName
		if sender == "" {
			sender = "user " + itoa64(m.SenderID)
		}
		e.printf("[%s] %s: %s\n", ts, sender, m.Body)
	}
}
