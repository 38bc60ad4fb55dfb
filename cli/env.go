package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"studysync/client"
	"studysync/config"
	"studysync/logger"
	"studysync/models"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// clientEnv is what every client command works with
type clientEnv struct {
	cfg     *config.Client
	api     *client.Client
	cache   *client.BoltCache
	session *client.Session
	notify  client.Notifier
	log     zerolog.Logger
	out     io.Writer
}

func newClientEnv(cmd *cobra.Command, opts *rootOptions) (*clientEnv, error) {
	path := opts.configPath
	if path == "" {
		path = filepath.Join(client.DefaultDataDir(), "config.yaml")
	}
	base, err := config.LoadClientFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := config.NewClient(base)
	if err != nil {
		return nil, err
	}
	if opts.apiURL != "" {
		cfg.APIURL = opts.apiURL
	}
	if opts.dataDir != "" {
		cfg.DataDir = opts.dataDir
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}

	logger.SetLevel(cfg.LogLevel)
	log := logger.NewConsole(cmd.ErrOrStderr())

	api, err := client.New(cfg.APIURL, client.WithTimeout(cfg.Timeout), client.WithLogger(log))
	if err != nil {
		return nil, err
	}
	cache, err := client.NewBoltCache(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	cookies, err := cache.LoadCookies(api.BaseURL())
	if err != nil {
		log.Warn().Err(err).Msg("Ignoring saved session")
	}
	api.RestoreCookies(cookies)

	return &clientEnv{
		cfg:     cfg,
		api:     api,
		cache:   cache,
		session: client.NewSession(api, cache, client.WithSessionLogger(log)),
		notify:  printNotifier{out: cmd.OutOrStdout()},
		log:     log,
		out:     cmd.OutOrStdout(),
	}, nil
}

// saveCookies keeps the session cookie for the next invocation
func (e *clientEnv) saveCookies() {
	cookies := e.api.Cookies()
	if len(cookies) == 0 {
		return
	}
	if err := e.cache.SaveCookies(e.api.BaseURL(), cookies); err != nil {
		e.log.Warn().Err(err).Msg("Could not save session")
	}
}

// gate resolves the identity and applies the profile completion gate
func (e *clientEnv) gate(cmd *cobra.Command, requiresProfile bool) (*models.User, error) {
	st := e.session.Resolve(cmd.Context())
	switch client.DecideFor(st, requiresProfile) {
	case client.Login:
		return nil, errors.New("not signed in, run `studysync login` first")
	case client.Setup:
		return nil, errors.New("profile incomplete, run `studysync setup` first")
	}
	return st.User, nil
}

func (e *clientEnv) printf(format string, args ...interface{}) {
	fmt.Fprintf(e.out, format, args...)
}

// describe turns client errors into what the user should read
func describe(err error) error {
	var appErr *client.AppError
	switch {
	case errors.As(err, &appErr):
		return errors.New(appErr.Message)
	case client.IsAuthExpired(err):
		return errors.New("session expired, please sign in again with `studysync login`")
	case client.IsTransport(err):
		return fmt.Errorf("could not reach the StudySync server: %w", err)
	}
	return err
}

// printNotifier shows notices on the command output
type printNotifier struct {
	out io.Writer
}

func (n printNotifier) Success(msg string) { fmt.Fprintln(n.out, "✓ "+msg) }

func (n printNotifier) Error(msg string) { fmt.Fprintln(n.out, "✗ "+msg) }

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func userLabel(u *models.User) string {
	if name := u.FullName(); name != "" {
		return fmt.Sprintf("%s <%s>", name, u.Email)
	}
	return u.Email
}
