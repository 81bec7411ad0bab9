package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/ergoauth/internal/client/api"
	"github.com/dmitrijs2005/ergoauth/internal/client/config"
	"github.com/dmitrijs2005/ergoauth/internal/logging"
	"github.com/spf13/cobra"
)

const AppName = "authctl"

type App struct {
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	root *cobra.Command

	configPath string
	serverURL  string
	session    string
	timeout    time.Duration
	logLevel   string

	config *config.Config
	logger logging.Logger
	store  *api.FileStore
	client *api.Client
}

// NewApp builds the command tree. Prompts read from in; results go to out and
// diagnostics to errOut.
func NewApp(in io.Reader, out, errOut io.Writer) *App {
	a := &App{in: bufio.NewReader(in), out: out, errOut: errOut}

	a.root = &cobra.Command{
		Use:               AppName,
		Short:             "authctl talks to the ergoauth session API",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	a.root.SetIn(in)
	a.root.SetOut(out)
	a.root.SetErr(errOut)

	pf := a.root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "path to a JSON config file")
	pf.StringVarP(&a.serverURL, "server", "a", "", "base URL of the auth server")
	pf.StringVarP(&a.session, "session", "s", "", "session file")
	pf.DurationVarP(&a.timeout, "timeout", "t", 0, "request timeout")
	pf.StringVar(&a.logLevel, "log-level", "warn", "debug, info, warn or error")

	a.root.AddCommand(
		a.registerCmd(),
		a.loginCmd(),
		a.meCmd(),
		a.refreshCmd(),
		a.logoutCmd(),
	)
	return a
}

// setup loads the config, applies flag overrides and restores the session.
func (a *App) setup(cmd *cobra.Command, _ []string) error {
	logger, err := logging.New("zerolog", a.logLevel, a.errOut)
	if err != nil {
		return err
	}
	a.logger = logger

	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.ServerURL = a.serverURL
	}
	if flags.Changed("session") {
		cfg.SessionFile = a.session
	}
	if flags.Changed("timeout") && a.timeout > 0 {
		cfg.Timeout = a.timeout
	}
	a.config = cfg

	a.store = api.NewFileStore(cfg.SessionFile)
	sess, err := a.store.Load()
	if err != nil {
		return err
	}
	a.client = api.NewClient(cfg.ServerURL, cfg.Timeout, sess)

	a.logger.Debug(cmd.Context(), "config loaded", "server", cfg.ServerURL, "session_file", cfg.SessionFile)
	return nil
}

// persist writes the current cookies, or removes the file when none remain.
func (a *App) persist() error {
	sess := a.client.Session()
	if len(sess.Cookies) == 0 {
		return a.store.Clear()
	}
	return a.store.Save(sess)
}

// Run executes the command line in args (without the program name).
func (a *App) Run(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	err := a.root.ExecuteContext(ctx)
	if err != nil && a.logger != nil {
		a.logger.Debug(ctx, "command failed", "error", err)
	}
	return err
}

// describe turns client errors into a short user-facing message.
func describe(err error) error {
	var apiErr *api.Error
	switch {
	case errors.As(err, &apiErr):
		return errors.New(apiErr.Message)
	case errors.Is(err, api.ErrUnavailable):
		return fmt.Errorf("cannot reach server: %w", err)
	default:
		return err
	}
}
