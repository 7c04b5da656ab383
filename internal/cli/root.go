// Package cli is the pawconnect terminal front end: one cobra command per
// page action of the web client, all printing JSON.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/pawconnect/internal/actions"
	"github.com/tbourn/pawconnect/internal/apiclient"
	"github.com/tbourn/pawconnect/internal/config"
	"github.com/tbourn/pawconnect/internal/notify"
	"github.com/tbourn/pawconnect/internal/observability"
	"github.com/tbourn/pawconnect/internal/session"
	"github.com/tbourn/pawconnect/internal/store"
	"github.com/tbourn/pawconnect/internal/sysutil"
)

// Version is stamped into traces; overridden at link time.
var Version = "dev"

type App struct {
	APIURL   string
	DBPath   string
	LogLevel string
	Pretty   bool

	cfg      config.Config
	notes    *notify.Recorder
	storage  *session.SQLiteStorage
	api      *apiclient.Client
	d        *actions.Dispatcher
	nav      *terminal
	span     trace.Span
	shutdown observability.Shutdown
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:           "pawconnect",
		Short:         "PawConnect pet adoption client",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Run the local backend, then sign in against it
  pawconnect fakeapi --port 8081
  pawconnect login --email user@pawconnect.local --password user1234

  # Browse and filter adoption posts
  pawconnect adoption list --type dog --availability available

  # Publish a post with a photo
  pawconnect adoption create --name Rex --type dog ... --image ./rex.jpg
`),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.setup(cmd)
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		app.close(cmd.Context())
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.APIURL, "api", "", "Backend base URL (default $PAWCONNECT_API_URL)")
	cmd.PersistentFlags().StringVar(&app.DBPath, "db", "", "Session database file (default $PAWCONNECT_DB_PATH)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level (default $LOG_LEVEL)")
	cmd.PersistentFlags().BoolVar(&app.Pretty, "pretty", false, "Pretty-print JSON output and logs")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newRegisterCmd(app))
	cmd.AddCommand(newVerifyCmd(app))
	cmd.AddCommand(newResetPasswordCmd(app))
	cmd.AddCommand(newProfileCmd(app))
	cmd.AddCommand(newAdoptionCmd(app))
	cmd.AddCommand(newMissingCmd(app))
	cmd.AddCommand(newDonationCmd(app))
	cmd.AddCommand(newFeedbackCmd(app))
	cmd.AddCommand(newUploadCmd(app))
	cmd.AddCommand(newAdminCmd(app))
	cmd.AddCommand(newFakeAPICmd(app))

	return cmd
}

// Execute runs the root command under ctx and reports failures on stderr.
func Execute(ctx context.Context, cmd *cobra.Command) error {
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
	}
	return err
}

// setup loads configuration, applies flag overrides and starts the command
// span. Backend wiring is deferred to dispatcher so commands that never
// talk to the backend do not open the session database.
func (a *App) setup(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.APIURL != "" {
		cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(a.APIURL), "/")
	}
	if a.DBPath != "" {
		cfg.DBPath = a.DBPath
	}
	cfg.LogLevel = sysutil.FirstNonEmpty(a.LogLevel, cfg.LogLevel)
	cfg.LogPretty = cfg.LogPretty || a.Pretty
	a.cfg = cfg

	sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty, cmd.ErrOrStderr())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	comp := observability.ComponentCLI
	if cmd.Name() == "fakeapi" {
		comp = observability.ComponentFakeAPI
	}
	shutdown, err := observability.Setup(ctx, cfg.OTEL, comp, Version)
	if err != nil {
		log.Warn().Err(err).Msg("tracing disabled")
		shutdown = func(context.Context) error { return nil }
	}
	a.shutdown = shutdown

	ctx, a.span = observability.StartCommand(ctx, strings.TrimPrefix(cmd.CommandPath(), "pawconnect "))
	cmd.SetContext(ctx)
	return nil
}

// dispatcher opens the session database and wires the adapter, the session
// cache and the store on first use.
func (a *App) dispatcher(cmd *cobra.Command) (*actions.Dispatcher, error) {
	if a.d != nil {
		return a.d, nil
	}
	st, err := session.OpenSQLite(a.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}
	a.storage = st
	a.notes = &notify.Recorder{}
	a.nav = &terminal{w: cmd.ErrOrStderr(), loginPath: a.cfg.LoginPath}

	a.api = apiclient.New(apiclient.Options{
		BaseURL:   a.cfg.APIBaseURL,
		Timeout:   a.cfg.RequestTimeout,
		LoginPath: a.cfg.LoginPath,
		RateRPS:   a.cfg.RateRPS,
		RateBurst: a.cfg.RateBurst,
		Notifier:  notify.Multi{notify.Log{}, a.notes},
		Navigator: a.nav,
	})
	sess := session.New(st, a.api, session.WithKey(a.cfg.SessionKey))
	a.api.SetTokenSource(sess)
	if err := sess.Init(cmd.Context()); err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var opts []store.Option
	if a.cfg.StaleGuard {
		opts = append(opts, store.WithStaleGuard())
	}
	a.d = actions.New(a.api, sess, store.New(opts...))
	return a.d, nil
}

func (a *App) close(ctx context.Context) {
	if a.span != nil {
		a.span.End()
		a.span = nil
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			log.Warn().Err(err).Msg("close session database")
		}
		a.storage = nil
	}
	if a.shutdown != nil {
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = a.shutdown(ctx)
		a.shutdown = nil
	}
}

// output is the JSON document every command prints.
type output struct {
	Data    any             `json:"data"`
	Notices []notify.Notice `json:"notices,omitempty"`
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	out := output{Data: v}
	if app.notes != nil {
		out.Notices = app.notes.Drain()
	}
	return writeJSON(cmd.OutOrStdout(), out, app.Pretty)
}

// writeErr prints pending notices on stderr, marks the command span failed
// and releases the App, since cobra skips the post-run hook on error.
func writeErr(cmd *cobra.Command, app *App, err error) error {
	if app.notes != nil {
		for _, n := range app.notes.Drain() {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", n.Level, n.Message)
		}
	}
	if app.span != nil {
		app.span.RecordError(err)
		app.span.SetStatus(codes.Error, err.Error())
	}
	app.close(cmd.Context())
	var ae *apiclient.Error
	if errors.As(err, &ae) && ae.Field != "" {
		return fmt.Errorf("%w (field %s)", err, ae.Field)
	}
	return err
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// terminal is the CLI's Navigator. There is no page to leave, so a
// redirect to the login entry point becomes a hint on stderr. The login
// command sets at to the login entry point while it runs.
type terminal struct {
	w         io.Writer
	loginPath string
	at        string
}

func (t *terminal) Location() string { return t.at }

func (t *terminal) Redirect(path string) {
	if path == t.loginPath {
		fmt.Fprintln(t.w, "hint: run `pawconnect login` to sign in again")
		return
	}
	fmt.Fprintln(t.w, "hint: continue at", path)
}
