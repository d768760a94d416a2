package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/term"

	"lending-library/internal/config"
	"lending-library/internal/logging"
	"lending-library/library"
)

// Exit codes reported by Execute.
const (
	exitFailure  = 1
	exitInvalid  = 2
	exitNotFound = 4
	exitConflict = 5
)

// session is the state shared by every command of one process: the loaded
// config and the open library. The shell reuses one session for all lines.
type session struct {
	cfg    *config.Config
	mgr    *library.LibraryManager
	logger *slog.Logger
	out    *printer

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	shutdown func(context.Context) error

	flagConfig  string
	flagDB      string
	flagDriver  string
	flagOutput  string
	flagNoColor bool
}

func newSession(stdin io.Reader, stdout, stderr io.Writer) *session {
	return &session{stdin: stdin, stdout: stdout, stderr: stderr}
}

// Execute is the entry point called from main.
func Execute() {
	s := newSession(os.Stdin, os.Stdout, os.Stderr)
	err := newRootCmd(s).ExecuteContext(context.Background())
	s.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(exitCode(err))
	}
}

func newRootCmd(s *session) *cobra.Command {
	root := &cobra.Command{
		Use:   "lending-library",
		Short: "Manage a small lending library: books, members and loans",
		Long: `lending-library keeps a catalog of books, the members who borrow them
and the loans between the two. A book is on loan to at most one member at a time.

Run 'lending-library shell' for an interactive session.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(s.stdin)
	root.SetOut(s.stdout)
	root.SetErr(s.stderr)

	root.PersistentFlags().StringVar(&s.flagConfig, "config", "", "Config file path (default: ~/.config/lending-library/config.yml)")
	root.PersistentFlags().StringVar(&s.flagDB, "db", "", "Database file (sqlite3) or connection string (postgres)")
	root.PersistentFlags().StringVar(&s.flagDriver, "driver", "", "Database driver: sqlite3 or postgres")
	root.PersistentFlags().StringVarP(&s.flagOutput, "output", "o", "", "Output format: table or json")
	root.PersistentFlags().BoolVar(&s.flagNoColor, "no-color", false, "Disable colored output")

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		cmd.SetContext(logging.WithRequestID(cmd.Context()))
		if err := s.loadConfig(); err != nil {
			return err
		}
		if !needsLibrary(cmd) {
			return nil
		}
		return s.open(cmd.Context())
	}

	root.AddCommand(
		newBooksCmd(s),
		newMembersCmd(s),
		newLoansCmd(s),
		newShellCmd(s),
		newConfigCmd(s),
	)
	return root
}

// loadConfig reads the config once and applies flag overrides.
func (s *session) loadConfig() error {
	if s.cfg != nil {
		return nil
	}
	cfg, err := config.Load(s.flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if s.flagDB != "" {
		cfg.Database.DSN = config.ExpandHome(s.flagDB)
	}
	if s.flagDriver != "" {
		cfg.Database.Driver = s.flagDriver
	}
	if s.flagOutput != "" {
		cfg.Output.Format = s.flagOutput
	}
	if s.flagNoColor {
		cfg.Output.Color = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.cfg = cfg

	initColor(cfg.Output.Color, s.stdout)
	s.out = newPrinter(s.stdout, cfg.Output.Format)

	s.logger, err = logging.New(s.stderr, logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	return err
}

// open connects to the library once per session.
func (s *session) open(ctx context.Context) error {
	if s.mgr != nil {
		return nil
	}

	var tracer trace.Tracer = noop.NewTracerProvider().Tracer("")
	if s.cfg.Tracing.Enabled {
		tp := newTracerProvider(s.logger)
		tracer = tp.Tracer("lending-library")
		s.shutdown = tp.Shutdown
	}

	mgr, err := library.NewLibraryManager(s.cfg.Database.DSN,
		[]library.DBOption{
			library.WithDriver(s.cfg.Database.Driver),
			library.WithQueryLogger(s.logger.With("component", "store")),
		},
		library.WithLogger(s.logger),
		library.WithTracer(tracer),
	)
	if err != nil {
		return fmt.Errorf("opening library: %w", err)
	}
	s.mgr = mgr
	s.logger.DebugContext(ctx, "library opened", "driver", mgr.Driver(), "dsn", s.cfg.Database.DSN)
	return nil
}

func (s *session) close() {
	if s.mgr != nil {
		_ = s.mgr.Close()
		s.mgr = nil
	}
	if s.shutdown != nil {
		_ = s.shutdown(context.Background())
		s.shutdown = nil
	}
}

// needsLibrary reports whether cmd touches the database. Config and help
// commands run without one.
func needsLibrary(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "config", "help", "completion", cobra.ShellCompRequestCmd:
			return false
		}
	}
	return true
}

// initColor configures color output based on config and terminal detection.
func initColor(enabled bool, w io.Writer) {
	f, isFile := w.(*os.File)
	if !enabled || !isFile || !term.IsTerminal(int(f.Fd())) {
		color.NoColor = true
	}
}

// exitCode maps an error to the process exit status by its kind.
func exitCode(err error) int {
	switch {
	case errors.Is(err, library.ErrInvalid):
		return exitInvalid
	case errors.Is(err, library.ErrNotFound):
		return exitNotFound
	case errors.Is(err, library.ErrConflict):
		return exitConflict
	default:
		return exitFailure
	}
}
