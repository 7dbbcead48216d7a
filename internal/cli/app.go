// Package cli wires configuration, clients and the session store into the
// scrumbot cobra commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"scrumbot/internal/common/config"
	"scrumbot/internal/common/errors"
	"scrumbot/internal/common/logger"
	"scrumbot/internal/common/observability"
	"scrumbot/internal/common/pipeline"
	"scrumbot/internal/common/scrumapi"
	"scrumbot/internal/intake"
	"scrumbot/internal/store"
)

// annotationTerminal marks commands that own the terminal, so logs must not
// go to stdout or stderr.
const annotationTerminal = "scrumbot/terminal"

// App holds everything a command needs. It is populated by setup before any
// RunE runs and released by close.
type App struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	configFile  string
	logLevel    string
	metricsAddr string

	cfg       *config.Config
	zap       *zap.Logger
	log       logger.Logger
	obs       *observability.Observability
	session   store.Store
	pipeline  *pipeline.Client
	dashboard *scrumapi.Client
	handler   *errors.ErrorHandler
	server    *http.Server
}

func New(in io.Reader, out, errOut io.Writer) *App {
	return &App{in: in, out: out, errOut: errOut}
}

// Run executes the command line and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	root := a.Command()
	root.SetArgs(args)
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	err := root.ExecuteContext(ctx)
	defer a.close()
	if err == nil {
		return 0
	}

	msg := err.Error()
	if errors.CodeOf(err) != "" {
		if a.handler != nil {
			msg = a.handler.Handle(err)
		} else {
			msg = errors.UserMessage(err)
		}
	}
	fmt.Fprintln(a.errOut, "Error:", msg)
	return 1
}

// Command builds the root command.
func (a *App) Command() *cobra.Command {
	root := &cobra.Command{
		Use:   "scrumbot",
		Short: "Terminal client for the scrum dashboard",
		Long: `scrumbot logs daily standups through the interpretation pipeline and
browses sprints, reports, employees and projects of the scrum backend.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default: ./configs/config.yaml)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&a.metricsAddr, "metrics-addr", "", "serve /metrics and /health on this address")

	root.AddCommand(
		a.standupCommand(),
		a.sprintsCommand(),
		a.reportsCommand(),
		a.employeesCommand(),
		a.projectsCommand(),
		a.overviewCommand(),
		a.generateCommand(),
		a.sessionCommand(),
	)
	return root
}

func (a *App) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadWithOptions(config.Options{ConfigFile: a.configFile})
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.metricsAddr != "" {
		cfg.Metrics.Address = a.metricsAddr
	}
	a.cfg = cfg

	if err := a.setupLogger(cmd); err != nil {
		return err
	}
	a.handler = errors.NewErrorHandler(a.log)
	a.obs = observability.New(cfg.App.Name,
		observability.WithJaegerEndpoint(cfg.Tracing.JaegerEndpoint),
		observability.WithLogger(a.log),
	)

	a.session, err = store.New(cmd.Context(), cfg.Session, a.log)
	if err != nil {
		return err
	}
	a.pipeline = pipeline.NewClient(cfg.Pipeline, a.log)
	a.dashboard = scrumapi.NewClient(cfg.Dashboard, a.log)

	if cfg.Metrics.Address != "" {
		a.server = startMetricsServer(cfg.Metrics.Address, a.log)
	}

	a.log.Debug("scrumbot ready", map[string]interface{}{
		"command":     cmd.CommandPath(),
		"environment": cfg.App.Environment,
		"pipeline":    cfg.Pipeline.BaseURL,
		"dashboard":   cfg.Dashboard.BaseURL,
		"session":     cfg.Session.Backend,
	})
	return nil
}

func (a *App) setupLogger(cmd *cobra.Command) error {
	output := a.cfg.Logging.Output
	if _, ok := cmd.Annotations[annotationTerminal]; ok && (output == "" || output == "stderr" || output == "stdout") {
		a.zap = zap.NewNop()
		a.log = logger.NewZapAdapter(a.zap)
		return nil
	}
	z, err := logger.Build(logger.Options{
		Level:  a.cfg.Logging.Level,
		Format: a.cfg.Logging.Format,
		Output: output,
	})
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	a.zap = z
	a.log = logger.NewZapAdapter(z)
	return nil
}

func (a *App) newFlow() *intake.Flow {
	return intake.NewFlow(a.pipeline,
		intake.WithSession(a.session),
		intake.WithDefaultEmployeeID(a.cfg.Pipeline.EmployeeID),
		intake.WithLogger(a.log),
		intake.WithObservability(a.obs),
	)
}

func (a *App) close() {
	if a.server != nil {
		stopMetricsServer(a.server, a.log)
	}
	if a.session != nil {
		if err := a.session.Close(); err != nil {
			a.log.Warn("Failed to close session store", map[string]interface{}{"error": err})
		}
	}
	if a.obs != nil {
		a.obs.Shutdown()
	}
	if a.zap != nil {
		_ = a.zap.Sync()
	}
}

// Execute runs scrumbot with the process arguments and standard streams.
func Execute(ctx context.Context) int {
	return New(os.Stdin, os.Stdout, os.Stderr).Run(ctx, os.Args[1:])
}
