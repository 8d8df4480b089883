package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mcbedrock-downloader/config"
	"mcbedrock-downloader/logging"
	"mcbedrock-downloader/transport"
)

// Version is the release of this tool, set at build time with -ldflags
var Version = "0.1.0"

// errReported marks errors whose explanation has already been printed
var errReported = errors.New("already reported")

func reported(err error) error {
	return fmt.Errorf("%w: %w", errReported, err)
}

// Env carries the process streams and optional overrides
type Env struct {
	Out io.Writer
	Err io.Writer
	// HTTPClient is shared by every request when set
	HTTPClient *http.Client
	// RetryDelay is the base backoff delay for catalog fetches
	RetryDelay time.Duration
}

type globalFlags struct {
	api      string
	logLevel string
	cache    string
	quiet    bool
}

// app is the state shared by every command of one invocation
type app struct {
	env    Env
	flags  globalFlags
	cfg    *config.Config
	logger *zap.Logger
	errors *ErrorHandler
}

var rootHelp = `Download Minecraft Bedrock packages straight from the Windows Update
delivery service.

The version catalog is fetched from VERSIONS_API. Beta packages need an MSA
user token, passed with --token or MSA_TOKEN.`

// NewRootCmd builds the command tree
func NewRootCmd(env Env) *cobra.Command {
	if env.Out == nil {
		env.Out = os.Stdout
	}
	if env.Err == nil {
		env.Err = os.Stderr
	}
	if env.RetryDelay <= 0 {
		env.RetryDelay = time.Second
	}

	a := &app{env: env, logger: zap.NewNop()}
	a.errors = NewErrorHandler(a.logger)

	cmd := &cobra.Command{
		Use:           "mcbedrock-downloader",
		Short:         "Minecraft Bedrock version downloader",
		Long:          rootHelp,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}
	cmd.SetOut(env.Out)
	cmd.SetErr(env.Err)

	f := cmd.PersistentFlags()
	f.StringVar(&a.flags.api, "api", "", "version list URL (default $VERSIONS_API or the community list)")
	f.StringVar(&a.flags.logLevel, "log-level", "", "log level: DEBUG, INFO, WARN, ERROR or FATAL (default $LOG_LEVEL or INFO)")
	f.StringVar(&a.flags.cache, "cache", "", "SQLite file caching the version list (default $CATALOG_CACHE)")
	f.BoolVarP(&a.flags.quiet, "quiet", "q", false, "log progress instead of drawing a progress bar")

	cmd.AddCommand(
		newListCmd(a),
		newSearchCmd(a),
		newDownloadCmd(a),
		newVersionCmd(a),
	)

	return cmd
}

// setup loads configuration, applies flag overrides and builds the logger
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("api") {
		cfg.VersionsAPI = a.flags.api
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.flags.logLevel
	}
	if flags.Changed("cache") {
		cfg.CatalogCache = a.flags.cache
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.errors = NewErrorHandler(logger.Named("cli"))
	return nil
}

// newSession opens the transport session used for one command
func (a *app) newSession() *transport.Session {
	return transport.NewSession(transport.Config{
		RequestTimeout: a.cfg.HTTPTimeout,
		HTTPClient:     a.env.HTTPClient,
		Logger:         a.logger.Named("transport"),
	})
}

// Execute runs the command line and returns the process exit code. SIGINT
// and SIGTERM cancel the running command.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCmd(Env{Out: os.Stdout, Err: os.Stderr})
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}
