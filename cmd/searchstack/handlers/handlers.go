// Package handlers implements the business logic for CLI commands.
//
// Handlers are called by the command definitions in the commands package and
// do not depend on cobra, so they can be tested on their own. Collaborators
// are created through package-level factory variables that tests replace.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/imamik/searchstack/internal/config"
	"github.com/imamik/searchstack/internal/metrics"
	"github.com/imamik/searchstack/internal/orchestration"
	"github.com/imamik/searchstack/internal/platform/aws"
	"github.com/imamik/searchstack/internal/platform/cloudflare"
	"github.com/imamik/searchstack/internal/provisioning"
	"github.com/imamik/searchstack/internal/provisioning/compute"
	"github.com/imamik/searchstack/internal/resource"
	"github.com/imamik/searchstack/internal/state"
	"github.com/imamik/searchstack/internal/ui/render"
	"github.com/imamik/searchstack/internal/ui/tui"
)

// Options are the flags shared by the stack commands.
type Options struct {
	ConfigPath string
	// Refresh reads recorded resources from the cloud before planning.
	Refresh bool
	// MetricsFile receives the run metrics in the Prometheus text format.
	MetricsFile string
	LogLevel    string
	JSONLogs    bool
	// Verbose also lists unchanged resources.
	Verbose bool
	// Interactive shows the live dashboard instead of log lines.
	Interactive bool
}

// Deployer matches orchestration.Orchestrator.
type Deployer interface {
	Deploy(ctx context.Context) (*orchestration.Result, error)
	Preview(ctx context.Context) (*orchestration.Result, error)
	Destroy(ctx context.Context) (*orchestration.Result, error)
	Outputs(ctx context.Context) (orchestration.Endpoints, error)
}

// Factory function variables - can be replaced in tests.
var (
	// loadConfigFile reads the configuration and overlays the environment.
	loadConfigFile = config.Load

	// newProvider wires the AWS and Cloudflare handlers into one provider.
	newProvider = func(ctx context.Context, cfg *config.Config, t *config.Timeouts) (resource.Provider, compute.SecretResolver, error) {
		clients, err := aws.NewClients(ctx, aws.Options{
			Region:  cfg.Region,
			Profile: os.Getenv("AWS_PROFILE"),
		})
		if err != nil {
			return nil, nil, err
		}
		reg := resource.Registry{}
		aws.Register(reg, clients, t)
		cloudflare.Register(reg, cloudflare.NewClient(cfg.CloudflareAPIToken), t)
		return reg, aws.NewSecretResolver(clients.Secrets, t), nil
	}

	// openStore opens the configured state backend.
	openStore = state.Open

	// newDeployer creates the orchestrator for one run.
	newDeployer = func(cfg *config.Config, deps orchestration.Dependencies, refresh bool) Deployer {
		return orchestration.New(cfg, deps, orchestration.WithRefresh(refresh))
	}

	// loadTimeouts reads operation timeouts from the environment.
	loadTimeouts = config.LoadTimeouts

	// runDashboard runs fn behind the live dashboard.
	runDashboard = func(ctx context.Context, m tui.Model, fn tui.RunFunc) (*orchestration.Result, error) {
		return tui.Run(ctx, m, fn)
	}

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// session holds everything a stack command needs.
type session struct {
	cfg      *config.Config
	deps     orchestration.Dependencies
	store    state.Store
	recorder *metrics.Recorder
	logger   zerolog.Logger
	printer  *render.Printer
	opts     Options
}

// loadConfig resolves the config path and loads the file.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.DefaultFile
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no config file found: %s does not exist (run 'searchstack init' to create one)", path)
		}
	}
	cfg, err := loadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newSession(ctx context.Context, opts Options) (*session, error) {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	logOutput := stderr
	if opts.Interactive {
		// The dashboard owns the terminal.
		logOutput = io.Discard
	}
	logger := provisioning.NewLogger(provisioning.LogConfig{
		Level:  opts.LogLevel,
		JSON:   opts.JSONLogs,
		Output: logOutput,
	}).With().Str("stack", cfg.Stack).Logger()

	timeouts := loadTimeouts()
	provider, secrets, err := newProvider(ctx, cfg, timeouts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}
	store, err := openStore(ctx, cfg.State, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("failed to open state backend %q: %w", cfg.State.Backend, err)
	}

	recorder := metrics.NewRecorder(cfg.Stack)
	deps := orchestration.Dependencies{
		Provider: provider,
		Store:    store,
		Secrets:  secrets,
		Observer: provisioning.NewLogObserver(logger),
		Metrics:  recorder,
	}

	printer := render.New(stdout)
	printer.Verbose = opts.Verbose

	return &session{
		cfg:      cfg,
		deps:     deps,
		store:    store,
		recorder: recorder,
		logger:   logger,
		printer:  printer,
		opts:     opts,
	}, nil
}

// deployer returns an orchestrator reporting to observer, or to the session
// logger when observer is nil.
func (s *session) deployer(observer provisioning.Observer) Deployer {
	deps := s.deps
	if observer != nil {
		deps.Observer = observer
	}
	return newDeployer(s.cfg, deps, s.opts.Refresh)
}

// track runs op directly, or behind the dashboard in interactive mode.
func (s *session) track(ctx context.Context, m tui.Model, op func(ctx context.Context, d Deployer) (*orchestration.Result, error)) (*orchestration.Result, error) {
	if !s.opts.Interactive {
		return op(ctx, s.deployer(nil))
	}
	return runDashboard(ctx, m, func(ctx context.Context, observer provisioning.Observer) (*orchestration.Result, error) {
		return op(ctx, s.deployer(observer))
	})
}

// finish records the run outcome and writes the metrics file if requested.
// A failed metrics write is logged and never masks the run error.
func (s *session) finish(command string, err error) error {
	if cerr := s.store.Close(); cerr != nil {
		s.logger.Warn().Err(cerr).Msg("failed to close state backend")
	}
	s.recorder.RecordRun(command, err)
	if s.opts.MetricsFile != "" {
		if werr := s.recorder.WriteToTextfile(s.opts.MetricsFile); werr != nil {
			s.logger.Warn().Err(werr).Str("path", s.opts.MetricsFile).Msg("failed to write metrics file")
		}
	}
	return err
}

// run opens a session and executes fn.
func run(ctx context.Context, command string, opts Options, fn func(ctx context.Context, s *session) error) error {
	s, err := newSession(ctx, opts)
	if err != nil {
		return err
	}
	return s.finish(command, fn(ctx, s))
}
