package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/otv/internal/repositories"
	"github.com/desertthunder/otv/internal/services"
	"github.com/desertthunder/otv/internal/shared"
	"github.com/desertthunder/otv/internal/tasks"
	"github.com/urfave/cli/v3"
)

const defaultConfigPath = "config.toml"

// Service names accepted by --service
const (
	serviceSpotify = "spotify"
	serviceYouTube = "youtube"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	configPath string
	config     *shared.Config
	services   map[string]services.Service
	db         *sql.DB
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Services and DB are built from Config on first use when not provided.
type RunnerOpts struct {
	ConfigPath string
	Config     *shared.Config
	Services   map[string]services.Service
	DB         *sql.DB
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Services == nil {
		opts.Services = make(map[string]services.Service)
	}

	return &Runner{
		configPath: opts.ConfigPath,
		config:     opts.Config,
		services:   opts.Services,
		db:         opts.DB,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, scanCommand, runCommand, tuiCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by commands.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// loadConfig reads the config file named by --config unless a config was provided.
// An explicit --config overrides [RunnerOpts.ConfigPath].
//
// A missing file falls back to the defaults so that setup can create it.
func (r *Runner) loadConfig(cmd *cli.Command) error {
	if cmd.IsSet("config") || r.configPath == "" {
		r.configPath = cmd.String("config")
	}
	if r.configPath == "" {
		r.configPath = defaultConfigPath
	}
	if r.config != nil {
		return nil
	}

	config, err := shared.LoadConfig(r.configPath)
	switch {
	case err == nil:
		if err := config.Validate(); err != nil {
			return err
		}
		r.config = config
	case errors.Is(err, shared.ErrMissingConfig):
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		r.config = shared.DefaultConfig()
	default:
		return err
	}
	return nil
}

// service returns the named streaming service, building it from the config on first use.
func (r *Runner) service(name string) (services.Service, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if svc, ok := r.services[name]; ok {
		return svc, nil
	}
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}

	var svc services.Service
	switch name {
	case serviceSpotify:
		spotify, err := services.NewSpotifyService(r.config.Credentials.Spotify)
		if err != nil {
			return nil, fmt.Errorf("failed to create Spotify service: %w", err)
		}
		svc = spotify
	case serviceYouTube, "ytmusic":
		yt := r.config.Credentials.YouTube
		svc = services.NewYouTubeService(yt.ProxyURL, yt.HeadersPath, nil)
	default:
		return nil, fmt.Errorf("%w: unknown service %q (want %s or %s)", shared.ErrInvalidArgument, name, serviceSpotify, serviceYouTube)
	}

	r.services[name] = svc
	return svc, nil
}

// runs returns the run history repository, opening the database on first use.
func (r *Runner) runs() (*repositories.RunRepository, error) {
	if r.db == nil {
		if r.config == nil {
			r.config = shared.DefaultConfig()
		}
		db, err := shared.OpenDatabase(r.config.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		r.db = db
	}
	return repositories.NewRunRepository(r.db), nil
}

// Close releases the database opened by the runner.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// newEngine builds a [tasks.PlaylistEngine] for svc from the replace settings and the command's flags.
//
// Runs are recorded to the history database when it can be opened.
func (r *Runner) newEngine(cmd *cli.Command, svc services.Service, record bool) *tasks.PlaylistEngine {
	opts := tasks.OptsFromConfig(r.config.Replace)
	opts.Logger = r.logger
	if cmd.IsSet("workers") {
		opts.Workers = cmd.Int("workers")
	}
	if cmd.IsSet("dry-run") {
		opts.DryRun = cmd.Bool("dry-run")
	}

	if record {
		if repo, err := r.runs(); err != nil {
			r.logger.Warn("run history disabled", "error", err)
		} else {
			opts.Recorder = repo
		}
	}
	return tasks.NewPlaylistEngine(svc, opts)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeBytes(b []byte) error {
	if _, err := r.output.Write(b); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
