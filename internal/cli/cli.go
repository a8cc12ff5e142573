// Package cli wires configuration, logging, the object store and the HTTP
// server behind the greeneryd command tree.
package cli

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"greenery/internal/config"
	"greenery/internal/greenery"
	"greenery/internal/logging"
	"greenery/internal/state"
	"greenery/internal/storage"
)

type options struct {
	configPath  string
	allowRemote bool
}

// Run executes the command line in args (without the program name).
func Run(ctx context.Context, args []string) error {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func NewRootCommand() *cobra.Command {
	o := &options{}
	v := config.NewViper()

	root := &cobra.Command{
		Use:           "greeneryd",
		Short:         "Serve greenery general-info records from an object store",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, o, v)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&o.configPath, "config", "", "path to config file (default <user config dir>/greenery/config.toml)")
	flags.String("listen-addr", "", "HTTP listen address, host:port (default "+config.DefaultListenAddr+")")
	flags.BoolVar(&o.allowRemote, "allow-remote", false, "allow a non-loopback listen address")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	_ = v.BindPFlag("listen_addr", flags.Lookup("listen-addr"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))

	root.AddCommand(
		newServeCommand(o, v),
		newReadCommand(o, v),
		newCreateCommand(o, v),
		newCheckCommand(o, v),
	)
	return root
}

// runtime is everything a command needs once startup has succeeded.
type runtime struct {
	cfg     *config.Config
	logger  *logrus.Logger
	store   storage.ObjectStore
	records *greenery.Service
}

func loadConfig(o *options, v *viper.Viper) (*config.Config, error) {
	path := o.configPath
	if path == "" {
		defaultPath, err := state.ConfigPath()
		if err != nil {
			return nil, errors.Wrap(err, "resolve config path")
		}
		path = defaultPath
	} else {
		expanded, err := state.ExpandPath(path)
		if err != nil {
			return nil, errors.Wrap(err, "resolve config path")
		}
		path = expanded
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if err := cfg.ApplyOverrides(v); err != nil {
		return nil, errors.Wrap(err, "apply config overrides")
	}
	return cfg, nil
}

// setup builds the logger and the object store once; callers must close().
func setup(cmd *cobra.Command, o *options, v *viper.Viper) (*runtime, error) {
	cfg, err := loadConfig(o, v)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, errors.Wrap(err, "configure logging")
	}

	store, err := storage.NewFromConfig(cmd.Context(), cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s object store", cfg.Storage.Backend)
	}
	logger.WithField("backend", cfg.Storage.Backend).Debug("object store ready")

	return &runtime{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		records: greenery.NewService(store, logger),
	}, nil
}

func (rt *runtime) close() {
	if err := rt.store.Close(); err != nil {
		rt.logger.WithError(err).Warn("error closing object store")
	}
}
