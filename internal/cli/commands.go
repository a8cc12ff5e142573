package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"greenery/internal/greenery"
	"greenery/internal/server"
)

func newServeCommand(o *options, v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, o, v)
		},
	}
}

func runServe(cmd *cobra.Command, o *options, v *viper.Viper) error {
	rt, err := setup(cmd, o, v)
	if err != nil {
		return err
	}
	defer rt.close()

	addr, err := server.ValidateListenAddress(rt.cfg.ListenAddr, o.allowRemote)
	if err != nil {
		return err
	}
	rt.cfg.ListenAddr = addr

	srv, err := server.New(rt.cfg, rt.records, rt.logger)
	if err != nil {
		return errors.Wrap(err, "configure server")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rt.records.Ready(ctx); err != nil {
		rt.logger.WithError(err).Warn("object store not reachable at startup")
	}
	return srv.Run(ctx)
}

func newReadCommand(o *options, v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "read <greenery_id>",
		Short: "Print a stored record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(cmd, o, v)
			if err != nil {
				return err
			}
			defer rt.close()

			data, err := rt.records.Read(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}

func newCreateCommand(o *options, v *viper.Viper) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create or replace a record from a JSON document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := readGeneralInfo(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}

			rt, err := setup(cmd, o, v)
			if err != nil {
				return err
			}
			defer rt.close()

			if err := rt.records.Create(cmd.Context(), info); err != nil {
				return err
			}
			key, _ := greenery.ObjectKey(info.GreeneryID)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", key)
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON record to store (default stdin, or \"-\")")
	return cmd
}

func newCheckCommand(o *options, v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and ping the object store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(cmd, o, v)
			if err != nil {
				return err
			}
			defer rt.close()

			if err := rt.records.Ready(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "config ok, %s object store reachable\n", rt.cfg.Storage.Backend)
			return err
		},
	}
}

func readGeneralInfo(stdin io.Reader, file string) (greenery.GeneralInfo, error) {
	var r io.Reader = stdin
	source := "stdin"
	if path := strings.TrimSpace(file); path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return greenery.GeneralInfo{}, errors.Wrap(err, "open record file")
		}
		defer f.Close()
		r = f
		source = path
	}

	info, err := greenery.DecodeGeneralInfo(r)
	if err != nil {
		return greenery.GeneralInfo{}, errors.Wrapf(err, "decode record from %s", source)
	}
	if err := greenery.ValidateID(info.GreeneryID); err != nil {
		return greenery.GeneralInfo{}, err
	}
	return info, nil
}
