// Package cli implements the commands of the cmp-keygen executable.
package cli

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/taurusgroup/cmp-keygen/internal/types"
	"github.com/taurusgroup/cmp-keygen/pkg/paillier"
	"github.com/taurusgroup/cmp-keygen/pkg/protocol"
	"github.com/taurusgroup/cmp-keygen/pkg/store"
	"github.com/taurusgroup/cmp-keygen/protocols/cmp/config"
)

// NewRootCommand returns the cmp-keygen command with its subcommands.
func NewRootCommand() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "cmp-keygen",
		Short:         "Threshold ECDSA key generation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to a yaml configuration file")

	rootCmd.AddCommand(
		newRunCommand(&configFile, nil),
		newShowCommand(&configFile),
	)
	return rootCmd
}

// Execute runs the root command and exits on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRunCommand(configFile *string, paillierKeys func(int) *paillier.SecretKey) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run a keygen between parties simulated in this process and store their configs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := InitConfig(*configFile)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			logger, err := NewLogger(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			if cfg.Metrics != nil {
				stop := serveMetrics(cfg.Metrics.Addr, logger)
				defer stop()
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			r := &runner{cfg: cfg.Keygen, log: logger, paillier: paillierKeys}
			logger.Info().
				Int("parties", cfg.Keygen.N()).
				Int("threshold", cfg.Keygen.Threshold).
				Msg("starting keygen")
			configs, err := r.runAndStore(ctx, cfg.Storage.Path)
			if err != nil {
				return err
			}
			return printConfigs(cmd.OutOrStdout(), configs)
		},
	}
}

func newShowCommand(configFile *string) *cobra.Command {
	var ridHex string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "List the stored configs and their public key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := InitConfig(*configFile)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			logger, err := NewLogger(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			var rid types.RID
			if ridHex != "" {
				if rid, err = hex.DecodeString(ridHex); err != nil {
					return fmt.Errorf("rid: %w", err)
				}
			}

			s, err := store.Open(cfg.Storage.Path, logger)
			if err != nil {
				return err
			}
			defer s.Close()
			configs, err := s.List(rid)
			if err != nil {
				return err
			}
			return printConfigs(cmd.OutOrStdout(), configs)
		},
	}
	cmd.Flags().StringVar(&ridHex, "rid", "", "only show the configs of the keygen with this hex encoded RID")
	return cmd
}

func printConfigs(out io.Writer, configs []*config.Config) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RID\tPARTY\tTHRESHOLD\tPUBLIC KEY")
	for _, c := range configs {
		pk, err := c.PublicPoint().MarshalBinary()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%x\n", c.RID, c.ID, c.Threshold, pk)
	}
	return w.Flush()
}

// serveMetrics exposes the protocol metrics on addr until the returned function is called.
func serveMetrics(addr string, log zerolog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(protocol.Metrics, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()
	log.Info().Str("addr", addr).Msg("serving metrics")
	return func() { _ = server.Shutdown(context.Background()) }
}
