// Command messageboardd runs the message board server: it opens the
// on-disk store, ensures the root entry exists, and serves the binary
// wire protocol over TCP until interrupted.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/osakka/messageboard/internal/config"
	"github.com/osakka/messageboard/internal/handler"
	"github.com/osakka/messageboard/internal/logger"
	"github.com/osakka/messageboard/internal/pipeline"
	"github.com/osakka/messageboard/internal/store"
)

var (
	cfgFile   string
	portFlag  int
	rootFlag  string
	workerFlag int
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "messageboardd",
		Short: "Hierarchical message board server",
		Long: `messageboardd serves the message board's length-framed binary
protocol over TCP, backed by a file-system content store.

Configuration is resolved from (highest priority first): CLI flags,
MSGBOARD_* environment variables, an optional YAML config file, then
built-in defaults.`,
		RunE:          runServe,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringVar(&cfgFile, "config", "", "path to a YAML config file")
	cmd.Flags().IntVar(&portFlag, "port", 0, "TCP port to listen on (default 8000)")
	cmd.Flags().StringVar(&rootFlag, "store-root", "", "root directory of the content store (default ./data)")
	cmd.Flags().IntVar(&workerFlag, "workers", 0, "worker pool size (default 4)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	v := viper.New()
	if cmd.Flags().Changed("port") {
		v.Set("port", portFlag)
	}
	if cmd.Flags().Changed("store-root") {
		v.Set("store_root", rootFlag)
	}
	if cmd.Flags().Changed("workers") {
		v.Set("workers", workerFlag)
	}

	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("set log level: %w", err)
	}
	logger.Info("starting messageboardd: port=%d store_root=%s workers=%d", cfg.Port, cfg.StoreRoot, cfg.Workers)

	st, err := store.Open(cfg.StoreRoot)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if err := st.EnsureRoot(); err != nil {
		return fmt.Errorf("ensure root entry: %w", err)
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", cfg.Port, err)
	}
	defer listener.Close()

	h := handler.New(st)
	p := pipeline.New(listener, h, cfg.Workers)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serveDone := make(chan error, 1)
	go func() { serveDone <- p.Run(ctx) }()

	logger.Info("listening on %s", listener.Addr())

	select {
	case sig := <-sigCh:
		logger.Info("received signal %s, shutting down", sig)
		cancel()
		return <-serveDone
	case err := <-serveDone:
		return err
	}
}
