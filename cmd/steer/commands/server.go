package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/BrendanGraham14/steer-sub008/internal/logging"
	"github.com/BrendanGraham14/steer-sub008/internal/remote"
	"github.com/spf13/cobra"
)

var (
	serverGRPCPort int
	serverHTTPPort int
	serverDir      string
	serverNoCORS   bool
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the agent service over gRPC",
	Long: `Run a server that exposes session creation, commands, and event
streaming over gRPC, so a remote client can drive the same sessions a
local CLI would drive in-process.`,
	RunE: runServer,
}

func init() {
	serverCmd.Flags().IntVar(&serverGRPCPort, "grpc-port", 7451, "Port to serve the gRPC Agent service on")
	serverCmd.Flags().IntVar(&serverHTTPPort, "http-port", 7452, "Port to serve health checks and pprof on")
	serverCmd.Flags().StringVar(&serverDir, "directory", "", "Working directory sessions default to")
	serverCmd.Flags().BoolVar(&serverNoCORS, "no-cors", false, "Disable permissive CORS on the HTTP surface")
}

func runServer(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(serverDir)
	if err != nil {
		return err
	}

	ctx := context.Background()
	rt, err := buildRuntime(ctx, workDir, 0)
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg := remote.DefaultConfig()
	cfg.GRPCPort = serverGRPCPort
	cfg.HTTPPort = serverHTTPPort
	cfg.EnableCORS = !serverNoCORS

	srv := remote.New(cfg, rt.client)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(runCtx) }()

	logging.Info().
		Int("grpcPort", cfg.GRPCPort).
		Int("httpPort", cfg.HTTPPort).
		Str("directory", workDir).
		Msg("steer server listening")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logging.Info().Msg("shutting down steer server")
		cancel()
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}
