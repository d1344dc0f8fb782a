// Command ozone-scm runs the Storage Container Manager: the
// cluster-wide authority over datanodes, containers, and block
// locations. One cobra root wiring the same package-level pieces
// (consensus node, RPC server, health endpoint) a test constructs
// directly.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/ozone/pkg/api"
	"github.com/cuemby/ozone/pkg/config"
	"github.com/cuemby/ozone/pkg/log"
	"github.com/cuemby/ozone/pkg/metrics"
	"github.com/cuemby/ozone/pkg/scm"
	"github.com/cuemby/ozone/pkg/security"
	"github.com/cuemby/ozone/pkg/storage"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "ozone-scm",
	Short:   "Ozone Storage Container Manager",
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	cobra.OnInitialize(initLogging)

	startCmd.Flags().String("node-id", "", "Raft node ID (overrides config)")
	startCmd.Flags().String("bind-addr", "", "Raft transport bind address (overrides config)")
	startCmd.Flags().String("client-addr", "", "Client- and datanode-facing gRPC address (overrides config)")
	startCmd.Flags().String("data-dir", "", "Data directory (overrides config)")
	startCmd.Flags().String("placement", "", "Placement policy name: RANDOM or RACK_AWARE (overrides config)")
	rootCmd.AddCommand(startCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOut, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Bootstrap this SCM node as a single-node raft cluster and serve RPC",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		mergeSCMFlags(cmd, &cfg.SCM)
		return runSCM(cfg)
	},
}

func mergeSCMFlags(cmd *cobra.Command, s *config.SCM) {
	if v, _ := cmd.Flags().GetString("node-id"); v != "" {
		s.NodeID = v
	}
	if v, _ := cmd.Flags().GetString("bind-addr"); v != "" {
		s.BindAddr = v
	}
	if v, _ := cmd.Flags().GetString("client-addr"); v != "" {
		s.ClientAddr = v
		s.DatanodeAddr = v
	}
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		s.DataDir = v
	}
	if v, _ := cmd.Flags().GetString("placement"); v != "" {
		s.PlacementImpl = v
	}
}

// runSCM boots the storage layer, the raft-replicated SCM core, the
// liveness sweeper, and the mTLS gRPC + health servers, then blocks
// until SIGINT/SIGTERM. Multi-node SCM clusters are out of this
// binary's scope; it always bootstraps a single-node raft cluster.
func runSCM(cfg config.Config) error {
	s := cfg.SCM

	store, err := storage.Open(s.DataDir + "/registry.db")
	if err != nil {
		return fmt.Errorf("open registry store: %w", err)
	}
	defer store.Close()

	certDir, err := security.GetCertDir("scm", s.NodeID)
	if err != nil {
		return fmt.Errorf("cert dir: %w", err)
	}
	if !security.CertExists(certDir) {
		return fmt.Errorf("no certificate at %s; run `ozone cluster issue-cert --role scm --id %s` first", certDir, s.NodeID)
	}

	metricsCtx := metrics.NewContext("ozone_scm")

	scmCore, err := scm.New(scm.Config{
		LocalID:         s.NodeID,
		BindAddr:        s.BindAddr,
		DataDir:         s.DataDir,
		Store:           store,
		PlacementPolicy: s.PlacementImpl,
		Metrics:         metricsCtx,
	})
	if err != nil {
		return fmt.Errorf("new scm: %w", err)
	}

	if err := scmCore.Node().Bootstrap(); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	log.Info(fmt.Sprintf("scm: bootstrapped single-node cluster as %s", s.NodeID))

	sweeper := scm.NewLivenessSweeper(scmCore, scm.LivenessConfig{
		Tstale:        s.StaleDuration(),
		Tdead:         s.DeadDuration(),
		SweepInterval: s.HeartbeatDuration(),
	}, scm.RealClock)
	sweeper.Start()
	defer sweeper.Stop()

	grpcServer, err := api.NewServer("scm", s.NodeID, metricsCtx)
	if err != nil {
		return fmt.Errorf("new api server: %w", err)
	}
	handler := scm.NewServer(scmCore)
	grpcServer.RegisterSCMLocation(handler)
	grpcServer.RegisterSCMDatanode(handler)

	errCh := make(chan error, 1)
	go func() {
		if err := grpcServer.Start(s.ClientAddr); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	healthSrv := api.NewHealthServer(scmCore.Node(), store, metricsCtx)
	go func() {
		if err := healthSrv.Start(s.HealthAddr); err != nil {
			errCh <- fmt.Errorf("health server: %w", err)
		}
	}()

	log.Info(fmt.Sprintf("scm: serving client+datanode RPC on %s, health/metrics on %s", s.ClientAddr, s.HealthAddr))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-sigCh:
	}

	log.Info("scm: shutting down")
	grpcServer.Stop()
	return scmCore.Node().Shutdown()
}
