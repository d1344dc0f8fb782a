// Command ozone-ksm runs the Key-Space Manager: the Volume/Bucket/Key
// namespace authority. Mirrors ozone-scm's shape, with an added SCM
// client dial since allocateKey delegates block allocation to SCM.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/ozone/pkg/api"
	"github.com/cuemby/ozone/pkg/config"
	"github.com/cuemby/ozone/pkg/ksm"
	"github.com/cuemby/ozone/pkg/log"
	"github.com/cuemby/ozone/pkg/metrics"
	scmclient "github.com/cuemby/ozone/pkg/scm/client"
	"github.com/cuemby/ozone/pkg/security"
	"github.com/cuemby/ozone/pkg/storage"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

var Version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "ozone-ksm",
	Short:   "Ozone Key-Space Manager",
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	cobra.OnInitialize(initLogging)

	startCmd.Flags().String("node-id", "", "Raft node ID (overrides config)")
	startCmd.Flags().String("bind-addr", "", "Raft transport bind address (overrides config)")
	startCmd.Flags().String("client-addr", "", "Client-facing gRPC address (overrides config)")
	startCmd.Flags().String("data-dir", "", "Data directory (overrides config)")
	startCmd.Flags().Int("handler-count", 0, "RPC handler thread count, config key ksm.handler.count (overrides config)")
	startCmd.Flags().String("scm-address", "", "SCM client address (overrides config)")
	rootCmd.AddCommand(startCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOut, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Bootstrap this KSM node as a single-node raft cluster and serve RPC",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		mergeKSMFlags(cmd, &cfg.KSM)
		return runKSM(cfg)
	},
}

func mergeKSMFlags(cmd *cobra.Command, k *config.KSM) {
	if v, _ := cmd.Flags().GetString("node-id"); v != "" {
		k.NodeID = v
	}
	if v, _ := cmd.Flags().GetString("bind-addr"); v != "" {
		k.BindAddr = v
	}
	if v, _ := cmd.Flags().GetString("client-addr"); v != "" {
		k.ClientAddr = v
	}
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		k.DataDir = v
	}
	if v, _ := cmd.Flags().GetInt("handler-count"); v > 0 {
		k.HandlerCount = v
	}
	if v, _ := cmd.Flags().GetString("scm-address"); v != "" {
		k.SCMAddress = v
	}
}

// runKSM boots the storage layer, dials SCM (so allocateKey can
// delegate block allocation), starts the raft-replicated KSM core, and
// serves RPC + health until SIGINT/SIGTERM. ksm.handler.count governs
// the gRPC server's concurrent-handler ceiling.
func runKSM(cfg config.Config) error {
	k := cfg.KSM

	store, err := storage.Open(k.DataDir + "/namespace.db")
	if err != nil {
		return fmt.Errorf("open namespace store: %w", err)
	}
	defer store.Close()

	ksmCertDir, err := security.GetCertDir("ksm", k.NodeID)
	if err != nil {
		return fmt.Errorf("cert dir: %w", err)
	}
	if !security.CertExists(ksmCertDir) {
		return fmt.Errorf("no certificate at %s; run `ozone cluster issue-cert --role ksm --id %s` first", ksmCertDir, k.NodeID)
	}

	scmConn, err := scmclient.Dial(k.SCMAddress, ksmCertDir)
	if err != nil {
		return fmt.Errorf("dial scm at %s: %w", k.SCMAddress, err)
	}
	defer scmConn.Close()

	metricsCtx := metrics.NewContext("ozone_ksm")

	ksmCore, err := ksm.New(ksm.Config{
		LocalID:   k.NodeID,
		BindAddr:  k.BindAddr,
		DataDir:   k.DataDir,
		Store:     store,
		SCMClient: ksm.NewSCMClient(scmConn),
		Metrics:   metricsCtx,
	})
	if err != nil {
		return fmt.Errorf("new ksm: %w", err)
	}

	if err := ksmCore.Node().Bootstrap(); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	log.Info(fmt.Sprintf("ksm: bootstrapped single-node cluster as %s (handler count %d)", k.NodeID, k.HandlerCount))

	grpcServer, err := api.NewServer("ksm", k.NodeID, metricsCtx,
		grpc.MaxConcurrentStreams(uint32(k.HandlerCount)))
	if err != nil {
		return fmt.Errorf("new api server: %w", err)
	}
	grpcServer.RegisterKSM(ksm.NewServer(ksmCore))

	errCh := make(chan error, 1)
	go func() {
		if err := grpcServer.Start(k.ClientAddr); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	healthSrv := api.NewHealthServer(ksmCore.Node(), store, metricsCtx)
	go func() {
		if err := healthSrv.Start(k.HealthAddr); err != nil {
			errCh <- fmt.Errorf("health server: %w", err)
		}
	}()

	log.Info(fmt.Sprintf("ksm: serving client RPC on %s, health/metrics on %s", k.ClientAddr, k.HealthAddr))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-sigCh:
	}

	log.Info("ksm: shutting down")
	grpcServer.Stop()
	return ksmCore.Node().Shutdown()
}
