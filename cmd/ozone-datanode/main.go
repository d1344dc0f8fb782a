// Command ozone-datanode runs a single datanode: it registers with
// SCM, heartbeats, processes queued SCMCommands, and serves the
// container data-plane protocol for the container client. Build the
// domain object, start its loops, block on signal, shut down.
package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/cuemby/ozone/pkg/api"
	"github.com/cuemby/ozone/pkg/config"
	"github.com/cuemby/ozone/pkg/datanode"
	"github.com/cuemby/ozone/pkg/log"
	"github.com/cuemby/ozone/pkg/metrics"
	scmclient "github.com/cuemby/ozone/pkg/scm/client"
	"github.com/cuemby/ozone/pkg/security"
	"github.com/cuemby/ozone/pkg/types"
	"github.com/google/uuid"
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
	Use:     "ozone-datanode",
	Short:   "Ozone datanode",
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	cobra.OnInitialize(initLogging)

	startCmd.Flags().String("uuid", "", "This datanode's UUID (generated if unset and not in config)")
	startCmd.Flags().String("scm-address", "", "SCM endpoint address (overrides config; repeat via config for multiple endpoints)")
	startCmd.Flags().String("container-addr", "", "Address to serve the container protocol on (overrides config)")
	startCmd.Flags().String("data-dir", "", "Container data directory (overrides config)")
	rootCmd.AddCommand(startCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOut, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Register with SCM and serve the container data-plane protocol",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		mergeDatanodeFlags(cmd, &cfg.Datanode)
		return runDatanode(cfg)
	},
}

func mergeDatanodeFlags(cmd *cobra.Command, d *config.Datanode) {
	if v, _ := cmd.Flags().GetString("uuid"); v != "" {
		d.UUID = v
	}
	if d.UUID == "" {
		d.UUID = uuid.New().String()
	}
	if v, _ := cmd.Flags().GetString("scm-address"); v != "" {
		d.SCMEndpoints = []string{v}
	}
	if v, _ := cmd.Flags().GetString("container-addr"); v != "" {
		d.ContainerAddr = v
	}
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		d.DataDir = v
	}
}

// runDatanode starts one Endpoint state machine per configured SCM
// address, serves the container protocol over local ContainerStorage,
// and blocks until SIGINT/SIGTERM.
func runDatanode(cfg config.Config) error {
	d := cfg.Datanode
	if len(d.SCMEndpoints) == 0 {
		return fmt.Errorf("datanode: no scm endpoints configured")
	}

	certDir, err := security.GetCertDir("datanode", d.UUID)
	if err != nil {
		return fmt.Errorf("cert dir: %w", err)
	}
	if !security.CertExists(certDir) {
		return fmt.Errorf("no certificate at %s; run `ozone cluster issue-cert --role datanode --id %s` first", certDir, d.UUID)
	}

	storage, err := datanode.NewContainerStorage(d.DataDir)
	if err != nil {
		return fmt.Errorf("new container storage: %w", err)
	}

	metricsCtx := metrics.NewContext("ozone_datanode")

	details := &types.Datanode{
		UUID:      d.UUID,
		HostName:  d.HostName,
		IPAddress: d.IPAddress,
		Ports:     map[string]int{"container": containerPort(d.ContainerAddr)},
		Labels:    map[string]string{"rack": d.Rack},
		Stat:      types.NodeStat{Capacity: d.CapacityBytes, Remaining: d.CapacityBytes},
	}

	var endpoints []*datanode.Endpoint
	for _, addr := range d.SCMEndpoints {
		scmConn, err := scmclient.Dial(addr, certDir)
		if err != nil {
			return fmt.Errorf("dial scm %s: %w", addr, err)
		}
		defer scmConn.Close()

		ep := datanode.NewEndpoint(datanode.Config{
			Client:          scmConn,
			Details:         details,
			StatFunc:        func() types.NodeStat { return details.Stat },
			ReportFunc:      storage.ListContainers,
			HeartbeatPeriod: d.HeartbeatDuration(),
			Metrics:         metricsCtx,
		})
		ep.RegisterProcessor(types.CommandDeleteBlocks, datanode.NewDeleteBlocksProcessor(storage))
		ep.Start()
		defer ep.Stop()
		endpoints = append(endpoints, ep)

		log.Info(fmt.Sprintf("datanode: endpoint started for scm %s", addr))
	}

	grpcServer, err := api.NewServer("datanode", d.UUID, metricsCtx)
	if err != nil {
		return fmt.Errorf("new api server: %w", err)
	}
	grpcServer.RegisterContainer(storage)

	errCh := make(chan error, 1)
	go func() {
		if err := grpcServer.Start(d.ContainerAddr); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	healthSrv := api.NewHealthServer(nil, nil, metricsCtx)
	go func() {
		if err := healthSrv.Start(d.HealthAddr); err != nil {
			errCh <- fmt.Errorf("health server: %w", err)
		}
	}()

	log.Info(fmt.Sprintf("datanode: serving container protocol on %s, health/metrics on %s", d.ContainerAddr, d.HealthAddr))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-sigCh:
	}

	log.Info("datanode: shutting down")
	grpcServer.Stop()
	return nil
}

// containerPort extracts the numeric port from "host:port", returning
// 0 on any parse failure since Ports is advisory metadata only.
func containerPort(addr string) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0
	}
	return port
}
