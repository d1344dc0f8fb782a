// Package config loads process configuration for the Ozone binaries
// (ozone-scm, ozone-ksm, ozone-datanode, ozone) from a YAML file.
// Every field has a default so a binary can run from flags alone with
// no file at all; Load only overlays what a file actually sets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SCM holds the configuration keys that affect SCM's core behavior,
// plus the raft/store/TLS directories every role needs.
type SCM struct {
	NodeID                string `yaml:"nodeID"`
	BindAddr              string `yaml:"bindAddr"`      // raft transport
	ClientAddr            string `yaml:"address"`       // scm.address: client-facing gRPC
	DatanodeAddr          string `yaml:"datanodeAddr"`  // scm.datanode.address
	HealthAddr            string `yaml:"healthAddr"`
	DataDir               string `yaml:"dataDir"`
	PlacementImpl         string `yaml:"placementImpl"` // scm.container.placement.impl
	ChunkSize             int64  `yaml:"chunkSize"`     // scm.chunk.size
	ChunkMaxSize          int64  `yaml:"chunkMaxSize"`
	BlockDeletionMaxRetry int    `yaml:"blockDeletionMaxRetry"` // scm.block.deletion.max.retry
	StaleSeconds          int    `yaml:"staleSeconds"`
	DeadSeconds           int    `yaml:"deadSeconds"`
	HeartbeatSeconds      int    `yaml:"heartbeatSeconds"`
}

// KSM holds ksm.* configuration keys.
type KSM struct {
	NodeID       string `yaml:"nodeID"`
	BindAddr     string `yaml:"bindAddr"`
	ClientAddr   string `yaml:"address"`      // ksm.address
	HealthAddr   string `yaml:"healthAddr"`
	DataDir      string `yaml:"dataDir"`
	HandlerCount int    `yaml:"handlerCount"` // ksm.handler.count
	SCMAddress   string `yaml:"scmAddress"`   // scm.address, as seen by KSM's allocateKey path
}

// Datanode holds the per-datanode configuration: the SCM endpoints it
// registers against and where it stores container data on local disk.
type Datanode struct {
	UUID             string   `yaml:"uuid"`
	HostName         string   `yaml:"hostName"`
	IPAddress        string   `yaml:"ipAddress"`
	ContainerAddr    string   `yaml:"containerAddr"` // address this node serves the container protocol on
	HealthAddr       string   `yaml:"healthAddr"`
	DataDir          string   `yaml:"dataDir"`
	SCMEndpoints     []string `yaml:"scmEndpoints"`
	CapacityBytes    int64    `yaml:"capacityBytes"`
	HeartbeatSeconds int      `yaml:"heartbeatSeconds"`
	Rack             string   `yaml:"rack"`
}

// Config is the top-level process configuration; a binary only reads
// the sub-struct for its own role.
type Config struct {
	SCM      SCM      `yaml:"scm"`
	KSM      KSM      `yaml:"ksm"`
	Datanode Datanode `yaml:"datanode"`
	CertDir  string   `yaml:"certDir"`
	LogLevel string   `yaml:"logLevel"`
	LogJSON  bool     `yaml:"logJSON"`
}

// Default returns a Config with every field set to a usable
// single-node default (stale after 90s, dead after 300s, 30s
// heartbeats, 16 MiB chunks).
func Default() Config {
	return Config{
		SCM: SCM{
			NodeID:                "scm-1",
			BindAddr:              "127.0.0.1:9091",
			ClientAddr:            "127.0.0.1:9090",
			DatanodeAddr:          "127.0.0.1:9090",
			HealthAddr:            "127.0.0.1:9190",
			DataDir:               "./ozone-scm-data",
			PlacementImpl:         "RANDOM",
			ChunkSize:             16 << 20,
			ChunkMaxSize:          32 << 20,
			BlockDeletionMaxRetry: 5,
			StaleSeconds:          90,
			DeadSeconds:           300,
			HeartbeatSeconds:      30,
		},
		KSM: KSM{
			NodeID:       "ksm-1",
			BindAddr:     "127.0.0.1:9291",
			ClientAddr:   "127.0.0.1:9290",
			HealthAddr:   "127.0.0.1:9390",
			DataDir:      "./ozone-ksm-data",
			HandlerCount: 10,
			SCMAddress:   "127.0.0.1:9090",
		},
		Datanode: Datanode{
			ContainerAddr:    "127.0.0.1:9490",
			HealthAddr:       "127.0.0.1:9590",
			DataDir:          "./ozone-datanode-data",
			CapacityBytes:    100 << 30,
			HeartbeatSeconds: 30,
		},
		LogLevel: "info",
	}
}

// Load reads a YAML file at path and overlays it onto Default(). A
// missing path is not an error: callers run on defaults plus whatever
// flags they apply afterward.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// StaleDuration is scm.StaleSeconds as a time.Duration.
func (s SCM) StaleDuration() time.Duration { return time.Duration(s.StaleSeconds) * time.Second }

// DeadDuration is scm.DeadSeconds as a time.Duration.
func (s SCM) DeadDuration() time.Duration { return time.Duration(s.DeadSeconds) * time.Second }

// HeartbeatDuration is scm.HeartbeatSeconds as a time.Duration.
func (s SCM) HeartbeatDuration() time.Duration {
	return time.Duration(s.HeartbeatSeconds) * time.Second
}

// HeartbeatDuration is datanode.HeartbeatSeconds as a time.Duration.
func (d Datanode) HeartbeatDuration() time.Duration {
	return time.Duration(d.HeartbeatSeconds) * time.Second
}
