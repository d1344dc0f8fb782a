// Command ozone is the administrative CLI for Volume/Bucket/Key and
// container operations, plus cluster certificate bootstrap. It is a
// thin wrapper over KSM's KeySpaceManagerProtocol and SCM's
// StorageContainerLocationProtocol: each RunE dials, calls one RPC,
// prints the result, and returns.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/cuemby/ozone/pkg/log"
	"github.com/cuemby/ozone/pkg/rpc"
	scmclient "github.com/cuemby/ozone/pkg/scm/client"
	"github.com/cuemby/ozone/pkg/security"
	"github.com/cuemby/ozone/pkg/storage"
	"github.com/cuemby/ozone/pkg/types"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

var Version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "ozone",
	Short:   "Ozone administrative CLI",
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("ksm-address", "127.0.0.1:9290", "KSM client address")
	rootCmd.PersistentFlags().String("scm-address", "127.0.0.1:9090", "SCM client address")
	cobra.OnInitialize(func() {
		level, _ := rootCmd.PersistentFlags().GetString("log-level")
		log.Init(log.Config{Level: log.Level(level)})
	})

	volumeCmd.AddCommand(volumeCreateCmd, volumeInfoCmd, volumeDeleteCmd, volumeSetQuotaCmd, volumeSetOwnerCmd)
	bucketCmd.AddCommand(bucketCreateCmd, bucketInfoCmd, bucketDeleteCmd)
	keyCmd.AddCommand(keyStatCmd, keyDeleteCmd, keyListCmd)
	scmCmd.AddCommand(scmContainerCreateCmd, scmContainerGetCmd)
	clusterCmd.AddCommand(clusterInitCACmd, clusterIssueCertCmd)

	volumeCreateCmd.Flags().String("owner", "", "Owner name (defaults to current OS user)")
	volumeCreateCmd.Flags().String("admin", "", "Admin name (defaults to owner)")
	volumeCreateCmd.Flags().Int64("quota", 0, "Quota in bytes (0 = unlimited)")
	volumeDeleteCmd.Flags().Bool("force", false, "Delete even if the volume still has buckets")
	volumeSetQuotaCmd.Flags().Int64("quota", 0, "New quota in bytes")
	volumeSetOwnerCmd.Flags().String("owner", "", "New owner name")

	bucketCreateCmd.Flags().Bool("versioning", false, "Enable versioning on this bucket")
	bucketCreateCmd.Flags().String("storage-type", "DISK", "Storage type hint")

	keyListCmd.Flags().String("prefix", "", "Only list keys with this prefix")
	keyListCmd.Flags().Int("max-keys", 1000, "Maximum number of keys to return")

	scmContainerCreateCmd.Flags().String("replication-type", string(types.ReplicationRatis), "Replication type: STANDALONE or RATIS")
	scmContainerCreateCmd.Flags().String("replication-factor", string(types.FactorThree), "Replication factor: ONE or THREE")

	clusterIssueCertCmd.Flags().String("role", "", "Node role: scm, ksm, datanode, or cli (required)")
	clusterIssueCertCmd.Flags().String("id", "", "Node ID or UUID (required)")
	clusterIssueCertCmd.Flags().StringSlice("dns", nil, "Additional DNS SANs for node certificates")
	clusterIssueCertCmd.Flags().StringSlice("ip", nil, "Additional IP SANs for node certificates")
	_ = clusterIssueCertCmd.MarkFlagRequired("role")
	_ = clusterIssueCertCmd.MarkFlagRequired("id")

	rootCmd.AddCommand(volumeCmd, bucketCmd, keyCmd, scmCmd, clusterCmd)
}

// --- KSM dialing ---

func dialKSM(cmd *cobra.Command) (*grpc.ClientConn, error) {
	addr, _ := cmd.Flags().GetString("ksm-address")
	certDir, err := security.GetCLICertDir()
	if err != nil {
		return nil, err
	}
	if !security.CertExists(certDir) {
		return nil, fmt.Errorf("no CLI certificate at %s; run `ozone cluster issue-cert --role cli --id <name>` first", certDir)
	}
	cert, err := security.LoadCertFromFile(certDir)
	if err != nil {
		return nil, fmt.Errorf("load cli certificate: %w", err)
	}
	caCert, err := security.LoadCACertFromFile(certDir)
	if err != nil {
		return nil, fmt.Errorf("load ca certificate: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AddCert(caCert)
	tlsConfig := &tls.Config{Certificates: []tls.Certificate{*cert}, RootCAs: pool, MinVersion: tls.VersionTLS13}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)))
	if err != nil {
		return nil, fmt.Errorf("dial ksm at %s: %w", addr, err)
	}
	return conn, nil
}

func dialSCM(cmd *cobra.Command) (*scmclient.Client, error) {
	addr, _ := cmd.Flags().GetString("scm-address")
	certDir, err := security.GetCLICertDir()
	if err != nil {
		return nil, err
	}
	if !security.CertExists(certDir) {
		return nil, fmt.Errorf("no CLI certificate at %s; run `ozone cluster issue-cert --role cli --id <name>` first", certDir)
	}
	return scmclient.Dial(addr, certDir)
}

func rpcCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 15*time.Second)
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "root"
}

// --- volume ---

var volumeCmd = &cobra.Command{
	Use:   "volume",
	Short: "Manage volumes",
}

var volumeCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a new volume",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := dialKSM(cmd)
		if err != nil {
			return err
		}
		defer conn.Close()
		client := rpc.NewKsmClient(conn)

		owner, _ := cmd.Flags().GetString("owner")
		if owner == "" {
			owner = currentUser()
		}
		admin, _ := cmd.Flags().GetString("admin")
		if admin == "" {
			admin = owner
		}
		quota, _ := cmd.Flags().GetInt64("quota")

		ctx, cancel := rpcCtx()
		defer cancel()
		resp, err := client.CreateVolume(ctx, &rpc.CreateVolumeRequest{
			Name:       args[0],
			OwnerName:  owner,
			AdminName:  admin,
			QuotaBytes: quota,
		})
		if err != nil {
			return fmt.Errorf("create volume: %w", err)
		}
		if resp.Status != rpc.StatusOK {
			return fmt.Errorf("create volume: %s", resp.Status)
		}
		fmt.Printf("Volume created: %s (owner %s)\n", args[0], owner)
		return nil
	},
}

var volumeInfoCmd = &cobra.Command{
	Use:   "info NAME",
	Short: "Show volume metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := dialKSM(cmd)
		if err != nil {
			return err
		}
		defer conn.Close()
		client := rpc.NewKsmClient(conn)

		ctx, cancel := rpcCtx()
		defer cancel()
		resp, err := client.GetVolumeInfo(ctx, &rpc.GetVolumeInfoRequest{VolumeName: args[0]})
		if err != nil {
			return fmt.Errorf("get volume info: %w", err)
		}
		if resp.Status != rpc.StatusOK {
			return fmt.Errorf("get volume info: %s", resp.Status)
		}
		v := resp.Volume
		fmt.Printf("Name: %s\n", v.Name)
		fmt.Printf("Owner: %s\n", v.OwnerName)
		fmt.Printf("Admin: %s\n", v.AdminName)
		fmt.Printf("Quota: %d bytes\n", v.QuotaBytes)
		fmt.Printf("Used: %d bytes\n", v.UsedBytes)
		fmt.Printf("Created: %s\n", v.CreatedOn.Format(time.RFC3339))
		return nil
	},
}

var volumeDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a volume",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := dialKSM(cmd)
		if err != nil {
			return err
		}
		defer conn.Close()
		client := rpc.NewKsmClient(conn)

		force, _ := cmd.Flags().GetBool("force")
		ctx, cancel := rpcCtx()
		defer cancel()
		resp, err := client.DeleteVolume(ctx, &rpc.DeleteVolumeRequest{VolumeName: args[0], Force: force})
		if err != nil {
			return fmt.Errorf("delete volume: %w", err)
		}
		if resp.Status != rpc.StatusOK {
			return fmt.Errorf("delete volume: %s", resp.Status)
		}
		fmt.Printf("Volume deleted: %s\n", args[0])
		return nil
	},
}

var volumeSetQuotaCmd = &cobra.Command{
	Use:   "set-quota NAME",
	Short: "Change a volume's quota",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := dialKSM(cmd)
		if err != nil {
			return err
		}
		defer conn.Close()
		client := rpc.NewKsmClient(conn)

		quota, _ := cmd.Flags().GetInt64("quota")
		ctx, cancel := rpcCtx()
		defer cancel()
		resp, err := client.SetQuota(ctx, &rpc.SetQuotaRequest{VolumeName: args[0], QuotaBytes: quota})
		if err != nil {
			return fmt.Errorf("set quota: %w", err)
		}
		if resp.Status != rpc.StatusOK {
			return fmt.Errorf("set quota: %s", resp.Status)
		}
		fmt.Printf("Volume %s quota set to %d bytes\n", args[0], quota)
		return nil
	},
}

var volumeSetOwnerCmd = &cobra.Command{
	Use:   "set-owner NAME",
	Short: "Change a volume's owner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := dialKSM(cmd)
		if err != nil {
			return err
		}
		defer conn.Close()
		client := rpc.NewKsmClient(conn)

		owner, _ := cmd.Flags().GetString("owner")
		if owner == "" {
			return fmt.Errorf("--owner is required")
		}
		ctx, cancel := rpcCtx()
		defer cancel()
		resp, err := client.SetOwner(ctx, &rpc.SetOwnerRequest{VolumeName: args[0], OwnerName: owner})
		if err != nil {
			return fmt.Errorf("set owner: %w", err)
		}
		if resp.Status != rpc.StatusOK {
			return fmt.Errorf("set owner: %s", resp.Status)
		}
		fmt.Printf("Volume %s owner set to %s\n", args[0], owner)
		return nil
	},
}

// --- bucket ---

var bucketCmd = &cobra.Command{
	Use:   "bucket",
	Short: "Manage buckets",
}

func splitVolumeBucket(arg string) (string, string, error) {
	parts := strings.SplitN(arg, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("expected VOLUME/BUCKET, got %q", arg)
	}
	return parts[0], parts[1], nil
}

var bucketCreateCmd = &cobra.Command{
	Use:   "create VOLUME/BUCKET",
	Short: "Create a new bucket in a volume",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vol, bucket, err := splitVolumeBucket(args[0])
		if err != nil {
			return err
		}
		conn, err := dialKSM(cmd)
		if err != nil {
			return err
		}
		defer conn.Close()
		client := rpc.NewKsmClient(conn)

		versioning, _ := cmd.Flags().GetBool("versioning")
		storageType, _ := cmd.Flags().GetString("storage-type")

		ctx, cancel := rpcCtx()
		defer cancel()
		resp, err := client.CreateBucket(ctx, &rpc.CreateBucketRequest{
			VolumeName:        vol,
			BucketName:        bucket,
			VersioningEnabled: versioning,
			StorageType:       storageType,
		})
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		if resp.Status != rpc.StatusOK {
			return fmt.Errorf("create bucket: %s", resp.Status)
		}
		fmt.Printf("Bucket created: %s/%s\n", vol, bucket)
		return nil
	},
}

var bucketInfoCmd = &cobra.Command{
	Use:   "info VOLUME/BUCKET",
	Short: "Show bucket metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vol, bucket, err := splitVolumeBucket(args[0])
		if err != nil {
			return err
		}
		conn, err := dialKSM(cmd)
		if err != nil {
			return err
		}
		defer conn.Close()
		client := rpc.NewKsmClient(conn)

		ctx, cancel := rpcCtx()
		defer cancel()
		resp, err := client.GetBucketInfo(ctx, &rpc.GetBucketInfoRequest{VolumeName: vol, BucketName: bucket})
		if err != nil {
			return fmt.Errorf("get bucket info: %w", err)
		}
		if resp.Status != rpc.StatusOK {
			return fmt.Errorf("get bucket info: %s", resp.Status)
		}
		b := resp.Bucket
		fmt.Printf("Volume: %s\n", b.VolumeName)
		fmt.Printf("Bucket: %s\n", b.BucketName)
		fmt.Printf("Versioning: %v\n", b.VersioningEnabled)
		fmt.Printf("Storage Type: %s\n", b.StorageType)
		fmt.Printf("Created: %s\n", b.CreatedOn.Format(time.RFC3339))
		if len(b.ACLList) > 0 {
			fmt.Printf("ACLs: %s\n", strings.Join(b.ACLList, ", "))
		}
		return nil
	},
}

var bucketDeleteCmd = &cobra.Command{
	Use:   "delete VOLUME/BUCKET",
	Short: "Delete a bucket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vol, bucket, err := splitVolumeBucket(args[0])
		if err != nil {
			return err
		}
		conn, err := dialKSM(cmd)
		if err != nil {
			return err
		}
		defer conn.Close()
		client := rpc.NewKsmClient(conn)

		ctx, cancel := rpcCtx()
		defer cancel()
		resp, err := client.DeleteBucket(ctx, &rpc.DeleteBucketRequest{VolumeName: vol, BucketName: bucket})
		if err != nil {
			return fmt.Errorf("delete bucket: %w", err)
		}
		if resp.Status != rpc.StatusOK {
			return fmt.Errorf("delete bucket: %s", resp.Status)
		}
		fmt.Printf("Bucket deleted: %s/%s\n", vol, bucket)
		return nil
	},
}

// --- key ---

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Inspect and remove keys",
}

func splitKeyArg(arg string) (string, string, string, error) {
	parts := strings.SplitN(arg, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("expected VOLUME/BUCKET/KEY, got %q", arg)
	}
	return parts[0], parts[1], parts[2], nil
}

var keyStatCmd = &cobra.Command{
	Use:   "stat VOLUME/BUCKET/KEY",
	Short: "Show key metadata (lookupKey)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vol, bucket, key, err := splitKeyArg(args[0])
		if err != nil {
			return err
		}
		conn, err := dialKSM(cmd)
		if err != nil {
			return err
		}
		defer conn.Close()
		client := rpc.NewKsmClient(conn)

		ctx, cancel := rpcCtx()
		defer cancel()
		resp, err := client.LookupKey(ctx, &rpc.LookupKeyRequest{VolumeName: vol, BucketName: bucket, KeyName: key})
		if err != nil {
			return fmt.Errorf("lookup key: %w", err)
		}
		if resp.Status != rpc.StatusOK {
			return fmt.Errorf("lookup key: %s", resp.Status)
		}
		k := resp.Key
		fmt.Printf("Key: %s/%s/%s\n", k.VolumeName, k.BucketName, k.KeyName)
		fmt.Printf("Size: %d bytes\n", k.DataSize)
		fmt.Printf("Container: %s\n", k.ContainerName)
		fmt.Printf("Block: %s\n", k.BlockID)
		return nil
	},
}

var keyDeleteCmd = &cobra.Command{
	Use:   "delete VOLUME/BUCKET/KEY",
	Short: "Delete a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vol, bucket, key, err := splitKeyArg(args[0])
		if err != nil {
			return err
		}
		conn, err := dialKSM(cmd)
		if err != nil {
			return err
		}
		defer conn.Close()
		client := rpc.NewKsmClient(conn)

		ctx, cancel := rpcCtx()
		defer cancel()
		resp, err := client.DeleteKey(ctx, &rpc.DeleteKeyRequest{VolumeName: vol, BucketName: bucket, KeyName: key})
		if err != nil {
			return fmt.Errorf("delete key: %w", err)
		}
		if resp.Status != rpc.StatusOK {
			return fmt.Errorf("delete key: %s", resp.Status)
		}
		fmt.Printf("Key deleted: %s/%s/%s\n", vol, bucket, key)
		return nil
	},
}

var keyListCmd = &cobra.Command{
	Use:   "list VOLUME/BUCKET",
	Short: "List keys in a bucket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vol, bucket, err := splitVolumeBucket(args[0])
		if err != nil {
			return err
		}
		conn, err := dialKSM(cmd)
		if err != nil {
			return err
		}
		defer conn.Close()
		client := rpc.NewKsmClient(conn)

		prefix, _ := cmd.Flags().GetString("prefix")
		maxKeys, _ := cmd.Flags().GetInt("max-keys")

		ctx, cancel := rpcCtx()
		defer cancel()
		resp, err := client.ListKeys(ctx, &rpc.ListKeysRequest{VolumeName: vol, BucketName: bucket, Prefix: prefix, MaxKeys: maxKeys})
		if err != nil {
			return fmt.Errorf("list keys: %w", err)
		}
		if resp.Status != rpc.StatusOK {
			return fmt.Errorf("list keys: %s", resp.Status)
		}
		if len(resp.Keys) == 0 {
			fmt.Println("No keys found")
			return nil
		}
		fmt.Printf("%-40s %-12s %s\n", "KEY", "SIZE", "CONTAINER")
		fmt.Println(strings.Repeat("-", 70))
		for _, k := range resp.Keys {
			fmt.Printf("%-40s %-12d %s\n", k.KeyName, k.DataSize, k.ContainerName)
		}
		return nil
	},
}

// --- scm container ---

var scmCmd = &cobra.Command{
	Use:   "scm",
	Short: "Manage storage containers directly against SCM",
}

var scmContainerCreateCmd = &cobra.Command{
	Use:   "container-create NAME",
	Short: "Allocate a new storage container (wraps allocateContainer)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := dialSCM(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		replType, _ := cmd.Flags().GetString("replication-type")
		factor, _ := cmd.Flags().GetString("replication-factor")

		pipeline, err := client.AllocateContainer(args[0], types.ReplicationType(replType), types.ReplicationFactor(factor))
		if err != nil {
			return fmt.Errorf("allocate container: %w", err)
		}
		fmt.Printf("Container created: %s\n", pipeline.ContainerName)
		fmt.Printf("Leader: %s\n", pipeline.LeaderUUID)
		fmt.Printf("Members: %s\n", strings.Join(pipeline.Members, ", "))
		return nil
	},
}

var scmContainerGetCmd = &cobra.Command{
	Use:   "container-get NAME",
	Short: "Show a container's pipeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := dialSCM(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		pipeline, err := client.GetContainer(args[0])
		if err != nil {
			return fmt.Errorf("get container: %w", err)
		}
		fmt.Printf("Container: %s\n", pipeline.ContainerName)
		fmt.Printf("Leader: %s\n", pipeline.LeaderUUID)
		fmt.Printf("Members: %s\n", strings.Join(pipeline.Members, ", "))
		fmt.Printf("Replication: %s/%s\n", pipeline.ReplicationType, pipeline.ReplicationFactor)
		return nil
	},
}

// --- cluster cert bootstrap ---

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Bootstrap the cluster certificate authority",
}

// caStoreDir holds the single CA MetadataStore shared by every
// issue-cert invocation; it lives outside any node's own data
// directory since the CA outlives any one SCM/KSM/datanode process.
func caStoreDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return home + "/.ozone/ca", nil
}

var clusterInitCACmd = &cobra.Command{
	Use:   "init-ca",
	Short: "Generate a new root certificate authority for this cluster",
	Long: `Generate a new root CA and persist it under ~/.ozone/ca.

Every ozone-scm, ozone-ksm, ozone-datanode, and CLI certificate issued
afterward with "ozone cluster issue-cert" is signed by this CA.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := caStoreDir()
		if err != nil {
			return err
		}
		store, err := storage.Open(dir + "/ca.db")
		if err != nil {
			return fmt.Errorf("open ca store: %w", err)
		}
		defer store.Close()

		ca := security.NewCertAuthority(store)
		if err := ca.Initialize(); err != nil {
			return fmt.Errorf("initialize ca: %w", err)
		}
		if err := ca.SaveToStore(); err != nil {
			return fmt.Errorf("save ca: %w", err)
		}
		fmt.Println("Certificate authority initialized")
		fmt.Printf("  Store: %s/ca.db\n", dir)
		fmt.Println("Run `ozone cluster issue-cert --role <scm|ksm|datanode|cli> --id <id>` for each node.")
		return nil
	},
}

var clusterIssueCertCmd = &cobra.Command{
	Use:   "issue-cert",
	Short: "Issue a node or CLI certificate signed by the cluster CA",
	RunE: func(cmd *cobra.Command, args []string) error {
		role, _ := cmd.Flags().GetString("role")
		id, _ := cmd.Flags().GetString("id")

		dir, err := caStoreDir()
		if err != nil {
			return err
		}
		store, err := storage.Open(dir + "/ca.db")
		if err != nil {
			return fmt.Errorf("open ca store: %w", err)
		}
		defer store.Close()

		ca := security.NewCertAuthority(store)
		if err := ca.LoadFromStore(); err != nil {
			return fmt.Errorf("load ca (run `ozone cluster init-ca` first): %w", err)
		}

		var certDir string
		var cert *tls.Certificate
		if role == "cli" {
			certDir, err = security.GetCLICertDir()
			if err != nil {
				return err
			}
			cert, err = ca.IssueClientCertificate(id)
		} else {
			certDir, err = security.GetCertDir(role, id)
			if err != nil {
				return err
			}
			dnsNames, _ := cmd.Flags().GetStringSlice("dns")
			ipStrs, _ := cmd.Flags().GetStringSlice("ip")
			var ips []net.IP
			for _, s := range ipStrs {
				if ip := net.ParseIP(s); ip != nil {
					ips = append(ips, ip)
				}
			}
			cert, err = ca.IssueNodeCertificate(id, role, dnsNames, ips)
		}
		if err != nil {
			return fmt.Errorf("issue certificate: %w", err)
		}

		if err := security.SaveCertToFile(cert, certDir); err != nil {
			return fmt.Errorf("save certificate: %w", err)
		}
		if err := security.SaveCACertToFile(ca.GetRootCACert(), certDir); err != nil {
			return fmt.Errorf("save ca certificate: %w", err)
		}
		fmt.Printf("Certificate issued for %s %q\n", role, id)
		fmt.Printf("  %s\n", certDir)
		return nil
	},
}
