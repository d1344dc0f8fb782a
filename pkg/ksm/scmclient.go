package ksm

import (
	"github.com/cuemby/ozone/pkg/scm/client"
	"github.com/cuemby/ozone/pkg/types"
)

// scmClientAdapter narrows *client.Client's full DeleteBlocks result
// (per-block status, used by CLI reporting) down to the single error
// KSM's compensating-delete and GC paths need.
type scmClientAdapter struct {
	c *client.Client
}

// NewSCMClient wraps a dialed SCM client for use as KSM's SCMClient.
func NewSCMClient(c *client.Client) SCMClient {
	return &scmClientAdapter{c: c}
}

func (a *scmClientAdapter) AllocateBlock(replType types.ReplicationType, factor types.ReplicationFactor, size int64) (*types.AllocatedBlock, error) {
	return a.c.AllocateBlock(replType, factor, size)
}

func (a *scmClientAdapter) DeleteBlocks(containerName string, blockKeys []string) error {
	_, err := a.c.DeleteBlocks(containerName, blockKeys)
	return err
}
