package datanode

import (
	"fmt"

	"github.com/cuemby/ozone/pkg/types"
)

// CommandProcessor handles one concrete SCMCommand variant drained
// from an Endpoint's queue. Pluggable and registered per SCMCommandType.
type CommandProcessor interface {
	Process(cmd types.SCMCommand) error
}

// BlockDeleter removes a batch of blocks from local container
// storage. Production wiring wraps the datanode's on-disk container
// layout; tests supply a fake.
type BlockDeleter interface {
	DeleteBlocks(containerName string, blockKeys []string) error
}

// DeleteBlocksProcessor is the initial CommandProcessor: it drains
// DeletedBlocksTransaction batches and deletes the named blocks from
// local storage.
type DeleteBlocksProcessor struct {
	deleter BlockDeleter
}

// NewDeleteBlocksProcessor builds a DeleteBlocksProcessor backed by
// deleter.
func NewDeleteBlocksProcessor(deleter BlockDeleter) *DeleteBlocksProcessor {
	return &DeleteBlocksProcessor{deleter: deleter}
}

// Process implements CommandProcessor.
func (p *DeleteBlocksProcessor) Process(cmd types.SCMCommand) error {
	if cmd.Type != types.CommandDeleteBlocks {
		return fmt.Errorf("datanode: DeleteBlocksProcessor given wrong command type %q", cmd.Type)
	}
	for _, txn := range cmd.DeleteBlocks {
		if err := p.deleter.DeleteBlocks(txn.ContainerName, txn.BlockKeys); err != nil {
			return fmt.Errorf("datanode: failed to delete blocks for container %q: %w", txn.ContainerName, err)
		}
	}
	return nil
}
