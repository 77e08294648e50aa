package authority

import (
	"github.com/blocklayer/voxelkeep/pkg/netio"
	"github.com/blocklayer/voxelkeep/pkg/voxel"
)

// Command is one request submitted to the world authority. The concrete
// types below are the only commands it understands.
type Command interface{ isCommand() }

// LoginReply is returned to the requester of a CmdLogin over its Reply channel.
type LoginReply struct {
	UID uint64
	OK  bool
}

// CmdLogin requests a session for Name. Outbound is the queue already
// wired to the connection's writer goroutine; on success the authority
// enqueues the login side-effects onto it directly.
type CmdLogin struct {
	Name     string
	Outbound *netio.Outbound
	Reply    chan<- LoginReply
}

func (CmdLogin) isCommand() {}

// CmdLogout ends a session. The uid is carried on the envelope, not the
// command itself.
type CmdLogout struct{}

func (CmdLogout) isCommand() {}

// CmdChunkRequest asks for the current contents of a chunk.
type CmdChunkRequest struct {
	Pos voxel.ChunkPos
}

func (CmdChunkRequest) isCommand() {}

// CmdBlockUpdate requests a single block change.
type CmdBlockUpdate struct {
	Pos   voxel.BlockPos
	Block byte
}

func (CmdBlockUpdate) isCommand() {}

// CmdPosition reports the sender's latest pose.
type CmdPosition struct {
	Pos        [3]float64
	Pitch, Yaw float32
}

func (CmdPosition) isCommand() {}

// CmdShutdown triggers persistence of world state and process termination.
type CmdShutdown struct{}

func (CmdShutdown) isCommand() {}

type envelope struct {
	uid uint64
	cmd Command
}
