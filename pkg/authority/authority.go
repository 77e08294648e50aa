// Package authority implements the single-owner world task: one goroutine
// that is the sole mutator of the chunk store and player registry,
// serialized through a bounded command channel.
package authority

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/blocklayer/voxelkeep/pkg/netio"
	"github.com/blocklayer/voxelkeep/pkg/protocol"
	"github.com/blocklayer/voxelkeep/pkg/registry"
	"github.com/blocklayer/voxelkeep/pkg/voxel"
	"github.com/blocklayer/voxelkeep/pkg/world"
)

// NoUser is the sentinel uid for admin/server-originated commands.
const NoUser = registry.NoUser

// channelCapacity bounds how many in-flight commands may queue before a
// Submit call blocks, exerting back-pressure on the connection that issued
// it.
const channelCapacity = 10000

const settingsFileName = "settings.json"
const playersFileName = "players.json"
const chunksFileName = "chunks.dat"

// Authority owns the chunk store and player registry for one world
// directory and processes commands against them one at a time.
type Authority struct {
	registry *registry.Registry
	store    *world.Store
	worldDir string
	logger   *zap.Logger

	ch       chan envelope
	exitCode chan int
}

// New loads a world directory (settings.json is mandatory; players.json and
// chunks.dat are optional) and builds an Authority ready to Run.
func New(worldDir string, logger *zap.Logger) (*Authority, error) {
	settings, err := world.LoadSettings(filepath.Join(worldDir, settingsFileName))
	if err != nil {
		return nil, err
	}
	store, err := world.LoadStore(int64(settings.Seed), filepath.Join(worldDir, chunksFileName))
	if err != nil {
		return nil, err
	}
	reg, err := registry.Load(filepath.Join(worldDir, playersFileName))
	if err != nil {
		return nil, err
	}
	return &Authority{
		registry: reg,
		store:    store,
		worldDir: worldDir,
		logger:   logger,
		ch:       make(chan envelope, channelCapacity),
		exitCode: make(chan int, 1),
	}, nil
}

// Run processes commands until a CmdShutdown is handled. It is meant to run
// on its own goroutine for the lifetime of the server.
func (a *Authority) Run() {
	for env := range a.ch {
		if stop := a.dispatch(env.uid, env.cmd); stop {
			return
		}
	}
}

// Submit enqueues a command, blocking while the channel is full.
func (a *Authority) Submit(uid uint64, cmd Command) {
	a.ch <- envelope{uid: uid, cmd: cmd}
}

// RequestLogin submits a login and blocks for its reply.
func (a *Authority) RequestLogin(name string, out *netio.Outbound) (uint64, bool) {
	reply := make(chan LoginReply, 1)
	a.ch <- envelope{uid: NoUser, cmd: CmdLogin{Name: name, Outbound: out, Reply: reply}}
	r := <-reply
	return r.UID, r.OK
}

// TrySubmitShutdown attempts to enqueue a shutdown within timeout. It
// reports false if the world task appears unresponsive (the command
// channel stayed full the whole time), which callers treat as fatal.
func (a *Authority) TrySubmitShutdown(timeout time.Duration) bool {
	select {
	case a.ch <- envelope{uid: NoUser, cmd: CmdShutdown{}}:
		return true
	case <-time.After(timeout):
		return false
	}
}

// ExitCode yields the process exit code once Run has handled shutdown.
func (a *Authority) ExitCode() <-chan int { return a.exitCode }

func (a *Authority) dispatch(uid uint64, cmd Command) (stop bool) {
	switch c := cmd.(type) {
	case CmdLogin:
		a.handleLogin(c)
	case CmdLogout:
		a.handleLogout(uid)
	case CmdChunkRequest:
		a.handleChunkRequest(uid, c.Pos)
	case CmdBlockUpdate:
		a.handleBlockUpdate(c.Pos, c.Block)
	case CmdPosition:
		a.handlePosition(uid, c)
	case CmdShutdown:
		a.handleShutdown()
		return true
	default:
		a.logger.Warn("unhandled command", zap.String("type", fmt.Sprintf("%T", cmd)))
	}
	return false
}

func (a *Authority) handleLogin(c CmdLogin) {
	uid, ok := a.registry.Login(c.Name, c.Outbound)
	c.Reply <- LoginReply{UID: uid, OK: ok}
	if !ok {
		return
	}

	player, _ := a.registry.Get(uid)
	c.Outbound.Send(protocol.LoginSuccess{UID: uid}.Encode())
	c.Outbound.Send(protocol.ServerPlayerPosition{
		UID: uid, Pos: player.Pos, Pitch: player.Pitch, Yaw: player.Yaw,
	}.Encode())

	others := a.registry.Online()
	for _, other := range others {
		if other.UID == uid {
			continue
		}
		c.Outbound.Send(protocol.PlayerLogin{Name: other.Name, UID: other.UID}.Encode())
	}

	announce := protocol.PlayerLogin{Name: c.Name, UID: uid}.Encode()
	for _, other := range others {
		if other.UID == uid {
			continue
		}
		other.Outbound.Send(announce)
	}
	a.logger.Info("player logged in", zap.Uint64("uid", uid), zap.String("name", c.Name))
}

func (a *Authority) handleLogout(uid uint64) {
	player, ok := a.registry.Get(uid)
	if !ok {
		return
	}
	a.registry.Logout(uid)
	frame := protocol.Logout{UID: uid}.Encode()
	for _, other := range a.registry.Online() {
		other.Outbound.Send(frame)
	}
	a.logger.Info("player logged out", zap.Uint64("uid", uid), zap.String("name", player.Name))
}

func (a *Authority) handleChunkRequest(uid uint64, pos voxel.ChunkPos) {
	player, ok := a.registry.Get(uid)
	if !ok {
		return
	}
	chunk := a.store.Get(pos)
	player.Outbound.TrySend(protocol.ChunkData{Pos: pos, Blocks: chunk.Blocks}.Encode())
}

func (a *Authority) handleBlockUpdate(pos voxel.BlockPos, block byte) {
	final, ok := a.store.ApplyBlockUpdate(pos, block)
	if !ok {
		return
	}
	frame := protocol.BlockUpdate{Pos: pos, Block: final}.Encode()
	for _, other := range a.registry.Online() {
		other.Outbound.Send(frame)
	}
}

func (a *Authority) handlePosition(uid uint64, c CmdPosition) {
	a.registry.UpdatePosition(uid, c.Pos, c.Pitch, c.Yaw)
	frame := protocol.ServerPlayerPosition{UID: uid, Pos: c.Pos, Pitch: c.Pitch, Yaw: c.Yaw}.Encode()
	for _, other := range a.registry.Online() {
		if other.UID == uid {
			continue
		}
		other.Outbound.TrySend(frame)
	}
}

func (a *Authority) handleShutdown() {
	if err := a.registry.Flush(filepath.Join(a.worldDir, playersFileName)); err != nil {
		a.logger.Error("flush players", zap.Error(err))
	}
	if err := a.store.Flush(filepath.Join(a.worldDir, chunksFileName)); err != nil {
		a.logger.Error("flush chunks", zap.Error(err))
	}
	a.logger.Info("world state flushed, shutting down")
	a.exitCode <- 0
}
