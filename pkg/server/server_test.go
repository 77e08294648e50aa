package server

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/blocklayer/voxelkeep/pkg/client"
	"github.com/blocklayer/voxelkeep/pkg/protocol"
	"github.com/blocklayer/voxelkeep/pkg/voxel"
)

func startTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	settings, err := json.Marshal(map[string]any{"seed": 99})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"), settings, 0o644))

	srv, err := New(Config{ListenAddr: "127.0.0.1:0", WorldDir: dir}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, srv.Start())

	t.Cleanup(func() {
		srv.Authority().TrySubmitShutdown(time.Second)
		<-srv.Authority().ExitCode()
		srv.Close()
	})
	return srv
}

func waitForEvent[T any](t *testing.T, ch <-chan protocol.Message) T {
	t.Helper()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				t.Fatal("event channel closed before expected message arrived")
			}
			if m, ok := msg.(T); ok {
				return m
			}
		case <-time.After(3 * time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestLoginJoinAndBroadcast(t *testing.T) {
	srv := startTestServer(t)
	ctx := context.Background()

	alice, err := client.Dial(ctx, srv.Addr().String(), "alice")
	require.NoError(t, err)
	defer alice.Close()

	bob, err := client.Dial(ctx, srv.Addr().String(), "bob")
	require.NoError(t, err)
	defer bob.Close()

	// alice should observe bob's arrival.
	joined := waitForEvent[protocol.PlayerLogin](t, alice.Events)
	require.Equal(t, "bob", joined.Name)
	require.Equal(t, bob.UID, joined.UID)
}

func TestDuplicateNameRejected(t *testing.T) {
	srv := startTestServer(t)
	ctx := context.Background()

	first, err := client.Dial(ctx, srv.Addr().String(), "dup")
	require.NoError(t, err)
	defer first.Close()

	_, err = client.Dial(ctx, srv.Addr().String(), "dup")
	require.Error(t, err)
}

func TestChunkRequestReturnsDeterministicData(t *testing.T) {
	srv := startTestServer(t)
	ctx := context.Background()

	c, err := client.Dial(ctx, srv.Addr().String(), "explorer")
	require.NoError(t, err)
	defer c.Close()

	pos := voxel.ChunkPos{X: 0, Y: 0, Z: 0}
	c.RequestChunk(pos)
	chunk := waitForEvent[protocol.ChunkData](t, c.Events)
	require.Equal(t, pos, chunk.Pos)

	c.RequestChunk(pos)
	again := waitForEvent[protocol.ChunkData](t, c.Events)
	require.Equal(t, chunk.Blocks, again.Blocks)
}

func TestBlockUpdateEchoesToSenderAndOthers(t *testing.T) {
	srv := startTestServer(t)
	ctx := context.Background()

	a, err := client.Dial(ctx, srv.Addr().String(), "a")
	require.NoError(t, err)
	defer a.Close()
	b, err := client.Dial(ctx, srv.Addr().String(), "b")
	require.NoError(t, err)
	defer b.Close()

	waitForEvent[protocol.PlayerLogin](t, a.Events) // b's join, observed by a

	pos := voxel.ChunkPos{X: 0, Y: 0, Z: 0}
	a.RequestChunk(pos)
	waitForEvent[protocol.ChunkData](t, a.Events) // chunk must be loaded before a block update applies

	bp := voxel.BlockPos{X: 0, Y: 0, Z: 0}
	a.SetBlock(bp, 0) // destroy, unconditionally applies

	gotA := waitForEvent[protocol.BlockUpdate](t, a.Events)
	require.Equal(t, bp, gotA.Pos)
	require.Equal(t, byte(0), gotA.Block)

	gotB := waitForEvent[protocol.BlockUpdate](t, b.Events)
	require.Equal(t, bp, gotB.Pos)
	require.Equal(t, byte(0), gotB.Block)
}

func TestPositionBroadcastExcludesSender(t *testing.T) {
	srv := startTestServer(t)
	ctx := context.Background()

	a, err := client.Dial(ctx, srv.Addr().String(), "mover")
	require.NoError(t, err)
	defer a.Close()
	b, err := client.Dial(ctx, srv.Addr().String(), "watcher")
	require.NoError(t, err)
	defer b.Close()

	waitForEvent[protocol.PlayerLogin](t, a.Events)

	a.SendPosition([3]float64{1, 2, 3}, 0.1, 0.2)

	moved := waitForEvent[protocol.ServerPlayerPosition](t, b.Events)
	require.Equal(t, a.UID, moved.UID)
	require.Equal(t, [3]float64{1, 2, 3}, moved.Pos)

	// The sender must not get its own position echoed back.
	deadline := time.After(200 * time.Millisecond)
	for {
		select {
		case msg, ok := <-a.Events:
			if !ok {
				return
			}
			if echo, isPos := msg.(protocol.ServerPlayerPosition); isPos {
				t.Fatalf("sender received its own position broadcast: %+v", echo)
			}
		case <-deadline:
			return
		}
	}
}

func TestLogoutBroadcast(t *testing.T) {
	srv := startTestServer(t)
	ctx := context.Background()

	a, err := client.Dial(ctx, srv.Addr().String(), "stayer")
	require.NoError(t, err)
	defer a.Close()
	b, err := client.Dial(ctx, srv.Addr().String(), "leaver")
	require.NoError(t, err)

	waitForEvent[protocol.PlayerLogin](t, a.Events)
	leaverUID := b.UID
	require.NoError(t, b.Close())

	out := waitForEvent[protocol.Logout](t, a.Events)
	require.Equal(t, leaverUID, out.UID)
}
