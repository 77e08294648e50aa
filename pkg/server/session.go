package server

import (
	"errors"
	"net"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/blocklayer/voxelkeep/pkg/authority"
	"github.com/blocklayer/voxelkeep/pkg/netio"
	"github.com/blocklayer/voxelkeep/pkg/protocol"
)

var errProtocolViolation = errors.New("server: protocol violation")

// serve runs one client connection to completion: login handshake, then the
// command loop, until either side closes or a protocol error occurs.
// Reading and writing run in an errgroup pair sharing a bounded outbound
// queue, per the connection-pair design: neither side can stall the other
// directly, and a slow client only ever backs up its own queue. Either
// goroutine exiting tears down the connection and unblocks the other.
func serve(conn net.Conn, auth *authority.Authority, logger *zap.Logger) {
	connID := uuid.NewString()
	logger = logger.With(zap.String("conn", connID), zap.String("remote", conn.RemoteAddr().String()))
	logger.Debug("connection accepted")

	out := netio.NewOutbound(netio.DefaultQueueCapacity)
	var closeOnce sync.Once
	closeConn := func() { closeOnce.Do(func() { conn.Close() }) }

	g := new(errgroup.Group)
	g.Go(func() error {
		err := writerLoop(conn, out)
		closeConn()
		return err
	})
	g.Go(func() error {
		err := readerLoop(conn, auth, out, logger)
		out.Close()
		closeConn()
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Debug("connection ended", zap.Error(err))
	}
}

func writerLoop(conn net.Conn, out *netio.Outbound) error {
	for {
		frame, ok := out.Recv()
		if !ok {
			return nil
		}
		if _, err := conn.Write(frame); err != nil {
			return err
		}
	}
}

func readerLoop(conn net.Conn, auth *authority.Authority, out *netio.Outbound, logger *zap.Logger) error {
	var uid uint64
	loggedIn := false
	defer func() {
		if loggedIn {
			auth.Submit(uid, authority.CmdLogout{})
		}
	}()

	// Start state: the only legal message is Login.
	id, err := protocol.ReadID(conn)
	if err != nil {
		return err
	}
	if id != protocol.IDLogin {
		return errProtocolViolation
	}
	msg, err := protocol.Decode(protocol.ServerPerspective, id, conn)
	if err != nil {
		return err
	}
	login, ok := msg.(protocol.Login)
	if !ok {
		return errProtocolViolation
	}

	newUID, accepted := auth.RequestLogin(login.Name, out)
	if !accepted {
		out.Send(protocol.LoginFailed{}.Encode())
		return errors.New("server: login rejected")
	}
	uid = newUID
	loggedIn = true
	logger.Info("login accepted", zap.String("name", login.Name), zap.Uint64("uid", uid))

	// Play state: the command loop.
	for {
		id, err := protocol.ReadID(conn)
		if err != nil {
			return err
		}
		msg, err := protocol.Decode(protocol.ServerPerspective, id, conn)
		if err != nil {
			return err
		}
		switch m := msg.(type) {
		case protocol.RequestChunk:
			auth.Submit(uid, authority.CmdChunkRequest{Pos: m.Pos})
		case protocol.BlockUpdate:
			auth.Submit(uid, authority.CmdBlockUpdate{Pos: m.Pos, Block: m.Block})
		case protocol.ClientPlayerPosition:
			auth.Submit(uid, authority.CmdPosition{Pos: m.Pos, Pitch: m.Pitch, Yaw: m.Yaw})
		default:
			return errProtocolViolation
		}
	}
}
