package protocol

import (
	"bytes"
	"fmt"
	"io"

	"github.com/blocklayer/voxelkeep/pkg/voxel"
)

// Message ids. Several ids are overloaded: the struct a given id decodes to
// depends on which side is doing the decoding (see Perspective).
const (
	IDLogin             uint16 = 0x0001 // C->S Login, S->C LoginFailed
	IDLoginSuccess      uint16 = 0x0002
	IDPlayerLogin       uint16 = 0x0003
	IDLogout            uint16 = 0x0004
	IDChunk             uint16 = 0x000A // C->S RequestChunk, S->C ChunkData
	IDBlockUpdate       uint16 = 0x000B // bidirectional, same layout
	IDPlayerPosition    uint16 = 0x000C // C->S ClientPlayerPosition, S->C ServerPlayerPosition
)

// Perspective disambiguates message ids whose payload shape differs by
// direction: a server decodes frames a client sent it, a client decodes
// frames a server sent it.
type Perspective int

const (
	ServerPerspective Perspective = iota
	ClientPerspective
)

// Message is implemented by every decoded frame payload.
type Message interface {
	Encode() []byte
}

func marshal(id uint16, build func(w *bytes.Buffer)) []byte {
	var buf bytes.Buffer
	writeUint16(&buf, id)
	build(&buf)
	return buf.Bytes()
}

// Login is sent by a client to request a session under the given name.
type Login struct {
	Name string
}

func (m Login) Encode() []byte {
	return marshal(IDLogin, func(w *bytes.Buffer) { writeString16(w, m.Name) })
}

// LoginFailed is sent by the server in place of LoginSuccess when a login is
// rejected. Reason is empty in the current protocol revision.
type LoginFailed struct {
	Reason string
}

func (m LoginFailed) Encode() []byte {
	return marshal(IDLogin, func(w *bytes.Buffer) { writeString16(w, m.Reason) })
}

// LoginSuccess tells the new player its allocated uid.
type LoginSuccess struct {
	UID uint64
}

func (m LoginSuccess) Encode() []byte {
	return marshal(IDLoginSuccess, func(w *bytes.Buffer) { writeUint64(w, m.UID) })
}

// PlayerLogin announces that a player joined, to everyone already online,
// and once per already-online player to the new arrival.
type PlayerLogin struct {
	Name string
	UID  uint64
}

func (m PlayerLogin) Encode() []byte {
	return marshal(IDPlayerLogin, func(w *bytes.Buffer) {
		writeString16(w, m.Name)
		writeUint64(w, m.UID)
	})
}

// Logout announces that a player's connection has ended.
type Logout struct {
	UID uint64
}

func (m Logout) Encode() []byte {
	return marshal(IDLogout, func(w *bytes.Buffer) { writeUint64(w, m.UID) })
}

// RequestChunk asks the server to send the current contents of one chunk.
type RequestChunk struct {
	Pos voxel.ChunkPos
}

func (m RequestChunk) Encode() []byte {
	return marshal(IDChunk, func(w *bytes.Buffer) {
		writeInt32(w, m.Pos.X)
		writeInt32(w, m.Pos.Y)
		writeInt32(w, m.Pos.Z)
	})
}

// ChunkData carries the full contents of one chunk.
type ChunkData struct {
	Pos    voxel.ChunkPos
	Blocks [voxel.ChunkVolume]byte
}

func (m ChunkData) Encode() []byte {
	return marshal(IDChunk, func(w *bytes.Buffer) {
		writeInt32(w, m.Pos.X)
		writeInt32(w, m.Pos.Y)
		writeInt32(w, m.Pos.Z)
		w.Write(m.Blocks[:])
	})
}

// BlockUpdate sets a single block. Sent by a client to request a change and
// echoed by the server (to everyone, including the requester) carrying the
// value that actually took effect.
type BlockUpdate struct {
	Pos   voxel.BlockPos
	Block byte
}

func (m BlockUpdate) Encode() []byte {
	return marshal(IDBlockUpdate, func(w *bytes.Buffer) {
		writeInt32(w, m.Pos.X)
		writeInt32(w, m.Pos.Y)
		writeInt32(w, m.Pos.Z)
		writeByte(w, m.Block)
		writeReserved(w, 3)
	})
}

// ClientPlayerPosition reports the sender's own pose.
type ClientPlayerPosition struct {
	Pos          [3]float64
	Pitch, Yaw   float32
}

func (m ClientPlayerPosition) Encode() []byte {
	return marshal(IDPlayerPosition, func(w *bytes.Buffer) {
		writeFloat64(w, m.Pos[0])
		writeFloat64(w, m.Pos[1])
		writeFloat64(w, m.Pos[2])
		writeFloat32(w, m.Pitch)
		writeFloat32(w, m.Yaw)
	})
}

// ServerPlayerPosition reports another player's (or, on initial login, the
// receiver's own) pose.
type ServerPlayerPosition struct {
	UID        uint64
	Pos        [3]float64
	Pitch, Yaw float32
}

func (m ServerPlayerPosition) Encode() []byte {
	return marshal(IDPlayerPosition, func(w *bytes.Buffer) {
		writeUint64(w, m.UID)
		writeFloat64(w, m.Pos[0])
		writeFloat64(w, m.Pos[1])
		writeFloat64(w, m.Pos[2])
		writeFloat32(w, m.Pitch)
		writeFloat32(w, m.Yaw)
	})
}

// Decode reads the payload following an already-consumed id and returns the
// concrete Message it represents. The caller reads the id with ReadID first,
// since the state machine driving the read loop needs it to validate
// messages are legal in the current session state before decoding further.
func Decode(persp Perspective, id uint16, r io.Reader) (Message, error) {
	switch id {
	case IDLogin:
		if persp == ServerPerspective {
			name, err := readString16(r)
			if err != nil {
				return nil, err
			}
			return Login{Name: name}, nil
		}
		reason, err := readString16(r)
		if err != nil {
			return nil, err
		}
		return LoginFailed{Reason: reason}, nil

	case IDLoginSuccess:
		uid, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		return LoginSuccess{UID: uid}, nil

	case IDPlayerLogin:
		name, err := readString16(r)
		if err != nil {
			return nil, err
		}
		uid, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		return PlayerLogin{Name: name, UID: uid}, nil

	case IDLogout:
		uid, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		return Logout{UID: uid}, nil

	case IDChunk:
		x, err := readInt32(r)
		if err != nil {
			return nil, err
		}
		y, err := readInt32(r)
		if err != nil {
			return nil, err
		}
		z, err := readInt32(r)
		if err != nil {
			return nil, err
		}
		pos := voxel.ChunkPos{X: x, Y: y, Z: z}
		if persp == ServerPerspective {
			return RequestChunk{Pos: pos}, nil
		}
		var blocks [voxel.ChunkVolume]byte
		if _, err := io.ReadFull(r, blocks[:]); err != nil {
			return nil, err
		}
		return ChunkData{Pos: pos, Blocks: blocks}, nil

	case IDBlockUpdate:
		x, err := readInt32(r)
		if err != nil {
			return nil, err
		}
		y, err := readInt32(r)
		if err != nil {
			return nil, err
		}
		z, err := readInt32(r)
		if err != nil {
			return nil, err
		}
		block, err := readByte(r)
		if err != nil {
			return nil, err
		}
		if err := readReserved(r, 3); err != nil {
			return nil, err
		}
		return BlockUpdate{Pos: voxel.BlockPos{X: x, Y: y, Z: z}, Block: block}, nil

	case IDPlayerPosition:
		if persp == ServerPerspective {
			var pos [3]float64
			for i := range pos {
				v, err := readFloat64(r)
				if err != nil {
					return nil, err
				}
				pos[i] = v
			}
			pitch, err := readFloat32(r)
			if err != nil {
				return nil, err
			}
			yaw, err := readFloat32(r)
			if err != nil {
				return nil, err
			}
			return ClientPlayerPosition{Pos: pos, Pitch: pitch, Yaw: yaw}, nil
		}
		uid, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		var pos [3]float64
		for i := range pos {
			v, err := readFloat64(r)
			if err != nil {
				return nil, err
			}
			pos[i] = v
		}
		pitch, err := readFloat32(r)
		if err != nil {
			return nil, err
		}
		yaw, err := readFloat32(r)
		if err != nil {
			return nil, err
		}
		return ServerPlayerPosition{UID: uid, Pos: pos, Pitch: pitch, Yaw: yaw}, nil

	default:
		return nil, fmt.Errorf("protocol: unknown message id 0x%04x", id)
	}
}
