// Package registry tracks registered player records and the subset
// currently online, and persists them to players.json.
package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/blocklayer/voxelkeep/pkg/netio"
)

// NoUser is the sentinel uid used for admin/server-originated commands that
// have no associated player.
const NoUser uint64 = ^uint64(0)

// Record is one player's persisted state.
type Record struct {
	Name  string     `json:"name"`
	Pos   [3]float64 `json:"pos"`
	Pitch float32    `json:"pitch"`
	Yaw   float32    `json:"yaw"`
}

// Online is the live state of a connected player.
type Online struct {
	UID      uint64
	Name     string
	Pos      [3]float64
	Pitch    float32
	Yaw      float32
	Outbound *netio.Outbound
}

// Registry is the player registry: a stable, append-only vector of
// registered players indexed by uid, plus the subset currently online. It is
// intended to be owned and mutated by exactly one goroutine.
type Registry struct {
	registered []Record
	byName     map[string]uint64
	online     map[uint64]*Online
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{byName: make(map[string]uint64), online: make(map[uint64]*Online)}
}

// Load builds a registry from players.json. A missing file yields an empty
// registry.
func Load(path string) (*Registry, error) {
	r := New()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("registry: reading players file: %w", err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("registry: parsing players file: %w", err)
	}
	r.registered = records
	for i, rec := range records {
		r.byName[rec.Name] = uint64(i)
	}
	return r, nil
}

func validName(name string) bool {
	if len(name) == 0 {
		return false
	}
	for _, c := range name {
		alnum := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		if !alnum {
			return false
		}
	}
	return true
}

// Login validates the name and, if accepted, returns the player's uid: the
// existing uid on re-login, or a newly-allocated one for a never-before-seen
// name. uid is a stable index into the registered vector and is never
// reused. It reports ok=false for a non-alphanumeric name or one already
// online.
func (r *Registry) Login(name string, out *netio.Outbound) (uid uint64, ok bool) {
	if !validName(name) {
		return 0, false
	}
	if existingUID, known := r.byName[name]; known {
		if _, isOnline := r.online[existingUID]; isOnline {
			return 0, false
		}
		rec := r.registered[existingUID]
		r.online[existingUID] = &Online{
			UID: existingUID, Name: name, Pos: rec.Pos, Pitch: rec.Pitch, Yaw: rec.Yaw, Outbound: out,
		}
		return existingUID, true
	}

	newUID := uint64(len(r.registered))
	r.registered = append(r.registered, Record{Name: name})
	r.byName[name] = newUID
	r.online[newUID] = &Online{UID: newUID, Name: name, Outbound: out}
	return newUID, true
}

// Logout removes a player from the online set, snapshotting its last known
// pose back into the registered record.
func (r *Registry) Logout(uid uint64) {
	player, ok := r.online[uid]
	if !ok {
		return
	}
	r.registered[uid] = Record{Name: player.Name, Pos: player.Pos, Pitch: player.Pitch, Yaw: player.Yaw}
	delete(r.online, uid)
}

// Get returns the online player for uid, if any.
func (r *Registry) Get(uid uint64) (*Online, bool) {
	p, ok := r.online[uid]
	return p, ok
}

// UpdatePosition records a player's latest reported pose.
func (r *Registry) UpdatePosition(uid uint64, pos [3]float64, pitch, yaw float32) {
	p, ok := r.online[uid]
	if !ok {
		return
	}
	p.Pos, p.Pitch, p.Yaw = pos, pitch, yaw
}

// Online returns a snapshot of the currently online players.
func (r *Registry) Online() []*Online {
	out := make([]*Online, 0, len(r.online))
	for _, p := range r.online {
		out = append(out, p)
	}
	return out
}

// Flush writes players.json, folding any still-online players' live pose
// into the registered records first.
func (r *Registry) Flush(path string) error {
	for uid, p := range r.online {
		r.registered[uid] = Record{Name: p.Name, Pos: p.Pos, Pitch: p.Pitch, Yaw: p.Yaw}
	}
	data, err := json.MarshalIndent(r.registered, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
