package server

import (
	"errors"
	"net"
	"sort"
	"time"
)

// DefaultMaxConnections is the admission ceiling.
const DefaultMaxConnections = 1000

// CapacityMessage is written to a connection refused at the ceiling.
const CapacityMessage = "Server at capacity. Please try again later."

// ErrAtCapacity is returned when the admission ceiling is reached.
var ErrAtCapacity = errors.New("server at capacity")

// ConnectionRecord is the metadata kept for one registered connection.
type ConnectionRecord struct {
	ID           uint64    `json:"id"`
	RemoteAddr   string    `json:"remoteAddr"`
	ConnectedAt  time.Time `json:"connectedAt"`
	LastActivity time.Time `json:"lastActivity"`
	DataReceived int       `json:"dataReceived"`
}

type connEntry struct {
	record ConnectionRecord
	conn   net.Conn
}

// registry tracks active connections. Guarded by the server's state lock.
type registry struct {
	ceiling int
	nextID  uint64
	conns   map[uint64]*connEntry
}

func newRegistry(ceiling int) *registry {
	if ceiling <= 0 {
		ceiling = DefaultMaxConnections
	}
	return &registry{
		ceiling: ceiling,
		conns:   make(map[uint64]*connEntry),
	}
}

// admit registers conn unless the ceiling is reached. Ids increase
// monotonically and are only consumed by admitted connections.
func (r *registry) admit(conn net.Conn, now time.Time) (ConnectionRecord, error) {
	if len(r.conns) >= r.ceiling {
		return ConnectionRecord{}, ErrAtCapacity
	}

	r.nextID++
	rec := ConnectionRecord{
		ID:           r.nextID,
		ConnectedAt:  now,
		LastActivity: now,
	}
	if conn != nil && conn.RemoteAddr() != nil {
		rec.RemoteAddr = conn.RemoteAddr().String()
	}
	r.conns[rec.ID] = &connEntry{record: rec, conn: conn}
	return rec, nil
}

// touch records one inbound message.
func (r *registry) touch(id uint64, now time.Time) {
	if e, ok := r.conns[id]; ok {
		e.record.LastActivity = now
		e.record.DataReceived++
	}
}

// remove deregisters id and reports whether it was present.
func (r *registry) remove(id uint64) bool {
	if _, ok := r.conns[id]; !ok {
		return false
	}
	delete(r.conns, id)
	return true
}

func (r *registry) count() int {
	return len(r.conns)
}

// records returns a copy of every record ordered by id.
func (r *registry) records() []ConnectionRecord {
	out := make([]ConnectionRecord, 0, len(r.conns))
	for _, e := range r.conns {
		out = append(out, e.record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// netConns returns the live connections, for shutdown.
func (r *registry) netConns() []net.Conn {
	out := make([]net.Conn, 0, len(r.conns))
	for _, e := range r.conns {
		if e.conn != nil {
			out = append(out, e.conn)
		}
	}
	return out
}
