package worldserver

import (
	"net"
	"time"

	"github.com/azerothgo/azerothgo/internal/async"
	"github.com/azerothgo/azerothgo/internal/crypto"
	"github.com/azerothgo/azerothgo/internal/model"
)

// SessionStatus is the authentication status of a world connection. It
// gates which opcodes dispatch may deliver.
type SessionStatus uint8

const (
	StatusUnauthenticated SessionStatus = iota
	StatusAuthenticated
	StatusClosed
)

func (s SessionStatus) String() string {
	switch s {
	case StatusUnauthenticated:
		return "Unauthenticated"
	case StatusAuthenticated:
		return "Authenticated"
	case StatusClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

const sendBufSize = 16384

// WorldConnection is one client connection to the world server. A single
// goroutine owns the state; no locking.
type WorldConnection struct {
	conn   net.Conn
	ip     string
	status SessionStatus
	crypt  crypto.SessionCrypt
	writer *PacketWriter
	queue  async.Queue

	account *model.Account

	// serverSeed is sent in SMSG_AUTH_CHALLENGE and bound into the
	// client's session digest.
	serverSeed uint32

	// authSessionReceived rejects a duplicate CMSG_AUTH_SESSION before
	// the first one finishes its asynchronous checks.
	authSessionReceived bool

	lastPingTime   time.Time
	overspeedPings int

	readTimeout time.Duration
}

// NewWorldConnection wraps an accepted socket.
func NewWorldConnection(conn net.Conn, serverSeed uint32, readTimeout time.Duration) *WorldConnection {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		host = conn.RemoteAddr().String()
	}
	c := &WorldConnection{
		conn:        conn,
		ip:          host,
		status:      StatusUnauthenticated,
		serverSeed:  serverSeed,
		readTimeout: readTimeout,
	}
	c.writer = NewPacketWriter(conn, &c.crypt, sendBufSize)
	return c
}

// IP returns the remote address without the port.
func (c *WorldConnection) IP() string {
	return c.ip
}

// Status returns the session status.
func (c *WorldConnection) Status() SessionStatus {
	return c.status
}

// SetStatus transitions the session status. Closed is terminal.
func (c *WorldConnection) SetStatus(s SessionStatus) {
	if c.status == StatusClosed {
		return
	}
	c.status = s
}

// Queue returns the connection's query pipeline.
func (c *WorldConnection) Queue() *async.Queue {
	return &c.queue
}

// SendPacket frames and queues one server packet. Callers flush explicitly
// once a dispatch round completes.
func (c *WorldConnection) SendPacket(opcode uint32, payload []byte) error {
	return c.writer.QueuePacket(opcode, payload)
}

// Flush writes out queued packets.
func (c *WorldConnection) Flush() error {
	return c.writer.Flush()
}

// ResetTimeOutTime pushes the idle deadline forward. Dispatch calls it on
// every delivered packet.
func (c *WorldConnection) ResetTimeOutTime() {
	if c.readTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
}

// Close shuts the socket and wipes the session cipher state.
func (c *WorldConnection) Close() {
	c.status = StatusClosed
	c.crypt.Wipe()
	c.conn.Close()
}
