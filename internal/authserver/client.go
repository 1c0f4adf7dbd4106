package authserver

import (
	"fmt"
	"net"

	"github.com/azerothgo/azerothgo/internal/async"
	"github.com/azerothgo/azerothgo/internal/crypto"
	"github.com/azerothgo/azerothgo/internal/model"
	"github.com/azerothgo/azerothgo/internal/realmlist"
)

// Client represents a single client connection to the auth server.
//
// All fields are owned by the connection's goroutine: handlers and drained
// query callbacks run there and nowhere else, so no locking is needed.
type Client struct {
	conn net.Conn
	ip   string

	state ConnectionState
	queue async.Queue

	// Populated by the logon/reconnect challenge.
	srp            *crypto.SRP6
	account        *model.Account
	build          uint32
	tier           realmlist.Tier // shapes later payloads per client generation
	os             string
	locale         string
	localeIndex    uint8
	reconnectProof [16]byte
}

// NewClient creates auth connection state for conn.
func NewClient(conn net.Conn) (*Client, error) {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return nil, fmt.Errorf("splitting host port: %w", err)
	}
	return &Client{
		conn:  conn,
		ip:    host,
		state: StateChallenge,
	}, nil
}

// IP returns the client's remote IP address.
func (c *Client) IP() string {
	return c.ip
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	return c.state
}

// SetState sets the connection state. A closed connection never reopens.
func (c *Client) SetState(s ConnectionState) {
	if c.state == StateClosed {
		return
	}
	c.state = s
}

// Send writes a raw response to the peer. The auth protocol has no framing
// layer; responses are written as-is.
func (c *Client) Send(payload []byte) error {
	if _, err := c.conn.Write(payload); err != nil {
		return fmt.Errorf("writing auth response: %w", err)
	}
	return nil
}

// Queue returns the connection's FIFO query-callback queue.
func (c *Client) Queue() *async.Queue {
	return &c.queue
}
