package authserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/azerothgo/azerothgo/internal/async"
	"github.com/azerothgo/azerothgo/internal/config"
	"github.com/azerothgo/azerothgo/internal/model"
	"github.com/azerothgo/azerothgo/internal/realmlist"
)

const (
	// maxChallengeBodySize bounds the embedded length field of the logon
	// and reconnect challenge packets. The fixed fields plus the longest
	// account name never exceed this.
	maxChallengeBodySize = 64

	// readTimeout is how long a connection may idle between packets.
	readTimeout = 60 * time.Second

	logonProofFixedSize  = 74
	reconnectProofSize   = 57
	realmListPayloadSize = 4
	challengeHeaderSize  = 3
)

// Server accepts auth connections on the logon port.
type Server struct {
	cfg     config.AuthServer
	handler *Handler
	bans    BanRepository

	listener net.Listener
	mu       sync.Mutex
}

// NewServer wires the auth server from its repositories and config.
func NewServer(
	cfg config.AuthServer,
	accounts AccountRepository,
	bans BanRepository,
	chars CharacterCountRepository,
	realms *realmlist.Store,
) *Server {
	return &Server{
		cfg:     cfg,
		handler: NewHandler(accounts, bans, chars, realms, cfg),
		bans:    bans,
	}
}

// Addr returns the listen address, or nil before Run.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close stops the listener.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// Run listens on cfg.BindAddress:cfg.Port and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.BindAddress, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	return s.Serve(ctx, ln)
}

// Serve runs the accept loop on a ready listener. Split out so tests can
// pass their own listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	wg.Go(func() {
		slog.Info("auth server started", "address", ln.Addr())
		acceptLoop(ctx, &wg, s, ln)
	})

	wg.Wait()

	return nil
}

func acceptLoop(ctx context.Context, wg *sync.WaitGroup, srv *Server, ln net.Listener) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				slog.Error("accepting connection", "err", err)
				continue
			}
			wg.Go(func() {
				handleConnection(ctx, srv, conn)
			})
		}
	}
}

func handleConnection(ctx context.Context, srv *Server, conn net.Conn) {
	done := make(chan struct{})
	defer close(done)
	defer conn.Close()

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	client, err := NewClient(conn)
	if err != nil {
		slog.Error("creating client", "remote", conn.RemoteAddr(), "err", err)
		return
	}

	slog.Info("new auth connection", "remote", client.IP())

	if !srv.checkIPBan(ctx, client) {
		return
	}

	for client.State() != StateClosed {
		select {
		case <-ctx.Done():
			return
		default:
			if err := srv.readAndDispatch(ctx, client, conn); err != nil {
				if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
					slog.Warn("auth connection error", "remote", client.IP(), "err", err)
				}
				return
			}
		}
	}
}

// checkIPBan runs the address ban lookup through the query pipeline before
// the first packet is read. A banned address gets a challenge-shaped
// rejection and the connection closes.
func (srv *Server) checkIPBan(ctx context.Context, client *Client) bool {
	ip := client.IP()
	fut := async.Query(ctx, func(ctx context.Context) (*model.BanStatus, error) {
		return srv.bans.GetIPBan(ctx, ip)
	})
	async.Enqueue(client.Queue(), fut, func(ctx context.Context, ban *model.BanStatus, err error) error {
		if err != nil {
			slog.Error("IP ban lookup failed", "ip", ip, "err", err)
			return nil
		}
		if ban != nil {
			slog.Warn("rejecting banned address", "ip", ip)
			if err := srv.handler.sendChallengeFail(client, ResultFailBanned); err != nil {
				return err
			}
			client.SetState(StateClosed)
		}
		return nil
	})
	if err := client.Queue().Drain(ctx); err != nil {
		slog.Warn("draining IP ban check", "ip", ip, "err", err)
		return false
	}
	return client.State() != StateClosed
}

// readAndDispatch reads one complete packet, hands it to the handler and
// drains the query pipeline so no further client data is consumed while a
// lookup is pending.
func (srv *Server) readAndDispatch(ctx context.Context, client *Client, conn net.Conn) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic handling auth packet", "remote", client.IP(), "panic", r)
			client.SetState(StateClosed)
			err = fmt.Errorf("panic handling packet: %v", r)
		}
	}()

	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return fmt.Errorf("setting read deadline: %w", err)
	}

	var opcodeBuf [1]byte
	if _, err := io.ReadFull(conn, opcodeBuf[:]); err != nil {
		return err
	}
	opcode := opcodeBuf[0]

	body, err := readPacketBody(conn, opcode)
	if err != nil {
		client.SetState(StateClosed)
		return fmt.Errorf("reading packet 0x%02X: %w", opcode, err)
	}

	if err := srv.handler.HandlePacket(ctx, client, opcode, body); err != nil {
		return err
	}
	return client.Queue().Drain(ctx)
}

// readPacketBody consumes the remainder of a packet after its opcode byte.
// The auth protocol is unframed; each opcode has a fixed layout, with the
// challenge packets carrying an embedded body length and the logon proof a
// conditional token block.
func readPacketBody(conn net.Conn, opcode uint8) ([]byte, error) {
	switch opcode {
	case OpcodeLogonChallenge, OpcodeReconnectChallenge:
		var header [challengeHeaderSize]byte // error byte + u16 size
		if _, err := io.ReadFull(conn, header[:]); err != nil {
			return nil, err
		}
		size := int(header[1]) | int(header[2])<<8
		if size == 0 || size > maxChallengeBodySize {
			return nil, fmt.Errorf("challenge body size %d out of range", size)
		}
		body := make([]byte, size)
		if _, err := io.ReadFull(conn, body); err != nil {
			return nil, err
		}
		return body, nil

	case OpcodeLogonProof:
		body := make([]byte, logonProofFixedSize)
		if _, err := io.ReadFull(conn, body); err != nil {
			return nil, err
		}
		// Token block follows when the client echoes the token flag.
		if body[logonProofFixedSize-1]&SecurityFlagToken != 0 {
			var lenBuf [1]byte
			if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
				return nil, err
			}
			token := make([]byte, lenBuf[0])
			if _, err := io.ReadFull(conn, token); err != nil {
				return nil, err
			}
			body = append(body, lenBuf[0])
			body = append(body, token...)
		}
		return body, nil

	case OpcodeReconnectProof:
		body := make([]byte, reconnectProofSize)
		if _, err := io.ReadFull(conn, body); err != nil {
			return nil, err
		}
		return body, nil

	case OpcodeRealmList:
		body := make([]byte, realmListPayloadSize)
		if _, err := io.ReadFull(conn, body); err != nil {
			return nil, err
		}
		return body, nil

	default:
		return nil, fmt.Errorf("unsupported opcode")
	}
}
