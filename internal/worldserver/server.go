package worldserver

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/azerothgo/azerothgo/internal/async"
	"github.com/azerothgo/azerothgo/internal/config"
	"github.com/azerothgo/azerothgo/internal/model"
)

// Server accepts world connections on the realm port.
type Server struct {
	cfg     config.WorldServer
	handler *Handler
	bans    BanRepository

	listener net.Listener
	mu       sync.Mutex
}

// NewServer wires the world server from its repositories and config.
func NewServer(cfg config.WorldServer, accounts AccountRepository, bans BanRepository) *Server {
	return &Server{
		cfg:     cfg,
		handler: NewHandler(accounts, bans, cfg),
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

// Serve runs the accept loop on a ready listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	wg.Go(func() {
		slog.Info("world server started", "address", ln.Addr(), "realm", s.cfg.RealmID)
		acceptWorldLoop(ctx, &wg, s, ln)
	})

	wg.Wait()

	return nil
}

func acceptWorldLoop(ctx context.Context, wg *sync.WaitGroup, srv *Server, ln net.Listener) {
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
				handleWorldConnection(ctx, srv, conn)
			})
		}
	}
}

func handleWorldConnection(ctx context.Context, srv *Server, conn net.Conn) {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	seed, err := randomSeed()
	if err != nil {
		slog.Error("generating session seed", "err", err)
		conn.Close()
		return
	}

	client := NewWorldConnection(conn, seed, srv.cfg.ReadTimeout)
	defer srv.teardown(ctx, client)

	slog.Info("new world connection", "remote", client.IP())

	if !srv.checkIPBan(ctx, client) {
		return
	}

	if err := sendAuthChallenge(client); err != nil {
		slog.Error("sending auth challenge", "remote", client.IP(), "err", err)
		return
	}

	client.ResetTimeOutTime()
	for client.Status() != StatusClosed {
		select {
		case <-ctx.Done():
			return
		default:
			if err := srv.readAndDispatch(ctx, client, conn); err != nil {
				if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
					slog.Warn("world connection error", "remote", client.IP(), "err", err)
				}
				return
			}
		}
	}
}

// teardown flushes whatever response accompanied the close, wipes the
// cipher and marks the account offline.
func (srv *Server) teardown(ctx context.Context, client *WorldConnection) {
	client.Flush()
	acc := client.account
	client.Close()
	if acc != nil {
		async.Query(ctx, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, srv.handler.accounts.SetOnline(ctx, acc.ID, false)
		})
	}
}

// checkIPBan rejects banned addresses before the challenge goes out.
func (srv *Server) checkIPBan(ctx context.Context, client *WorldConnection) bool {
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
			client.SetStatus(StatusClosed)
		}
		return nil
	})
	if err := client.Queue().Drain(ctx); err != nil {
		slog.Warn("draining IP ban check", "ip", ip, "err", err)
		return false
	}
	return client.Status() != StatusClosed
}

func (srv *Server) readAndDispatch(ctx context.Context, client *WorldConnection, conn net.Conn) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic handling world packet", "remote", client.IP(), "panic", r)
			client.SetStatus(StatusClosed)
			err = fmt.Errorf("panic handling packet: %v", r)
		}
	}()

	opcode, payload, err := ReadClientPacket(conn, &client.crypt)
	if err != nil {
		client.SetStatus(StatusClosed)
		return err
	}

	if err := srv.handler.HandlePacket(ctx, client, opcode, payload); err != nil {
		client.Flush()
		return err
	}
	if err := client.Queue().Drain(ctx); err != nil {
		return err
	}
	return client.Flush()
}

// sendAuthChallenge emits SMSG_AUTH_CHALLENGE: a u32 one, the server seed
// and 32 bytes of random state. It is the only packet sent before the
// header cipher comes up, so it goes out with the cipher still a no-op.
func sendAuthChallenge(client *WorldConnection) error {
	payload := make([]byte, 0, 40)
	payload = binary.LittleEndian.AppendUint32(payload, 1)
	payload = binary.LittleEndian.AppendUint32(payload, client.serverSeed)

	var entropy [32]byte
	if _, err := rand.Read(entropy[:]); err != nil {
		return fmt.Errorf("generating challenge entropy: %w", err)
	}
	payload = append(payload, entropy[:]...)

	if err := client.SendPacket(OpcodeSMsgAuthChallenge, payload); err != nil {
		return err
	}
	return client.Flush()
}

func randomSeed() (uint32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}
