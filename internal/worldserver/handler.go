package worldserver

import (
	"context"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/azerothgo/azerothgo/internal/async"
	"github.com/azerothgo/azerothgo/internal/config"
	"github.com/azerothgo/azerothgo/internal/crypto"
	"github.com/azerothgo/azerothgo/internal/model"
	"github.com/azerothgo/azerothgo/internal/realmlist"
	"github.com/azerothgo/azerothgo/internal/wire"
)

// minPingInterval is the shortest accepted gap between CMSG_PING packets.
// The client pings every 30 seconds; anything quicker counts as overspeed.
const minPingInterval = 27 * time.Second

// Handler processes world packets during session setup. One instance
// serves every connection.
type Handler struct {
	accounts AccountRepository
	bans     BanRepository
	cfg      config.WorldServer
}

// NewHandler creates a world packet handler.
func NewHandler(accounts AccountRepository, bans BanRepository, cfg config.WorldServer) *Handler {
	return &Handler{accounts: accounts, bans: bans, cfg: cfg}
}

type packetHandler struct {
	status SessionStatus
	fn     func(h *Handler, ctx context.Context, c *WorldConnection, payload []byte) error
}

// handlers maps opcodes to their required session status and handler.
// CMSG_PING and CMSG_AUTH_SESSION are special-cased in HandlePacket.
var handlers = map[uint32]packetHandler{
	OpcodeCMsgKeepAlive:    {StatusAuthenticated, (*Handler).handleKeepAlive},
	OpcodeCMsgTimeSyncResp: {StatusAuthenticated, (*Handler).handleTimeSyncResp},
}

// HandlePacket dispatches one complete client packet. Delivering a packet
// whose required status is not met is a protocol violation and closes the
// connection.
func (h *Handler) HandlePacket(ctx context.Context, c *WorldConnection, opcode uint32, payload []byte) error {
	c.ResetTimeOutTime()

	switch opcode {
	case OpcodeCMsgPing:
		return h.handlePing(c, payload)
	case OpcodeCMsgAuthSession:
		if c.Status() != StatusUnauthenticated || c.authSessionReceived {
			c.SetStatus(StatusClosed)
			return fmt.Errorf("duplicate CMSG_AUTH_SESSION")
		}
		return h.handleAuthSession(ctx, c, payload)
	}

	entry, ok := handlers[opcode]
	if !ok {
		// Authenticated sessions may send gameplay opcodes the session
		// core does not implement; before authentication anything outside
		// the setup set is a protocol violation.
		if c.Status() != StatusAuthenticated {
			c.SetStatus(StatusClosed)
			return fmt.Errorf("opcode 0x%X before authentication", opcode)
		}
		slog.Debug("dropping unhandled opcode", "opcode", fmt.Sprintf("0x%X", opcode), "client", c.IP())
		return nil
	}
	if c.Status() != entry.status {
		c.SetStatus(StatusClosed)
		return fmt.Errorf("opcode 0x%X delivered in status %v", opcode, c.Status())
	}
	return entry.fn(h, ctx, c, payload)
}

func (h *Handler) handlePing(c *WorldConnection, payload []byte) error {
	r := wire.NewReader(payload)
	ping, err := r.ReadUint32()
	if err != nil {
		c.SetStatus(StatusClosed)
		return fmt.Errorf("reading ping sequence: %w", err)
	}
	latency, err := r.ReadUint32()
	if err != nil {
		c.SetStatus(StatusClosed)
		return fmt.Errorf("reading ping latency: %w", err)
	}

	now := time.Now()
	if !c.lastPingTime.IsZero() && now.Sub(c.lastPingTime) < minPingInterval {
		c.overspeedPings++
		gm := c.account != nil && c.account.SecurityLevel > 0
		if h.cfg.MaxOverspeedPings > 0 && c.overspeedPings > h.cfg.MaxOverspeedPings && !gm {
			slog.Warn("kicking overspeed pinger", "client", c.IP(), "latency", latency)
			c.SetStatus(StatusClosed)
			return nil
		}
	} else {
		c.overspeedPings = 0
	}
	c.lastPingTime = now

	var pong [4]byte
	binary.LittleEndian.PutUint32(pong[:], ping)
	return c.SendPacket(OpcodeSMsgPong, pong[:])
}

func (h *Handler) handleKeepAlive(_ context.Context, _ *WorldConnection, _ []byte) error {
	// Nothing beyond the timeout reset dispatch already did.
	return nil
}

func (h *Handler) handleTimeSyncResp(_ context.Context, c *WorldConnection, payload []byte) error {
	r := wire.NewReader(payload)
	counter, err := r.ReadUint32()
	if err != nil {
		c.SetStatus(StatusClosed)
		return fmt.Errorf("reading time sync counter: %w", err)
	}
	clientTicks, err := r.ReadUint32()
	if err != nil {
		c.SetStatus(StatusClosed)
		return fmt.Errorf("reading time sync ticks: %w", err)
	}
	slog.Debug("time sync response", "client", c.IP(), "counter", counter, "ticks", clientTicks)
	return nil
}

// authSessionInfo carries the parsed CMSG_AUTH_SESSION fields.
type authSessionInfo struct {
	build      uint32
	account    string
	realmID    uint32
	clientSeed [4]byte
	digest     [20]byte
	addonInfo  []byte
}

func parseAuthSession(payload []byte) (authSessionInfo, error) {
	var info authSessionInfo
	r := wire.NewReader(payload)

	build, err := r.ReadUint32()
	if err != nil {
		return info, fmt.Errorf("reading build: %w", err)
	}
	info.build = build
	if _, err := r.ReadUint32(); err != nil { // login server id
		return info, fmt.Errorf("reading login server id: %w", err)
	}
	account, err := r.ReadCString()
	if err != nil {
		return info, fmt.Errorf("reading account: %w", err)
	}
	info.account = strings.ToUpper(account)
	if _, err := r.ReadUint32(); err != nil { // login server type
		return info, fmt.Errorf("reading login server type: %w", err)
	}
	seed, err := r.ReadBytes(4)
	if err != nil {
		return info, fmt.Errorf("reading client seed: %w", err)
	}
	copy(info.clientSeed[:], seed)
	if _, err := r.ReadUint32(); err != nil { // region id
		return info, fmt.Errorf("reading region id: %w", err)
	}
	if _, err := r.ReadUint32(); err != nil { // battlegroup id
		return info, fmt.Errorf("reading battlegroup id: %w", err)
	}
	if info.realmID, err = r.ReadUint32(); err != nil {
		return info, fmt.Errorf("reading realm id: %w", err)
	}
	if _, err := r.ReadUint64(); err != nil { // DoS response
		return info, fmt.Errorf("reading DoS response: %w", err)
	}
	digest, err := r.ReadBytes(20)
	if err != nil {
		return info, fmt.Errorf("reading digest: %w", err)
	}
	copy(info.digest[:], digest)
	info.addonInfo = r.Rest()
	return info, nil
}

func (h *Handler) handleAuthSession(ctx context.Context, c *WorldConnection, payload []byte) error {
	info, err := parseAuthSession(payload)
	if err != nil {
		c.SetStatus(StatusClosed)
		return fmt.Errorf("parsing CMSG_AUTH_SESSION: %w", err)
	}
	c.authSessionReceived = true

	slog.Info("auth session", "account", info.account, "build", info.build, "client", c.IP())

	if realmlist.GetBuildInfo(info.build) == nil {
		return h.rejectSession(c, AuthVersionMismatch)
	}

	fut := async.Query(ctx, func(ctx context.Context) (*model.Account, error) {
		return h.accounts.GetByUsername(ctx, info.account)
	})
	async.Enqueue(c.Queue(), fut, func(ctx context.Context, acc *model.Account, err error) error {
		return h.authSessionCallback(ctx, c, info, acc, err)
	})
	return nil
}

func (h *Handler) authSessionCallback(ctx context.Context, c *WorldConnection, info authSessionInfo, acc *model.Account, err error) error {
	if err != nil {
		slog.Error("account lookup failed", "account", info.account, "err", err)
		return h.rejectSession(c, AuthUnknownAccount)
	}
	if acc == nil {
		return h.rejectSession(c, AuthUnknownAccount)
	}
	if len(acc.SessionKey) != crypto.SessionKeySize {
		slog.Warn("no session key on record", "account", acc.Username, "client", c.IP())
		return h.rejectSession(c, AuthFailed)
	}

	// The header cipher keys off the session key regardless of how the
	// digest check goes; the client encrypts its next header either way.
	if err := c.crypt.Init(acc.SessionKey); err != nil {
		c.SetStatus(StatusClosed)
		return fmt.Errorf("initializing session cipher: %w", err)
	}

	if !sessionDigestValid(info, c.serverSeed, acc) {
		slog.Warn("session digest mismatch", "account", acc.Username, "client", c.IP())
		return h.rejectSession(c, AuthFailed)
	}

	if info.realmID != h.cfg.RealmID {
		slog.Warn("wrong realm in auth session", "account", acc.Username,
			"got", info.realmID, "want", h.cfg.RealmID)
		return h.rejectSession(c, AuthFailed)
	}

	if h.cfg.WardenEnabled && acc.OS != "Win" && acc.OS != "OSX" {
		slog.Warn("unsupported client OS", "account", acc.Username, "os", acc.OS)
		return h.rejectSession(c, AuthReject)
	}

	if acc.Locked && acc.LastIP != c.IP() {
		slog.Warn("session IP lock mismatch", "account", acc.Username,
			"locked_to", acc.LastIP, "client", c.IP())
		return h.rejectSession(c, AuthLockedEnforced)
	}

	if acc.SecurityLevel < h.cfg.MinSecurityLevel {
		return h.rejectSession(c, AuthReject)
	}

	banFut := async.Query(ctx, func(ctx context.Context) (*model.BanStatus, error) {
		return h.bans.GetAccountBan(ctx, acc.ID)
	})
	async.Enqueue(c.Queue(), banFut, func(ctx context.Context, ban *model.BanStatus, err error) error {
		if err != nil {
			slog.Error("ban lookup failed", "account", acc.Username, "err", err)
			ban = nil
		}
		if ban != nil {
			if ban.Permanent() {
				return h.rejectSession(c, AuthBanned)
			}
			return h.rejectSession(c, AuthSuspended)
		}
		return h.acceptSession(ctx, c, info, acc)
	})
	return nil
}

func (h *Handler) acceptSession(ctx context.Context, c *WorldConnection, info authSessionInfo, acc *model.Account) error {
	c.account = acc

	// A negative mute time is a remaining duration; pin it to a concrete
	// expiry now that the session is live.
	if acc.MuteTime < 0 {
		muteUntil := time.Now().Unix() - acc.MuteTime
		acc.MuteTime = muteUntil
		async.Query(ctx, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, h.accounts.UpdateMuteTime(ctx, acc.ID, muteUntil)
		})
	}

	ip := c.IP()
	async.Query(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, h.accounts.UpdateLastIP(ctx, acc.ID, ip)
	})
	async.Query(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, h.accounts.SetOnline(ctx, acc.ID, true)
	})

	if addons, err := ParseAddonInfo(info.addonInfo); err != nil {
		slog.Warn("unreadable addon info", "account", acc.Username, "err", err)
	} else {
		logAddons(acc.Username, addons)
	}

	expansion := acc.Expansion
	if expansion > h.cfg.Expansion {
		expansion = h.cfg.Expansion
	}

	resp := make([]byte, 0, 11)
	resp = append(resp, AuthOK)
	resp = binary.LittleEndian.AppendUint32(resp, 0) // billing time remaining
	resp = append(resp, 0)                           // billing flags
	resp = binary.LittleEndian.AppendUint32(resp, 0) // billing time rested
	resp = append(resp, expansion)
	if err := c.SendPacket(OpcodeSMsgAuthResponse, resp); err != nil {
		return err
	}

	c.SetStatus(StatusAuthenticated)
	slog.Info("session authenticated", "account", acc.Username, "client", c.IP())
	return nil
}

// rejectSession answers with a failure code and closes the connection.
func (h *Handler) rejectSession(c *WorldConnection, code uint8) error {
	if err := c.SendPacket(OpcodeSMsgAuthResponse, []byte{code}); err != nil {
		return err
	}
	c.SetStatus(StatusClosed)
	return nil
}

// sessionDigestValid recomputes SHA1(account || zeros || clientSeed ||
// serverSeed || sessionKey) and compares it to the digest the client sent.
func sessionDigestValid(info authSessionInfo, serverSeed uint32, acc *model.Account) bool {
	var zeros [4]byte
	var seed [4]byte
	binary.LittleEndian.PutUint32(seed[:], serverSeed)

	hash := sha1.New()
	hash.Write([]byte(acc.Username))
	hash.Write(zeros[:])
	hash.Write(info.clientSeed[:])
	hash.Write(seed[:])
	hash.Write(acc.SessionKey)
	return subtle.ConstantTimeCompare(info.digest[:], hash.Sum(nil)) == 1
}
