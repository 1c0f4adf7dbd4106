package authserver

import (
	"context"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/azerothgo/azerothgo/internal/async"
	"github.com/azerothgo/azerothgo/internal/authserver/serverpackets"
	"github.com/azerothgo/azerothgo/internal/config"
	"github.com/azerothgo/azerothgo/internal/crypto"
	"github.com/azerothgo/azerothgo/internal/model"
	"github.com/azerothgo/azerothgo/internal/realmlist"
	"github.com/azerothgo/azerothgo/internal/wire"
)

const maxUsernameLen = 16

// Handler processes auth packets. One instance serves every connection.
type Handler struct {
	accounts AccountRepository
	bans     BanRepository
	chars    CharacterCountRepository
	realms   *realmlist.Store
	cfg      config.AuthServer
	sendPool *BytePool
}

// NewHandler creates a packet handler.
func NewHandler(
	accounts AccountRepository,
	bans BanRepository,
	chars CharacterCountRepository,
	realms *realmlist.Store,
	cfg config.AuthServer,
) *Handler {
	return &Handler{
		accounts: accounts,
		bans:     bans,
		chars:    chars,
		realms:   realms,
		cfg:      cfg,
		sendPool: NewBytePool(defaultSendBufSize),
	}
}

// HandlePacket dispatches one complete client packet. Responses are written
// by the handler (directly or from a drained query callback); the caller
// drains the client's queue afterwards and closes the connection once the
// state is StateClosed.
func (h *Handler) HandlePacket(ctx context.Context, client *Client, opcode uint8, body []byte) error {
	switch opcode {
	case OpcodeLogonChallenge:
		return h.handleLogonChallenge(ctx, client, body)
	case OpcodeLogonProof:
		return h.handleLogonProof(ctx, client, body)
	case OpcodeReconnectChallenge:
		return h.handleReconnectChallenge(ctx, client, body)
	case OpcodeReconnectProof:
		return h.handleReconnectProof(ctx, client, body)
	case OpcodeRealmList:
		return h.handleRealmList(ctx, client, body)
	default:
		client.SetState(StateClosed)
		return fmt.Errorf("unknown auth opcode 0x%02X", opcode)
	}
}

// challengeInfo carries the parsed logon/reconnect challenge fields.
type challengeInfo struct {
	build    uint32
	platform string
	os       string
	country  string
	username string
}

func parseChallenge(body []byte) (challengeInfo, error) {
	var info challengeInfo
	r := wire.NewReader(body)

	if _, err := r.ReadFourCC(); err != nil { // game name
		return info, fmt.Errorf("reading game name: %w", err)
	}
	if _, err := r.ReadBytes(3); err != nil { // version triplet
		return info, fmt.Errorf("reading version: %w", err)
	}
	build, err := r.ReadUint16()
	if err != nil {
		return info, fmt.Errorf("reading build: %w", err)
	}
	info.build = uint32(build)
	if info.platform, err = r.ReadFourCC(); err != nil {
		return info, fmt.Errorf("reading platform: %w", err)
	}
	if info.os, err = r.ReadFourCC(); err != nil {
		return info, fmt.Errorf("reading OS: %w", err)
	}
	if info.country, err = r.ReadFourCC(); err != nil {
		return info, fmt.Errorf("reading country: %w", err)
	}
	if _, err = r.ReadUint32(); err != nil { // timezone bias
		return info, fmt.Errorf("reading timezone bias: %w", err)
	}
	if _, err = r.ReadUint32(); err != nil { // client-reported IP
		return info, fmt.Errorf("reading client IP: %w", err)
	}
	nameLen, err := r.ReadUint8()
	if err != nil {
		return info, fmt.Errorf("reading name length: %w", err)
	}
	if int(nameLen) > maxUsernameLen || int(nameLen) > r.Remaining() {
		return info, fmt.Errorf("bad account name length %d", nameLen)
	}
	name, err := r.ReadBytes(int(nameLen))
	if err != nil {
		return info, fmt.Errorf("reading account name: %w", err)
	}
	info.username = strings.ToUpper(string(name))
	return info, nil
}

func (h *Handler) sendChallengeFail(client *Client, result uint8) error {
	buf := h.sendPool.Get(defaultSendBufSize)
	defer h.sendPool.Put(buf)
	return client.Send(buf[:serverpackets.LogonChallengeFail(buf, result)])
}

func (h *Handler) handleLogonChallenge(ctx context.Context, client *Client, body []byte) error {
	if client.State() != StateChallenge {
		client.SetState(StateClosed)
		return fmt.Errorf("LogonChallenge in state %v", client.State())
	}

	info, err := parseChallenge(body)
	if err != nil {
		client.SetState(StateClosed)
		return fmt.Errorf("parsing LogonChallenge: %w", err)
	}

	client.build = info.build
	client.tier = realmlist.BuildTier(info.build)
	client.os = info.os
	client.locale = info.country
	client.localeIndex = localeIndex(info.country)

	slog.Info("logon challenge", "account", info.username, "build", info.build,
		"os", info.os, "country", info.country, "client", client.IP())

	if client.tier == realmlist.TierUnsupported {
		return h.sendChallengeFail(client, ResultFailVersionBad)
	}

	fut := async.Query(ctx, func(ctx context.Context) (*model.Account, error) {
		return h.accounts.GetByUsername(ctx, info.username)
	})
	async.Enqueue(client.Queue(), fut, func(ctx context.Context, acc *model.Account, err error) error {
		return h.logonChallengeCallback(ctx, client, info, acc, err)
	})
	return nil
}

// logonChallengeCallback resumes the challenge once the credential lookup
// lands. Infrastructure failures surface as unknown-account responses.
func (h *Handler) logonChallengeCallback(ctx context.Context, client *Client, info challengeInfo, acc *model.Account, err error) error {
	if err != nil {
		slog.Error("credential lookup failed", "account", info.username, "err", err)
		acc = nil
	}
	if acc == nil {
		return h.sendChallengeFail(client, ResultFailUnknownAcct)
	}

	if acc.Locked && acc.LastIP != client.IP() {
		slog.Warn("IP lock mismatch", "account", acc.Username,
			"locked_to", acc.LastIP, "client", client.IP())
		return h.sendChallengeFail(client, ResultFailLockedIP)
	}
	if acc.LockCountry != "" && acc.LockCountry != "00" && acc.LockCountry != info.country {
		slog.Warn("country lock mismatch", "account", acc.Username,
			"locked_to", acc.LockCountry, "client_country", info.country)
		return h.sendChallengeFail(client, ResultFailLockedCountry)
	}

	client.account = acc

	banFut := async.Query(ctx, func(ctx context.Context) (*model.BanStatus, error) {
		return h.bans.GetAccountBan(ctx, acc.ID)
	})
	async.Enqueue(client.Queue(), banFut, func(ctx context.Context, ban *model.BanStatus, err error) error {
		if err != nil {
			slog.Error("account ban lookup failed", "account", acc.Username, "err", err)
			ban = nil
		}
		if ban != nil {
			if ban.Permanent() {
				return h.sendChallengeFail(client, ResultFailBanned)
			}
			return h.sendChallengeFail(client, ResultFailSuspended)
		}

		srp, err := crypto.NewSRP6(acc.Username, acc.Salt, acc.Verifier)
		if err != nil {
			slog.Error("building SRP state", "account", acc.Username, "err", err)
			return h.sendChallengeFail(client, ResultFailUnknownAcct)
		}
		client.srp = srp

		securityFlags := SecurityFlagNone
		if acc.TOTPSecret != "" {
			securityFlags |= SecurityFlagToken
		}

		buf := h.sendPool.Get(defaultSendBufSize)
		defer h.sendPool.Put(buf)
		n := serverpackets.LogonChallengeOK(buf, srp, securityFlags)
		if err := client.Send(buf[:n]); err != nil {
			return err
		}
		client.SetState(StateLogonProof)
		return nil
	})
	return nil
}

func (h *Handler) handleLogonProof(ctx context.Context, client *Client, body []byte) error {
	if client.State() != StateLogonProof || client.srp == nil || client.account == nil {
		client.SetState(StateClosed)
		return fmt.Errorf("LogonProof in state %v", client.State())
	}

	r := wire.NewReader(body)
	clientA, err := r.ReadBytes(crypto.EphemeralKeySize)
	if err != nil {
		client.SetState(StateClosed)
		return fmt.Errorf("reading A: %w", err)
	}
	clientM1, err := r.ReadBytes(crypto.ProofSize)
	if err != nil {
		client.SetState(StateClosed)
		return fmt.Errorf("reading M1: %w", err)
	}
	versionProof, err := r.ReadBytes(crypto.ProofSize)
	if err != nil {
		client.SetState(StateClosed)
		return fmt.Errorf("reading version proof: %w", err)
	}
	if _, err := r.ReadUint8(); err != nil { // number of keys
		client.SetState(StateClosed)
		return fmt.Errorf("reading key count: %w", err)
	}
	securityFlags, err := r.ReadUint8()
	if err != nil {
		client.SetState(StateClosed)
		return fmt.Errorf("reading security flags: %w", err)
	}
	var token string
	if securityFlags&SecurityFlagToken != 0 {
		tokenLen, err := r.ReadUint8()
		if err != nil {
			client.SetState(StateClosed)
			return fmt.Errorf("reading token length: %w", err)
		}
		raw, err := r.ReadBytes(int(tokenLen))
		if err != nil {
			client.SetState(StateClosed)
			return fmt.Errorf("reading token: %w", err)
		}
		token = string(raw)
	}

	sessionKey, ok := client.srp.VerifyChallengeResponse(clientA, clientM1)
	if !ok {
		return h.logonProofFailed(ctx, client)
	}

	if client.account.TOTPSecret != "" && !h.validToken(client.account.TOTPSecret, token) {
		slog.Warn("second factor rejected", "account", client.account.Username, "client", client.IP())
		return h.logonProofFailed(ctx, client)
	}

	if !h.versionProofValid(client, clientA, versionProof) {
		slog.Warn("version proof rejected", "account", client.account.Username,
			"build", client.build, "client", client.IP())
		return h.sendProofFail(client, ResultFailVersionBad)
	}

	m2 := client.srp.ComputeServerProof(clientA, clientM1, sessionKey)
	acc := client.account

	fut := async.Query(ctx, func(ctx context.Context) (struct{}, error) {
		err := h.accounts.UpdateLogonSuccess(ctx, acc.Username, sessionKey,
			client.IP(), client.localeIndex, client.os)
		return struct{}{}, err
	})
	async.Enqueue(client.Queue(), fut, func(ctx context.Context, _ struct{}, err error) error {
		if err != nil {
			slog.Error("persisting session key", "account", acc.Username, "err", err)
			return h.sendProofFail(client, ResultFailUnknownAcct)
		}

		buf := h.sendPool.Get(defaultSendBufSize)
		defer h.sendPool.Put(buf)
		n := serverpackets.LogonProofSuccess(buf, m2, client.tier)
		if err := client.Send(buf[:n]); err != nil {
			return err
		}
		client.SetState(StateAuthed)
		slog.Info("logon proof accepted", "account", acc.Username, "client", client.IP())
		return nil
	})
	return nil
}

// logonProofFailed records the failed attempt, applies the wrong-password
// auto-ban threshold and answers with a generic failure. The same response
// covers bad proofs and bad tokens so the failure mode is not an oracle.
func (h *Handler) logonProofFailed(ctx context.Context, client *Client) error {
	acc := client.account

	fut := async.Query(ctx, func(ctx context.Context) (uint32, error) {
		return h.accounts.RecordFailedLogin(ctx, acc.Username)
	})
	async.Enqueue(client.Queue(), fut, func(ctx context.Context, count uint32, err error) error {
		if err != nil {
			slog.Error("recording failed login", "account", acc.Username, "err", err)
		}
		if err == nil && h.cfg.WrongPassMaxCount > 0 && count >= uint32(h.cfg.WrongPassMaxCount) {
			h.applyWrongPassBan(ctx, client, acc)
		}
		return h.sendProofFail(client, ResultFailIncorrectPass)
	})
	return nil
}

// applyWrongPassBan issues the configured ban fire-and-forget; the failure
// response does not wait on it.
func (h *Handler) applyWrongPassBan(ctx context.Context, client *Client, acc *model.Account) {
	if h.cfg.WrongPassBanType == config.BanTypeIP {
		ip := client.IP()
		slog.Warn("banning IP after failed logins", "ip", ip, "seconds", h.cfg.WrongPassBanTime)
		async.Query(ctx, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, h.bans.BanIP(ctx, ip, h.cfg.WrongPassBanTime)
		})
		return
	}
	slog.Warn("banning account after failed logins",
		"account", acc.Username, "seconds", h.cfg.WrongPassBanTime)
	async.Query(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, h.bans.BanAccount(ctx, acc.ID, h.cfg.WrongPassBanTime)
	})
}

func (h *Handler) sendProofFail(client *Client, result uint8) error {
	buf := h.sendPool.Get(defaultSendBufSize)
	defer h.sendPool.Put(buf)
	n := serverpackets.LogonProofFail(buf, result, client.tier)
	if err := client.Send(buf[:n]); err != nil {
		return err
	}
	client.SetState(StateClosed)
	return nil
}

func (h *Handler) validToken(secret, token string) bool {
	digits, err := strconv.ParseUint(strings.TrimSpace(token), 10, 32)
	if err != nil {
		return false
	}
	ok, err := crypto.ValidateTOTP(secret, uint32(digits), time.Now())
	if err != nil {
		slog.Error("validating TOTP", "err", err)
		return false
	}
	return ok
}

// versionProofValid checks SHA1(A || build binary hash) against the proof
// the client supplied. Lenient mode accepts everything; strict mode
// requires a registry hash for the platform and an exact match.
func (h *Handler) versionProofValid(client *Client, clientA, proof []byte) bool {
	if !h.cfg.StrictVersionCheck {
		return true
	}
	info := realmlist.GetBuildInfo(client.build)
	if info == nil {
		return false
	}
	expectedHash := info.VersionHash(client.os)
	if expectedHash == nil {
		return false
	}
	hash := sha1.New()
	hash.Write(clientA)
	hash.Write(expectedHash)
	return subtle.ConstantTimeCompare(proof, hash.Sum(nil)) == 1
}

func (h *Handler) handleReconnectChallenge(ctx context.Context, client *Client, body []byte) error {
	if client.State() != StateChallenge {
		client.SetState(StateClosed)
		return fmt.Errorf("ReconnectChallenge in state %v", client.State())
	}

	info, err := parseChallenge(body)
	if err != nil {
		client.SetState(StateClosed)
		return fmt.Errorf("parsing ReconnectChallenge: %w", err)
	}

	client.build = info.build
	client.tier = realmlist.BuildTier(info.build)
	client.os = info.os
	client.locale = info.country
	client.localeIndex = localeIndex(info.country)

	fut := async.Query(ctx, func(ctx context.Context) (*model.Account, error) {
		return h.accounts.GetByUsername(ctx, info.username)
	})
	async.Enqueue(client.Queue(), fut, func(ctx context.Context, acc *model.Account, err error) error {
		if err != nil {
			slog.Error("credential lookup failed", "account", info.username, "err", err)
			acc = nil
		}
		// Reconnect requires a stored session key from a prior full logon.
		if acc == nil || len(acc.SessionKey) != crypto.SessionKeySize {
			buf := h.sendPool.Get(defaultSendBufSize)
			defer h.sendPool.Put(buf)
			n := serverpackets.ReconnectChallengeFail(buf, ResultFailUnknownAcct)
			if err := client.Send(buf[:n]); err != nil {
				return err
			}
			client.SetState(StateClosed)
			return nil
		}

		client.account = acc
		if _, err := rand.Read(client.reconnectProof[:]); err != nil {
			client.SetState(StateClosed)
			return fmt.Errorf("generating reconnect nonce: %w", err)
		}

		buf := h.sendPool.Get(defaultSendBufSize)
		defer h.sendPool.Put(buf)
		n := serverpackets.ReconnectChallenge(buf, client.reconnectProof)
		if err := client.Send(buf[:n]); err != nil {
			return err
		}
		client.SetState(StateReconnectProof)
		return nil
	})
	return nil
}

func (h *Handler) handleReconnectProof(_ context.Context, client *Client, body []byte) error {
	if client.State() != StateReconnectProof || client.account == nil {
		client.SetState(StateClosed)
		return fmt.Errorf("ReconnectProof in state %v", client.State())
	}

	r := wire.NewReader(body)
	r1, err := r.ReadBytes(16)
	if err != nil {
		client.SetState(StateClosed)
		return fmt.Errorf("reading R1: %w", err)
	}
	r2, err := r.ReadBytes(crypto.ProofSize)
	if err != nil {
		client.SetState(StateClosed)
		return fmt.Errorf("reading R2: %w", err)
	}
	if _, err := r.ReadBytes(crypto.ProofSize); err != nil { // R3, unused
		client.SetState(StateClosed)
		return fmt.Errorf("reading R3: %w", err)
	}
	if _, err := r.ReadUint8(); err != nil { // number of keys
		client.SetState(StateClosed)
		return fmt.Errorf("reading key count: %w", err)
	}

	hash := sha1.New()
	hash.Write([]byte(client.account.Username))
	hash.Write(r1)
	hash.Write(client.reconnectProof[:])
	hash.Write(client.account.SessionKey)
	expected := hash.Sum(nil)

	if subtle.ConstantTimeCompare(r2, expected) != 1 {
		slog.Warn("reconnect proof rejected", "account", client.account.Username, "client", client.IP())
		buf := h.sendPool.Get(defaultSendBufSize)
		defer h.sendPool.Put(buf)
		n := serverpackets.ReconnectProofFail(buf, ResultFailUnknownAcct)
		if err := client.Send(buf[:n]); err != nil {
			return err
		}
		client.SetState(StateClosed)
		return nil
	}

	buf := h.sendPool.Get(defaultSendBufSize)
	defer h.sendPool.Put(buf)
	n := serverpackets.ReconnectProofSuccess(buf)
	if err := client.Send(buf[:n]); err != nil {
		return err
	}
	client.SetState(StateAuthed)
	slog.Info("reconnect proof accepted", "account", client.account.Username, "client", client.IP())
	return nil
}

func (h *Handler) handleRealmList(ctx context.Context, client *Client, _ []byte) error {
	state := client.State()
	if (state != StateAuthed && state != StateWaitingRealmList) || client.account == nil {
		client.SetState(StateClosed)
		return fmt.Errorf("RealmList in state %v", state)
	}

	acc := client.account
	fut := async.Query(ctx, func(ctx context.Context) (map[uint32]uint8, error) {
		return h.chars.GetCharacterCounts(ctx, acc.ID)
	})
	async.Enqueue(client.Queue(), fut, func(ctx context.Context, counts map[uint32]uint8, err error) error {
		if err != nil {
			slog.Error("character count lookup failed", "account", acc.Username, "err", err)
			counts = nil
		}

		entries := h.buildRealmEntries(client, counts)
		buf := h.sendPool.Get(defaultSendBufSize)
		defer h.sendPool.Put(buf)
		n := serverpackets.RealmList(buf, entries, client.tier)
		if err := client.Send(buf[:n]); err != nil {
			return err
		}
		client.SetState(StateWaitingRealmList)
		return nil
	})
	return nil
}

func (h *Handler) buildRealmEntries(client *Client, counts map[uint32]uint8) []serverpackets.RealmEntry {
	realms := h.realms.All()
	entries := make([]serverpackets.RealmEntry, 0, len(realms))
	for _, realm := range realms {
		entry := serverpackets.RealmEntry{
			Realm:    realm,
			NumChars: counts[realm.ID],
			Locked:   realm.AllowedSecurityLevel > client.account.SecurityLevel,
		}
		// A realm pinned to a different build is advertised offline with
		// its required version attached.
		if realm.Build != 0 && realm.Build != client.build {
			if info := realmlist.GetBuildInfo(realm.Build); info != nil {
				entry.BuildInfo = info
			} else {
				entry.BuildInfo = &realmlist.BuildInfo{Build: realm.Build}
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

// localeIndex maps the client country 4CC to the locale index persisted on
// the account.
func localeIndex(country string) uint8 {
	switch country {
	case "enUS", "enGB":
		return 0
	case "koKR":
		return 1
	case "frFR":
		return 2
	case "deDE":
		return 3
	case "zhCN":
		return 4
	case "zhTW":
		return 5
	case "esES":
		return 6
	case "esMX":
		return 7
	case "ruRU":
		return 8
	default:
		return 0
	}
}
