package authserver

import (
	"context"

	"github.com/azerothgo/azerothgo/internal/model"
)

// AccountRepository is the credential-store surface the auth handlers
// consume. Implemented by db.AccountRepository; mocked in tests.
type AccountRepository interface {
	// GetByUsername returns nil, nil when the account does not exist.
	GetByUsername(ctx context.Context, username string) (*model.Account, error)

	// UpdateLogonSuccess persists the session key, last IP and locale after
	// a successful proof, clearing the failed-login counter.
	UpdateLogonSuccess(ctx context.Context, username string, sessionKey []byte, ip string, locale uint8, os string) error

	// RecordFailedLogin increments and returns the failed-login counter.
	RecordFailedLogin(ctx context.Context, username string) (uint32, error)
}

// BanRepository is the ban-store surface the auth handlers consume.
type BanRepository interface {
	// GetIPBan returns nil, nil when the address is clear.
	GetIPBan(ctx context.Context, ip string) (*model.BanStatus, error)

	// GetAccountBan returns nil, nil when the account is clear.
	GetAccountBan(ctx context.Context, accountID uint32) (*model.BanStatus, error)

	// BanAccount and BanIP insert temporary bans used by the
	// wrong-password threshold.
	BanAccount(ctx context.Context, accountID uint32, seconds int) error
	BanIP(ctx context.Context, ip string, seconds int) error
}

// CharacterCountRepository supplies per-realm character counts for the
// realm list response.
type CharacterCountRepository interface {
	GetCharacterCounts(ctx context.Context, accountID uint32) (map[uint32]uint8, error)
}
