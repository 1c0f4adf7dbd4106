package worldserver

import (
	"context"

	"github.com/azerothgo/azerothgo/internal/model"
)

// AccountRepository is the account surface the session handlers consume.
// Implemented by db.AccountRepository; mocked in tests.
type AccountRepository interface {
	// GetByUsername returns nil, nil when the account does not exist.
	GetByUsername(ctx context.Context, username string) (*model.Account, error)

	UpdateLastIP(ctx context.Context, accountID uint32, ip string) error
	UpdateMuteTime(ctx context.Context, accountID uint32, muteTime int64) error
	SetOnline(ctx context.Context, accountID uint32, online bool) error
}

// BanRepository is the ban surface the session handlers consume.
type BanRepository interface {
	// GetIPBan returns nil, nil when the address is clear.
	GetIPBan(ctx context.Context, ip string) (*model.BanStatus, error)

	// GetAccountBan returns nil, nil when the account is clear.
	GetAccountBan(ctx context.Context, accountID uint32) (*model.BanStatus, error)
}
