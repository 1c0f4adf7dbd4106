package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/azerothgo/azerothgo/internal/model"
)

// BanRepository implements account and IP ban lookups and writes.
type BanRepository struct {
	pool *pgxpool.Pool
}

// NewBanRepository creates a BanRepository over the given pool.
func NewBanRepository(pool *pgxpool.Pool) *BanRepository {
	return &BanRepository{pool: pool}
}

// GetIPBan returns the active ban for an IP, or nil, nil when the address is
// clear. Expired temporary bans are not reported.
func (r *BanRepository) GetIPBan(ctx context.Context, ip string) (*model.BanStatus, error) {
	var ban model.BanStatus
	err := r.pool.QueryRow(ctx,
		`SELECT ban_date, unban_date FROM ip_banned
		 WHERE ip = $1 AND (ban_date = unban_date OR unban_date > $2)`,
		ip, time.Now().Unix(),
	).Scan(&ban.BanDate, &ban.UnbanDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying IP ban for %s: %w", ip, err)
	}
	return &ban, nil
}

// GetAccountBan returns the active ban for an account, or nil, nil when the
// account is clear.
func (r *BanRepository) GetAccountBan(ctx context.Context, accountID uint32) (*model.BanStatus, error) {
	var ban model.BanStatus
	err := r.pool.QueryRow(ctx,
		`SELECT ban_date, unban_date FROM account_banned
		 WHERE account_id = $1 AND active
		   AND (ban_date = unban_date OR unban_date > $2)`,
		accountID, time.Now().Unix(),
	).Scan(&ban.BanDate, &ban.UnbanDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying account ban for %d: %w", accountID, err)
	}
	return &ban, nil
}

// BanAccount inserts a temporary account ban lasting the given number of
// seconds.
func (r *BanRepository) BanAccount(ctx context.Context, accountID uint32, seconds int) error {
	now := time.Now().Unix()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO account_banned (account_id, ban_date, unban_date, active)
		 VALUES ($1, $2, $3, TRUE)`,
		accountID, now, now+int64(seconds),
	)
	if err != nil {
		return fmt.Errorf("banning account %d: %w", accountID, err)
	}
	return nil
}

// BanIP inserts a temporary IP ban lasting the given number of seconds.
func (r *BanRepository) BanIP(ctx context.Context, ip string, seconds int) error {
	now := time.Now().Unix()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO ip_banned (ip, ban_date, unban_date)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (ip) DO UPDATE SET ban_date = $2, unban_date = $3`,
		ip, now, now+int64(seconds),
	)
	if err != nil {
		return fmt.Errorf("banning IP %s: %w", ip, err)
	}
	return nil
}
