package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/azerothgo/azerothgo/internal/model"
)

// AccountRepository implements account lookups and post-auth bookkeeping
// against PostgreSQL.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates an AccountRepository over the given pool.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

const accountColumns = `id, username, salt, verifier, session_key, totp_secret,
	last_ip, locked, lock_country, online, expansion, mutetime, locale, os,
	failed_logins, security_level, last_login`

// GetByUsername returns the credential record for a login name.
// Returns nil, nil if the account does not exist.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	username = strings.ToUpper(username)
	var acc model.Account
	var totp *string
	err := r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username,
	).Scan(&acc.ID, &acc.Username, &acc.Salt, &acc.Verifier, &acc.SessionKey,
		&totp, &acc.LastIP, &acc.Locked, &acc.LockCountry, &acc.Online,
		&acc.Expansion, &acc.MuteTime, &acc.Locale, &acc.OS,
		&acc.FailedLogins, &acc.SecurityLevel, &acc.LastLogin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying account %q: %w", username, err)
	}
	if totp != nil {
		acc.TOTPSecret = *totp
	}
	return &acc, nil
}

// UpdateLogonSuccess persists the freshly derived session key together with
// the peer address and locale, and clears the failed-login counter.
func (r *AccountRepository) UpdateLogonSuccess(ctx context.Context, username string, sessionKey []byte, ip string, locale uint8, os string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE accounts
		 SET session_key = $1, last_ip = $2, locale = $3, os = $4,
		     failed_logins = 0, last_login = $5
		 WHERE username = $6`,
		sessionKey, ip, locale, os, time.Now(), strings.ToUpper(username),
	)
	if err != nil {
		return fmt.Errorf("updating logon state for %q: %w", username, err)
	}
	return nil
}

// RecordFailedLogin increments the failed-login counter and returns the new
// value.
func (r *AccountRepository) RecordFailedLogin(ctx context.Context, username string) (uint32, error) {
	var count uint32
	err := r.pool.QueryRow(ctx,
		`UPDATE accounts SET failed_logins = failed_logins + 1
		 WHERE username = $1 RETURNING failed_logins`,
		strings.ToUpper(username),
	).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("recording failed login for %q: %w", username, err)
	}
	return count, nil
}

// UpdateLastIP stores the peer address seen at world authentication.
func (r *AccountRepository) UpdateLastIP(ctx context.Context, accountID uint32, ip string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE accounts SET last_ip = $1 WHERE id = $2`, ip, accountID,
	)
	if err != nil {
		return fmt.Errorf("updating last IP for account %d: %w", accountID, err)
	}
	return nil
}

// UpdateMuteTime persists an absolute unmute timestamp. Negative stored
// mutetimes are durations to be converted at world auth time.
func (r *AccountRepository) UpdateMuteTime(ctx context.Context, accountID uint32, muteTime int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE accounts SET mutetime = $1 WHERE id = $2`, muteTime, accountID,
	)
	if err != nil {
		return fmt.Errorf("updating mutetime for account %d: %w", accountID, err)
	}
	return nil
}

// SetOnline flags the account online or offline on this realm.
func (r *AccountRepository) SetOnline(ctx context.Context, accountID uint32, online bool) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE accounts SET online = $1 WHERE id = $2`, online, accountID,
	)
	if err != nil {
		return fmt.Errorf("updating online state for account %d: %w", accountID, err)
	}
	return nil
}
