package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/azerothgo/azerothgo/internal/model"
)

// RealmRepository reads the realm list and per-account character counts.
type RealmRepository struct {
	pool *pgxpool.Pool
}

// NewRealmRepository creates a RealmRepository over the given pool.
func NewRealmRepository(pool *pgxpool.Pool) *RealmRepository {
	return &RealmRepository{pool: pool}
}

// GetRealms returns all advertised realms ordered by id.
func (r *RealmRepository) GetRealms(ctx context.Context) ([]model.Realm, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, address, port, icon, flags, timezone,
		        allowed_security_level, population, gamebuild
		 FROM realmlist ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying realm list: %w", err)
	}
	defer rows.Close()

	var realms []model.Realm
	for rows.Next() {
		var rl model.Realm
		if err := rows.Scan(&rl.ID, &rl.Name, &rl.Address, &rl.Port, &rl.Icon,
			&rl.Flags, &rl.Timezone, &rl.AllowedSecurityLevel, &rl.Population,
			&rl.Build); err != nil {
			return nil, fmt.Errorf("scanning realm row: %w", err)
		}
		realms = append(realms, rl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating realm rows: %w", err)
	}
	return realms, nil
}

// GetCharacterCounts returns realm id → character count for one account.
func (r *RealmRepository) GetCharacterCounts(ctx context.Context, accountID uint32) (map[uint32]uint8, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT realm_id, num_chars FROM realm_characters WHERE account_id = $1`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying character counts for account %d: %w", accountID, err)
	}
	defer rows.Close()

	counts := make(map[uint32]uint8)
	for rows.Next() {
		var realmID uint32
		var num uint8
		if err := rows.Scan(&realmID, &num); err != nil {
			return nil, fmt.Errorf("scanning character count row: %w", err)
		}
		counts[realmID] = num
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating character count rows: %w", err)
	}
	return counts, nil
}
