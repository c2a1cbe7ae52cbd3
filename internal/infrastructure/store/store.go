// Package store persists directory profiles in SQLite. The access pattern
// is deliberately plain: upsert by fid, select by fid, list newest-first.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	_ "modernc.org/sqlite"

	"github.com/arvatny/tokendir/internal/domain/entities"
)

// ErrNotFound is returned when no profile exists for a fid.
var ErrNotFound = errors.New("profile not found")

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	fid           INTEGER PRIMARY KEY,
	username      TEXT NOT NULL,
	display_name  TEXT NOT NULL DEFAULT '',
	bio           TEXT NOT NULL DEFAULT '',
	avatar_url    TEXT NOT NULL DEFAULT '',
	wallet        TEXT NOT NULL DEFAULT '',
	token_address TEXT NOT NULL DEFAULT '',
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_profiles_updated_at ON profiles(updated_at DESC);
`

// ProfileStore is the SQLite-backed profile repository.
type ProfileStore struct {
	db *sql.DB
}

// Open opens (and if needed creates) the profile database at path. Use
// ":memory:" for an ephemeral store.
func Open(path string) (*ProfileStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite serializes writes; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &ProfileStore{db: db}, nil
}

func (s *ProfileStore) Close() error {
	return s.db.Close()
}

// Upsert inserts or replaces the profile for its fid. CreatedAt is kept
// from the existing row on conflict.
func (s *ProfileStore) Upsert(ctx context.Context, p *entities.Profile) error {
	if p.FID == 0 {
		return fmt.Errorf("fid is required")
	}
	if p.Username == "" {
		return fmt.Errorf("username is required")
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (fid, username, display_name, bio, avatar_url, wallet, token_address, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fid) DO UPDATE SET
			username = excluded.username,
			display_name = excluded.display_name,
			bio = excluded.bio,
			avatar_url = excluded.avatar_url,
			wallet = excluded.wallet,
			token_address = excluded.token_address,
			updated_at = excluded.updated_at`,
		p.FID, p.Username, p.DisplayName, p.Bio, p.AvatarURL,
		addrString(p.Wallet), addrString(p.TokenAddress),
		now.Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert profile %d: %w", p.FID, err)
	}
	return nil
}

// GetByFID loads one profile.
func (s *ProfileStore) GetByFID(ctx context.Context, fid uint64) (*entities.Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT fid, username, display_name, bio, avatar_url, wallet, token_address, created_at, updated_at
		FROM profiles WHERE fid = ?`, fid)

	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: fid %d", ErrNotFound, fid)
		}
		return nil, fmt.Errorf("get profile %d: %w", fid, err)
	}
	return p, nil
}

// List returns profiles newest-first.
func (s *ProfileStore) List(ctx context.Context, limit, offset int) ([]*entities.Profile, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT fid, username, display_name, bio, avatar_url, wallet, token_address, created_at, updated_at
		FROM profiles ORDER BY updated_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*entities.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// Delete removes a profile; deleting a missing fid is not an error.
func (s *ProfileStore) Delete(ctx context.Context, fid uint64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE fid = ?`, fid)
	if err != nil {
		return fmt.Errorf("delete profile %d: %w", fid, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*entities.Profile, error) {
	var (
		p                 entities.Profile
		wallet, tokenAddr string
		created, updated  int64
	)
	err := row.Scan(&p.FID, &p.Username, &p.DisplayName, &p.Bio, &p.AvatarURL,
		&wallet, &tokenAddr, &created, &updated)
	if err != nil {
		return nil, err
	}

	if wallet != "" {
		p.Wallet = common.HexToAddress(wallet)
	}
	if tokenAddr != "" {
		p.TokenAddress = common.HexToAddress(tokenAddr)
	}
	p.CreatedAt = time.Unix(created, 0).UTC()
	p.UpdatedAt = time.Unix(updated, 0).UTC()
	return &p, nil
}

func addrString(addr common.Address) string {
	if addr == (common.Address{}) {
		return ""
	}
	return addr.Hex()
}
