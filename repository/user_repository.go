package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/samandartukhtayev/user-directory/fetcher"
	"github.com/samandartukhtayev/user-directory/models"
	"github.com/samandartukhtayev/user-directory/sharding"
	"github.com/samandartukhtayev/user-directory/snapshot"
)

var schema = []string{`
	CREATE TABLE IF NOT EXISTS directory_users (
		position     INTEGER PRIMARY KEY,
		id           INTEGER NOT NULL,
		username     TEXT NOT NULL,
		name         TEXT NOT NULL,
		email        TEXT NOT NULL,
		phone        TEXT NOT NULL,
		website      TEXT NOT NULL,
		street       TEXT NOT NULL,
		suite        TEXT NOT NULL,
		city         TEXT NOT NULL,
		zipcode      TEXT NOT NULL,
		lat          TEXT NOT NULL,
		lng          TEXT NOT NULL,
		company_name TEXT NOT NULL,
		catch_phrase TEXT NOT NULL,
		bs           TEXT NOT NULL
	)`, `
	CREATE TABLE IF NOT EXISTS directory_snapshot (
		singleton  BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
		fetched_at TIMESTAMPTZ NOT NULL,
		error_kind TEXT NOT NULL DEFAULT ''
	)`,
}

const userColumns = `position, id, username, name, email, phone, website,
	street, suite, city, zipcode, lat, lng, company_name, catch_phrase, bs`

var _ snapshot.Store = (*UserRepository)(nil)

// metaShard holds the snapshot metadata row
const metaShard = 0

// UserRepository keeps the prefetched directory in the sharded database.
// Users are sharded by username; writes go to primaries, reads to replicas.
type UserRepository struct {
	shardManager *sharding.ShardManager
}

// NewUserRepository creates a new user repository
func NewUserRepository(sm *sharding.ShardManager) *UserRepository {
	return &UserRepository{
		shardManager: sm,
	}
}

// EnsureSchema creates the tables on every primary
func (r *UserRepository) EnsureSchema(ctx context.Context) error {
	for _, shard := range r.shardManager.GetAllShards() {
		for _, stmt := range schema {
			if _, err := shard.Primary.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to create schema on shard %d: %w", shard.ShardID, err)
			}
		}
	}
	return nil
}

// ReplaceAll swaps the stored directory for users. The slice position is
// stored with each row so GetAllUsers can restore the fetch order.
func (r *UserRepository) ReplaceAll(ctx context.Context, users []models.User) error {
	perShard := make(map[int][]int, r.shardManager.NumShards())
	for i, u := range users {
		shardID := r.shardManager.GetShardID(u.Username)
		perShard[shardID] = append(perShard[shardID], i)
	}

	// GetShardID hashes to a position in the shard list
	for i, shard := range r.shardManager.GetAllShards() {
		if err := r.replaceShard(ctx, shard, users, perShard[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *UserRepository) replaceShard(ctx context.Context, shard *sharding.Shard, users []models.User, positions []int) error {
	tx, err := shard.Primary.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction on shard %d: %w", shard.ShardID, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM directory_users`); err != nil {
		return fmt.Errorf("failed to clear users on shard %d: %w", shard.ShardID, err)
	}

	query := `
		INSERT INTO directory_users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	for _, pos := range positions {
		u := users[pos]
		_, err := tx.ExecContext(ctx, query,
			pos, u.ID, u.Username, u.Name, u.Email, u.Phone, u.Website,
			u.Address.Street, u.Address.Suite, u.Address.City, u.Address.Zipcode,
			u.Address.Geo.Lat, u.Address.Geo.Lng,
			u.Company.Name, u.Company.CatchPhrase, u.Company.BS,
		)
		if err != nil {
			return fmt.Errorf("failed to insert user %d on shard %d: %w", u.ID, shard.ShardID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit shard %d: %w", shard.ShardID, err)
	}
	return nil
}

type positionedUser struct {
	position int
	user     models.User
}

// GetAllUsers retrieves the directory across all shards in fetch order.
// Reads go to replicas and may lag behind the last ReplaceAll.
func (r *UserRepository) GetAllUsers(ctx context.Context) ([]models.User, error) {
	return r.allUsers(ctx, (*sharding.Shard).ReadDB)
}

func (r *UserRepository) allUsers(ctx context.Context, pick func(*sharding.Shard) *sql.DB) ([]models.User, error) {
	var rows []positionedUser

	query := `SELECT ` + userColumns + ` FROM directory_users`

	for _, shard := range r.shardManager.GetAllShards() {
		shardRows, err := queryUsers(ctx, pick(shard), query)
		if err != nil {
			return nil, fmt.Errorf("failed to query shard %d: %w", shard.ShardID, err)
		}
		rows = append(rows, shardRows...)
	}

	slices.SortFunc(rows, func(a, b positionedUser) int {
		return a.position - b.position
	})

	users := make([]models.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.user)
	}
	return users, nil
}

func queryUsers(ctx context.Context, db *sql.DB, query string) ([]positionedUser, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []positionedUser
	for rows.Next() {
		var p positionedUser
		u := &p.user
		err := rows.Scan(
			&p.position, &u.ID, &u.Username, &u.Name, &u.Email, &u.Phone, &u.Website,
			&u.Address.Street, &u.Address.Suite, &u.Address.City, &u.Address.Zipcode,
			&u.Address.Geo.Lat, &u.Address.Geo.Lng,
			&u.Company.Name, &u.Company.CatchPhrase, &u.Company.BS,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// CountUsersPerShard returns the count of users in each shard
// Useful for monitoring shard distribution
func (r *UserRepository) CountUsersPerShard(ctx context.Context) (map[int]int, error) {
	counts := make(map[int]int)

	query := `SELECT COUNT(*) FROM directory_users`

	for i, shard := range r.shardManager.GetAllShards() {
		var count int
		err := shard.Primary.QueryRowContext(ctx, query).Scan(&count)
		if err != nil {
			return nil, fmt.Errorf("failed to count users in shard %d: %w", shard.ShardID, err)
		}
		counts[i] = count
	}

	return counts, nil
}

// Save stores a prefetch outcome. A failed prefetch clears the users.
func (r *UserRepository) Save(ctx context.Context, s *snapshot.Snapshot) error {
	if err := r.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := r.ReplaceAll(ctx, s.Users); err != nil {
		return err
	}

	meta, err := r.shardManager.GetShardByID(metaShard)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO directory_snapshot (singleton, fetched_at, error_kind)
		VALUES (TRUE, $1, $2)
		ON CONFLICT (singleton) DO UPDATE
		SET fetched_at = EXCLUDED.fetched_at, error_kind = EXCLUDED.error_kind
	`
	if _, err := meta.Primary.ExecContext(ctx, query, s.FetchedAt, string(s.ErrorKind)); err != nil {
		return fmt.Errorf("failed to save snapshot metadata: %w", err)
	}
	return nil
}

// Load reads the stored prefetch outcome; snapshot.ErrNotFound if none was saved
func (r *UserRepository) Load(ctx context.Context) (*snapshot.Snapshot, error) {
	if err := r.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	meta, err := r.shardManager.GetShardByID(metaShard)
	if err != nil {
		return nil, err
	}

	var (
		fetchedAt time.Time
		errorKind string
	)
	query := `SELECT fetched_at, error_kind FROM directory_snapshot WHERE singleton`
	err = meta.Primary.QueryRowContext(ctx, query).Scan(&fetchedAt, &errorKind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, snapshot.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load snapshot metadata: %w", err)
	}

	s := &snapshot.Snapshot{FetchedAt: fetchedAt, ErrorKind: fetcher.Kind(errorKind)}
	if s.ErrorKind != "" {
		return s, nil
	}

	// Users come from the primaries too, so they always match the metadata
	s.Users, err = r.allUsers(ctx, func(shard *sharding.Shard) *sql.DB { return shard.Primary })
	if err != nil {
		return nil, err
	}
	return s, nil
}
