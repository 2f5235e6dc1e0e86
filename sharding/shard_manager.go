package sharding

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/samandartukhtayev/user-directory/config"
)

// ShardManager manages the snapshot database shards and their replicas
type ShardManager struct {
	shards    []*Shard
	numShards int
	mu        sync.RWMutex
}

// Shard represents a single database shard with primary and replica connections
type Shard struct {
	ShardID  int
	Primary  *sql.DB
	Replicas []*sql.DB
}

// NewShardManager connects to every primary and replica in the configuration
func NewShardManager(ctx context.Context, cfg *config.Config) (*ShardManager, error) {
	if len(cfg.Shards) == 0 {
		return nil, fmt.Errorf("no shards configured")
	}

	sm := &ShardManager{
		shards:    make([]*Shard, 0, len(cfg.Shards)),
		numShards: len(cfg.Shards),
	}

	for _, shardCfg := range cfg.Shards {
		shard := &Shard{
			ShardID:  shardCfg.ShardID,
			Replicas: make([]*sql.DB, 0, len(shardCfg.Replicas)),
		}
		// Registered before connecting so Close releases partial setups
		sm.shards = append(sm.shards, shard)

		primaryDB, err := open(ctx, shardCfg.Primary)
		if err != nil {
			sm.Close()
			return nil, fmt.Errorf("failed to connect to primary for shard %d: %w", shardCfg.ShardID, err)
		}
		shard.Primary = primaryDB

		for j, replicaCfg := range shardCfg.Replicas {
			replicaDB, err := open(ctx, replicaCfg)
			if err != nil {
				sm.Close()
				return nil, fmt.Errorf("failed to connect to replica %d for shard %d: %w", j, shardCfg.ShardID, err)
			}
			shard.Replicas = append(shard.Replicas, replicaDB)
		}
	}

	return sm, nil
}

func open(ctx context.Context, dc config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open(dc.DriverName(), dc.ConnectionString())
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// ShardFor maps a shard key onto one of n shards with FNV-1a.
// The same key always lands on the same shard.
func ShardFor(shardKey string, n int) int {
	h := fnv.New32a()
	h.Write([]byte(shardKey))
	return int(h.Sum32() % uint32(n))
}

// GetShardID calculates which shard a key belongs to
func (sm *ShardManager) GetShardID(shardKey string) int {
	return ShardFor(shardKey, sm.numShards)
}

// ReadDB returns a random replica of the shard, or its primary if it has none
func (s *Shard) ReadDB() *sql.DB {
	if len(s.Replicas) == 0 {
		return s.Primary
	}
	return s.Replicas[rand.Intn(len(s.Replicas))]
}

// GetShardByID returns a specific shard by its position
func (sm *ShardManager) GetShardByID(shardID int) (*Shard, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if shardID < 0 || shardID >= sm.numShards {
		return nil, fmt.Errorf("invalid shard ID: %d", shardID)
	}

	return sm.shards[shardID], nil
}

// GetAllShards returns all shards
func (sm *ShardManager) GetAllShards() []*Shard {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	// Return a copy to prevent external modifications
	shardsCopy := make([]*Shard, len(sm.shards))
	copy(shardsCopy, sm.shards)
	return shardsCopy
}

// Close closes all database connections
func (sm *ShardManager) Close() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	var errs []error

	for _, shard := range sm.shards {
		if shard.Primary != nil {
			if err := shard.Primary.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close primary for shard %d: %w", shard.ShardID, err))
			}
		}

		for i, replica := range shard.Replicas {
			if err := replica.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close replica %d for shard %d: %w", i, shard.ShardID, err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing connections: %v", errs)
	}

	return nil
}

// NumShards returns the total number of shards
func (sm *ShardManager) NumShards() int {
	return sm.numShards
}
