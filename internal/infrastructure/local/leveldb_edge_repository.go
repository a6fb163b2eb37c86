package local

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"ens-identity-graph/internal/domain/entity"
	"ens-identity-graph/internal/domain/repository"
	"ens-identity-graph/internal/infrastructure/config"
	"ens-identity-graph/internal/infrastructure/logger"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.uber.org/zap"
)

const (
	edgeKeyPrefix  = "edge/"
	initializedKey = "meta/initialized"
)

// LevelDBEdgeRepository keeps edges in a LevelDB directory on local disk.
// The database is opened lazily on first use; if it cannot be opened every
// call returns ErrNotConnected and callers keep their in-memory state.
type LevelDBEdgeRepository struct {
	sync.Mutex
	path    string
	db      *leveldb.DB
	openErr error
	logger  *logger.Logger
}

// NewLevelDBEdgeRepository creates a repository rooted at cfg.Path
func NewLevelDBEdgeRepository(cfg *config.LocalConfig, logger *logger.Logger) *LevelDBEdgeRepository {
	return &LevelDBEdgeRepository{
		path:   cfg.Path,
		logger: logger.WithComponent("leveldb-edge-repo"),
	}
}

func (r *LevelDBEdgeRepository) open() (*leveldb.DB, error) {
	r.Lock()
	defer r.Unlock()

	if r.db != nil {
		return r.db, nil
	}
	if r.openErr != nil {
		return nil, r.openErr
	}

	db, err := leveldb.OpenFile(r.path, nil)
	if err != nil {
		r.logger.Warn("Local edge storage unavailable, keeping edges in memory only",
			zap.String("path", r.path),
			zap.Error(err))
		r.openErr = fmt.Errorf("failed to open %s: %v: %w", r.path, err, repository.ErrNotConnected)
		return nil, r.openErr
	}

	r.logger.Info("Opened local edge storage", zap.String("path", r.path))
	r.db = db
	return db, nil
}

// Load retrieves every locally stored edge ordered by creation time
func (r *LevelDBEdgeRepository) Load(ctx context.Context) ([]entity.Edge, bool, error) {
	db, err := r.open()
	if err != nil {
		return nil, false, err
	}

	initialized, err := db.Has([]byte(initializedKey), nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read local edge metadata: %w", err)
	}

	iter := db.NewIterator(util.BytesPrefix([]byte(edgeKeyPrefix)), nil)
	defer iter.Release()

	edges := make([]entity.Edge, 0)
	for iter.Next() {
		var edge entity.Edge
		if err := json.Unmarshal(iter.Value(), &edge); err != nil {
			r.logger.Warn("Skipping unreadable local edge",
				zap.ByteString("key", iter.Key()),
				zap.Error(err))
			continue
		}
		edges = append(edges, edge)
	}
	if err := iter.Error(); err != nil {
		return nil, false, fmt.Errorf("failed to iterate local edges: %w", err)
	}

	sort.SliceStable(edges, func(i, j int) bool {
		return edges[i].CreatedAt.Before(edges[j].CreatedAt)
	})
	return edges, initialized || len(edges) > 0, nil
}

// Put stores or replaces an edge
func (r *LevelDBEdgeRepository) Put(ctx context.Context, edge entity.Edge) error {
	db, err := r.open()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(edge)
	if err != nil {
		return fmt.Errorf("failed to encode edge: %w", err)
	}
	batch := new(leveldb.Batch)
	batch.Put([]byte(edgeKeyPrefix+edge.ID), raw)
	batch.Put([]byte(initializedKey), []byte{1})
	if err := db.Write(batch, nil); err != nil {
		return fmt.Errorf("failed to store edge: %w", err)
	}
	return nil
}

// Remove deletes an edge by id; removing an unknown id is not an error
func (r *LevelDBEdgeRepository) Remove(ctx context.Context, id string) error {
	db, err := r.open()
	if err != nil {
		return err
	}

	batch := new(leveldb.Batch)
	batch.Delete([]byte(edgeKeyPrefix + id))
	batch.Put([]byte(initializedKey), []byte{1})
	if err := db.Write(batch, nil); err != nil {
		return fmt.Errorf("failed to remove edge: %w", err)
	}
	return nil
}

// Close closes the database if it was opened
func (r *LevelDBEdgeRepository) Close() error {
	r.Lock()
	defer r.Unlock()

	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}
