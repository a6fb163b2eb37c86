package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ens-identity-graph/internal/domain/entity"
	"ens-identity-graph/internal/domain/repository"
	domain_service "ens-identity-graph/internal/domain/service"
	"ens-identity-graph/internal/infrastructure/logger"
	"ens-identity-graph/internal/infrastructure/metrics"

	"go.uber.org/zap"
)

var (
	// ErrInvalidEdge is returned when source or target is empty
	ErrInvalidEdge = errors.New("source and target are required")

	// ErrEdgeNotFound is returned when deleting an id that is not in the view
	ErrEdgeNotFound = errors.New("edge not found")

	// ErrEdgePending is returned when deleting an edge whose creation is still in flight
	ErrEdgePending = errors.New("edge is still being saved")

	// ErrPersistenceFailed is returned after an optimistic change was rolled back
	ErrPersistenceFailed = errors.New("failed to persist edge change")
)

// edgeLoadTimeout bounds the initial backend load
const edgeLoadTimeout = 10 * time.Second

// StoreMode tells where the edge store keeps its data for the rest of the session
type StoreMode int32

const (
	ModeUninitialized StoreMode = iota
	ModePersistent
	ModeLocalFallback
)

func (m StoreMode) String() string {
	switch m {
	case ModePersistent:
		return "persistent"
	case ModeLocalFallback:
		return "local"
	default:
		return "uninitialized"
	}
}

// EdgeStore keeps an in-memory view of the edge set, applies mutations to it
// optimistically and reconciles them with the durable backend, rolling back the
// exact change on failure. When the backend is missing or fails on first load the
// store switches to local storage for the rest of the session.
type EdgeStore struct {
	loadMu sync.Mutex
	mu     sync.Mutex
	mode   StoreMode
	edges  []entity.Edge

	backend   repository.EdgeRepository
	local     repository.LocalEdgeRepository
	publisher domain_service.EdgeEventPublisher

	seq         atomic.Uint64
	now         func() time.Time
	loadTimeout time.Duration
	logger      *logger.Logger
}

// NewEdgeStore creates an uninitialized store. backend, local and publisher may be nil.
func NewEdgeStore(
	backend repository.EdgeRepository,
	local repository.LocalEdgeRepository,
	publisher domain_service.EdgeEventPublisher,
	logger *logger.Logger,
) *EdgeStore {
	return &EdgeStore{
		backend:     backend,
		local:       local,
		publisher:   publisher,
		now:         time.Now,
		loadTimeout: edgeLoadTimeout,
		logger:      logger.WithComponent("edge-store"),
	}
}

// Mode reports the current store mode
func (s *EdgeStore) Mode() StoreMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// ListEdges returns a copy of the current view, loading it on first use
func (s *EdgeStore) ListEdges(ctx context.Context) []entity.Edge {
	s.ensureLoaded(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.Edge(nil), s.edges...)
}

// AddEdge appends a pending edge immediately and confirms it with the backend.
// On backend failure the pending edge is removed again.
func (s *EdgeStore) AddEdge(ctx context.Context, source, target string) (entity.Edge, error) {
	source = strings.TrimSpace(source)
	target = strings.TrimSpace(target)
	if source == "" || target == "" {
		return entity.Edge{}, ErrInvalidEdge
	}

	s.ensureLoaded(ctx)

	optimistic := entity.Edge{
		ID:        s.nextTempID(),
		Source:    source,
		Target:    target,
		CreatedAt: s.now().UTC(),
		Pending:   true,
	}

	s.mu.Lock()
	mode := s.mode
	if mode == ModeLocalFallback {
		optimistic.Pending = false
	}
	s.edges = append(s.edges, optimistic)
	s.mu.Unlock()

	if mode == ModeLocalFallback {
		s.putLocal(ctx, optimistic)
		metrics.RecordEdgeMutation("add", "local")
		s.publish(ctx, entity.EdgeCreated, optimistic)
		return optimistic, nil
	}

	created, err := s.backend.Create(ctx, source, target)
	if err != nil {
		s.mu.Lock()
		s.removeLocked(optimistic.ID)
		s.mu.Unlock()

		metrics.RecordEdgeMutation("add", "rollback")
		s.logger.Warn("Edge creation failed, rolled back",
			zap.String("source", source),
			zap.String("target", target),
			zap.Error(err))
		return entity.Edge{}, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	s.mu.Lock()
	if i := s.indexLocked(optimistic.ID); i >= 0 {
		s.edges[i] = created
	} else {
		s.edges = append(s.edges, created)
	}
	s.mu.Unlock()

	metrics.RecordEdgeMutation("add", "success")
	s.publish(ctx, entity.EdgeCreated, created)
	return created, nil
}

// DeleteEdge removes an edge immediately and confirms the deletion with the backend.
// On backend failure the removed edge is put back unchanged.
func (s *EdgeStore) DeleteEdge(ctx context.Context, id string) error {
	s.ensureLoaded(ctx)

	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrEdgeNotFound
	}
	removed := s.edges[i]
	if removed.Pending {
		s.mu.Unlock()
		return ErrEdgePending
	}
	s.removeLocked(id)
	mode := s.mode
	s.mu.Unlock()

	if mode == ModeLocalFallback {
		s.removeLocal(ctx, id)
		metrics.RecordEdgeMutation("delete", "local")
		s.publish(ctx, entity.EdgeDeleted, removed)
		return nil
	}

	err := s.backend.Delete(ctx, id)
	if errors.Is(err, repository.ErrEdgeNotFound) {
		s.logger.Info("Edge already absent from backend", zap.String("id", id))
		err = nil
	}
	if err != nil {
		s.mu.Lock()
		s.edges = append(s.edges, removed)
		s.mu.Unlock()

		metrics.RecordEdgeMutation("delete", "rollback")
		s.logger.Warn("Edge deletion failed, rolled back", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	metrics.RecordEdgeMutation("delete", "success")
	s.publish(ctx, entity.EdgeDeleted, removed)
	return nil
}

// ensureLoaded performs the one-time Uninitialized -> Persistent|LocalFallback transition.
// The load is detached from the caller's cancellation so an abandoned request
// cannot pin the session to local storage.
func (s *EdgeStore) ensureLoaded(ctx context.Context) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	if s.Mode() != ModeUninitialized {
		return
	}

	ctx = context.WithoutCancel(ctx)
	if s.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.loadTimeout)
		defer cancel()
	}

	if s.backend != nil {
		edges, err := s.backend.List(ctx)
		if err == nil {
			s.mu.Lock()
			s.edges = append(edges[:0:0], edges...)
			s.mode = ModePersistent
			s.mu.Unlock()
			s.logger.Info("Loaded edges from durable backend", zap.Int("count", len(edges)))
			return
		}
		s.logger.Warn("Durable edge backend unavailable, switching to local storage", zap.Error(err))
	} else {
		s.logger.Info("No durable edge backend configured, using local storage")
	}

	edges := s.loadLocal(ctx)

	s.mu.Lock()
	s.edges = edges
	s.mode = ModeLocalFallback
	s.mu.Unlock()
}

func (s *EdgeStore) loadLocal(ctx context.Context) []entity.Edge {
	if s.local != nil {
		edges, initialized, err := s.local.Load(ctx)
		if err != nil {
			s.logger.Warn("Local edge storage unavailable", zap.Error(err))
		} else if initialized {
			s.logger.Info("Loaded edges from local storage", zap.Int("count", len(edges)))
			return edges
		}
	}

	seed := DemoEdges()
	for _, edge := range seed {
		s.putLocal(ctx, edge)
	}
	s.logger.Info("Seeded demo edges", zap.Int("count", len(seed)))
	return seed
}

func (s *EdgeStore) putLocal(ctx context.Context, edge entity.Edge) {
	if s.local == nil {
		return
	}
	if err := s.local.Put(ctx, edge); err != nil {
		s.logger.Warn("Failed to store edge locally", zap.String("id", edge.ID), zap.Error(err))
	}
}

func (s *EdgeStore) removeLocal(ctx context.Context, id string) {
	if s.local == nil {
		return
	}
	if err := s.local.Remove(ctx, id); err != nil {
		s.logger.Warn("Failed to remove local edge", zap.String("id", id), zap.Error(err))
	}
}

func (s *EdgeStore) publish(ctx context.Context, eventType entity.EdgeEventType, edge entity.Edge) {
	if s.publisher == nil {
		return
	}
	event := entity.EdgeEvent{Type: eventType, Edge: edge, OccurredAt: s.now().UTC()}
	if err := s.publisher.PublishEdgeEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish edge event",
			zap.String("type", string(eventType)),
			zap.String("id", edge.ID),
			zap.Error(err))
	}
}

func (s *EdgeStore) nextTempID() string {
	return fmt.Sprintf("tmp-%d-%d", s.now().UnixNano(), s.seq.Add(1))
}

func (s *EdgeStore) indexLocked(id string) int {
	for i := range s.edges {
		if s.edges[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *EdgeStore) removeLocked(id string) {
	i := s.indexLocked(id)
	if i < 0 {
		return
	}
	edges := make([]entity.Edge, 0, len(s.edges)-1)
	edges = append(edges, s.edges[:i]...)
	s.edges = append(edges, s.edges[i+1:]...)
}

// DemoEdges returns the fixed edge set shown when no edge has ever been stored
func DemoEdges() []entity.Edge {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pairs := [][2]string{
		{"vitalik.eth", "nick.eth"},
		{"nick.eth", "brantly.eth"},
		{"brantly.eth", "vitalik.eth"},
		{"jefflau.eth", "nick.eth"},
		{"vitalik.eth", "balajis.eth"},
	}

	edges := make([]entity.Edge, len(pairs))
	for i, p := range pairs {
		edges[i] = entity.Edge{
			ID:        fmt.Sprintf("demo-%d", i+1),
			Source:    p[0],
			Target:    p[1],
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
	}
	return edges
}
