package solutionctx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fyrsmithlabs/dataverse-mcp/internal/dataverse"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultKey is the file name the context is persisted under.
const DefaultKey = ".mcp-dataverse"

var (
	// ErrCorrupted means the persisted context could not be decoded.
	ErrCorrupted = errors.New("solution context file is corrupted")

	// ErrNoResolver is returned by Set on a store opened without a Resolver.
	ErrNoResolver = errors.New("no dataverse connection configured")
)

// SolutionContext is the persisted active solution.
type SolutionContext struct {
	SolutionUniqueName   string    `json:"solutionUniqueName"`
	SolutionDisplayName  string    `json:"solutionDisplayName"`
	PublisherUniqueName  string    `json:"publisherUniqueName"`
	PublisherDisplayName string    `json:"publisherDisplayName"`
	CustomizationPrefix  string    `json:"customizationPrefix"`
	LastUpdated          time.Time `json:"lastUpdated"`
}

// Resolver looks up remote records. *dataverse.Client implements it.
type Resolver interface {
	SolutionByUniqueName(ctx context.Context, uniqueName string) (*dataverse.Solution, error)
	PublisherByID(ctx context.Context, id uuid.UUID) (*dataverse.Publisher, error)
}

// Store owns the single active SolutionContext.
type Store struct {
	kv       KVStore
	key      string
	resolver Resolver
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	current *SolutionContext
	loaded  bool
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides the key the context is stored under.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides time.Now for LastUpdated.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a Store. resolver may be nil for read and clear only use.
func NewStore(kv KVStore, resolver Resolver, opts ...Option) *Store {
	s := &Store{
		kv:       kv,
		key:      DefaultKey,
		resolver: resolver,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the key the context is stored under.
func (s *Store) Key() string {
	return s.key
}

// Set resolves the solution and its publisher, persists the resulting
// context and makes it current. On failure the previous context is kept.
func (s *Store) Set(ctx context.Context, solutionUniqueName string) (*SolutionContext, error) {
	if s.resolver == nil {
		return nil, ErrNoResolver
	}

	sol, err := s.resolver.SolutionByUniqueName(ctx, solutionUniqueName)
	if err != nil {
		return nil, err
	}

	pub := sol.Publisher
	if pub == nil || pub.UniqueName == "" {
		id, ok := sol.OwnerID()
		if !ok {
			return nil, fmt.Errorf("solution '%s' has no publisher", sol.UniqueName)
		}
		if pub, err = s.resolver.PublisherByID(ctx, id); err != nil {
			return nil, fmt.Errorf("resolve publisher of '%s': %w", sol.UniqueName, err)
		}
	}

	next := &SolutionContext{
		SolutionUniqueName:   sol.UniqueName,
		SolutionDisplayName:  sol.FriendlyName,
		PublisherUniqueName:  pub.UniqueName,
		PublisherDisplayName: pub.FriendlyName,
		CustomizationPrefix:  pub.CustomizationPrefix,
		LastUpdated:          s.now().UTC().Truncate(time.Second),
	}

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal solution context: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Write(s.key, data); err != nil {
		return nil, fmt.Errorf("persist solution context: %w", err)
	}
	s.current = next
	s.loaded = true

	s.logger.Info("solution context set",
		zap.String("solution", next.SolutionUniqueName),
		zap.String("publisher", next.PublisherUniqueName))

	out := *next
	return &out, nil
}

// Get returns the current context, or nil when none is set.
func (s *Store) Get(ctx context.Context) (*SolutionContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return nil, err
	}
	if s.current == nil {
		return nil, nil
	}
	out := *s.current
	return &out, nil
}

// Clear removes the persisted context and returns the one that was set,
// or nil. Clearing with nothing set is not an error.
func (s *Store) Clear(ctx context.Context) (*SolutionContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// a corrupted file is still removed
	if err := s.loadLocked(); err != nil && !errors.Is(err, ErrCorrupted) {
		return nil, err
	}
	prev := s.current

	if err := s.kv.Delete(s.key); err != nil {
		return nil, fmt.Errorf("remove solution context: %w", err)
	}
	s.current = nil
	s.loaded = true

	if prev != nil {
		s.logger.Info("solution context cleared", zap.String("solution", prev.SolutionUniqueName))
	}
	return prev, nil
}

// Reload discards the in-memory context and reads the persisted one again.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = false
	s.current = nil
	return s.loadLocked()
}

func (s *Store) loadLocked() error {
	if s.loaded {
		return nil
	}

	data, err := s.kv.Read(s.key)
	if errors.Is(err, ErrNotExist) {
		s.loaded = true
		return nil
	}
	if err != nil {
		return err
	}

	var sc SolutionContext
	if err := json.Unmarshal(data, &sc); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if sc.SolutionUniqueName == "" {
		return fmt.Errorf("%w: missing solutionUniqueName", ErrCorrupted)
	}

	s.current = &sc
	s.loaded = true
	return nil
}
