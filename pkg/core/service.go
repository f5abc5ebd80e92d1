package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

// DefaultLookback is the window used when a request leaves the start time unspecified.
const DefaultLookback = 7 * 24 * time.Hour

// UnspecifiedStart is the start time sentinel meaning "end minus lookback".
const UnspecifiedStart int64 = -1

// Request describes one timeline query.
type Request struct {
	EntityType string
	EntityID   string
	Categories []Category
	// StartTimeMillis of UnspecifiedStart selects EndTimeMillis - lookback.
	StartTimeMillis int64
	// EndTimeMillis of 0 selects the current time.
	EndTimeMillis int64
	// Version stamps are accepted but not resolved; the window is always time based.
	StartVersionStamp string
	EndVersionStamp   string
	IncludeRawDiff    bool
}

// Config holds the collaborators of a Service.
type Config struct {
	Store      Store
	Categories *CategoryRegistry
	Differs    *DifferRegistry
	Logger     *slog.Logger
	// Lookback defaults to DefaultLookback when zero.
	Lookback time.Duration
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Service builds change timelines. It holds no per-request state and is safe
// for concurrent use.
type Service struct {
	store      Store
	categories *CategoryRegistry
	differs    *DifferRegistry
	logger     *slog.Logger
	lookback   time.Duration
	now        func() time.Time
}

// NewService creates a new Service.
func NewService(cfg Config) *Service {
	s := &Service{
		store:      cfg.Store,
		categories: cfg.Categories,
		differs:    cfg.Differs,
		logger:     cfg.Logger,
		lookback:   cfg.Lookback,
		now:        cfg.Clock,
	}
	if s.categories == nil {
		s.categories = NewCategoryRegistry(nil)
	}
	if s.differs == nil {
		s.differs = NewDifferRegistry(nil)
	}
	if s.lookback <= 0 {
		s.lookback = DefaultLookback
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Window resolves the effective [start, end] of a request.
func (s *Service) Window(req Request) (time.Time, time.Time) {
	endMillis := req.EndTimeMillis
	if endMillis == 0 {
		endMillis = s.now().UnixMilli()
	}
	startMillis := req.StartTimeMillis
	if startMillis == UnspecifiedStart {
		startMillis = endMillis - s.lookback.Milliseconds()
	}
	return time.UnixMilli(startMillis), time.UnixMilli(endMillis)
}

// GetTimeline returns the change transactions of an entity within the request
// window, ordered by timestamp. Differ failures are reported in-band as
// EXCEPTIONAL transactions; any other failure aborts the request.
//
// Workflow:
//  1. Expand categories to aspect names (fails before any store access).
//  2. Merge the per-aspect history, extending each aspect back to a baseline.
//  3. Diff consecutive pairs and group fragments by instant.
//  4. Assign semantic versions group by group.
func (s *Service) GetTimeline(ctx context.Context, req Request) ([]ChangeTransaction, error) {
	if s.store == nil {
		return nil, errors.New("timeline service has no store")
	}

	categories := dedupeCategories(req.Categories)
	aspects, err := s.categories.Expand(req.EntityType, categories)
	if err != nil {
		return nil, err
	}

	start, end := s.Window(req)

	logger := s.logger
	if logger != nil {
		logger = logger.With("request_id", uuid.NewString(), "entity", req.EntityID)
		logger.Debug("building timeline",
			"entity_type", req.EntityType,
			"categories", categories,
			"aspects", aspects,
			"start", start,
			"end", end,
		)
		if req.StartVersionStamp != "" || req.EndVersionStamp != "" {
			logger.Debug("version stamps are not resolved, using time window",
				"start_version", req.StartVersionStamp,
				"end_version", req.EndVersionStamp,
			)
		}
	}

	merger := &historyMerger{store: s.store, logger: logger}
	histories, err := merger.Merge(ctx, req.EntityID, aspects, start, end)
	if err != nil {
		return nil, err
	}

	builder := &transactionBuilder{differs: s.differs, logger: logger}
	groups, err := builder.Build(buildRequest{
		entityType:     req.EntityType,
		entityID:       req.EntityID,
		categories:     categories,
		includeRawDiff: req.IncludeRawDiff,
	}, histories)
	if err != nil {
		return nil, err
	}

	assignVersions(groups)

	var out []ChangeTransaction
	for _, g := range groups {
		out = append(out, g.transactions...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	if logger != nil {
		logger.Debug("timeline built", "groups", len(groups), "transactions", len(out))
	}
	return out, nil
}

// Close releases the store when it holds resources (connections, watchers).
func (s *Service) Close() error {
	if c, ok := s.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Store returns the store the service reads from.
func (s *Service) Store() Store {
	return s.store
}

// Categories exposes the category registry.
func (s *Service) Categories() *CategoryRegistry {
	return s.categories
}

func dedupeCategories(in []Category) []Category {
	seen := make(map[Category]bool, len(in))
	out := make([]Category, 0, len(in))
	for _, c := range in {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
