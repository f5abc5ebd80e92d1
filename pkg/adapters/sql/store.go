// Package sql implements core.Store on a relational aspect table through gorm.
//
// The table follows the metadata_aspect_v2 layout: one row per
// (urn, aspect, version) with the payload in a JSON column and the creation
// time in createdon. Version 0 holds the latest value.
package sql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aretw0/timeline/pkg/core"
)

// Supported dialects.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// AspectRecord is one stored aspect version.
type AspectRecord struct {
	URN       string         `gorm:"column:urn;type:varchar(500);primaryKey"`
	Aspect    string         `gorm:"column:aspect;type:varchar(200);primaryKey"`
	Version   int64          `gorm:"column:version;primaryKey;autoIncrement:false"`
	Metadata  datatypes.JSON `gorm:"column:metadata;not null"`
	CreatedOn time.Time      `gorm:"column:createdon;not null;index"`
}

func (AspectRecord) TableName() string { return "metadata_aspect_v2" }

// Config holds the configuration for the SQL store.
type Config struct {
	Dialect string
	DSN     string
	// Migrate creates or updates the aspect table on open.
	Migrate  bool
	ReadOnly bool
	Logger   *slog.Logger
}

// Store implements core.Store and core.AspectWriter using gorm.
type Store struct {
	db      *gorm.DB
	dialect string
	logger  *slog.Logger

	mu       sync.RWMutex
	readOnly bool
}

// Open connects to the database named by cfg.
func Open(cfg Config) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Dialect {
	case DialectPostgres:
		dialector = postgres.Open(cfg.DSN)
	case DialectSQLite:
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: unsupported sql dialect %q", core.ErrInvalidConfig, cfg.Dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   newGormLogger(cfg.Logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Dialect, err)
	}

	if cfg.Migrate {
		if err := db.AutoMigrate(&AspectRecord{}); err != nil {
			return nil, fmt.Errorf("failed to migrate aspect table: %w", err)
		}
	}

	s := NewStore(db, cfg.Logger)
	s.dialect = cfg.Dialect
	s.readOnly = cfg.ReadOnly
	return s, nil
}

// NewStore wraps an existing connection.
func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	return &Store{db: db, dialect: db.Dialector.Name(), logger: logger}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetAspectsInRange implements core.Store.
func (s *Store) GetAspectsInRange(ctx context.Context, entityID string, aspects []string, start, end time.Time) ([]core.AspectRow, error) {
	if len(aspects) == 0 {
		return nil, nil
	}

	var recs []AspectRecord
	err := s.db.WithContext(ctx).
		Where("urn = ? AND aspect IN ? AND createdon >= ? AND createdon <= ?", entityID, aspects, start.UTC(), end.UTC()).
		Order("aspect").Order("version").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("range query: %w", err)
	}

	rows := make([]core.AspectRow, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, r.row())
	}
	return rows, nil
}

// GetNextVersions implements core.Store.
func (s *Store) GetNextVersions(ctx context.Context, entityID string, aspects []string) (map[string]int64, error) {
	out := make(map[string]int64, len(aspects))
	if len(aspects) == 0 {
		return out, nil
	}

	var results []struct {
		Aspect     string
		MaxVersion int64
	}
	err := s.db.WithContext(ctx).
		Model(&AspectRecord{}).
		Select("aspect, MAX(version) AS max_version").
		Where("urn = ? AND aspect IN ?", entityID, aspects).
		Group("aspect").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("next version query: %w", err)
	}

	for _, r := range results {
		out[r.Aspect] = r.MaxVersion + 1
	}
	return out, nil
}

// GetAspect implements core.Store.
func (s *Store) GetAspect(ctx context.Context, entityID, aspect string, version int64) (core.AspectRow, error) {
	var rec AspectRecord
	err := s.db.WithContext(ctx).
		Where("urn = ? AND aspect = ? AND version = ?", entityID, aspect, version).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.AspectRow{}, fmt.Errorf("%s/%s@%d: %w", entityID, aspect, version, core.ErrAspectNotFound)
	}
	if err != nil {
		return core.AspectRow{}, fmt.Errorf("aspect query: %w", err)
	}
	return rec.row(), nil
}

// PutAspect implements core.AspectWriter. Archiving the previous latest row
// and replacing it happen in one transaction.
func (s *Store) PutAspect(ctx context.Context, entityID, aspect string, payload []byte, at time.Time) (int64, error) {
	if s.IsReadOnly() {
		return 0, fmt.Errorf("cannot write %s/%s: %w", entityID, aspect, core.ErrReadOnly)
	}
	if !json.Valid(payload) {
		return 0, fmt.Errorf("%w: payload for %s/%s is not valid json", core.ErrPayloadMalformed, entityID, aspect)
	}

	var archived int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if s.dialect == DialectPostgres {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var current AspectRecord
		err := q.
			Where("urn = ? AND aspect = ? AND version = ?", entityID, aspect, core.LatestVersion).
			Take(&current).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&AspectRecord{
				URN:       entityID,
				Aspect:    aspect,
				Version:   core.LatestVersion,
				Metadata:  datatypes.JSON(payload),
				CreatedOn: at.UTC(),
			}).Error
		case err != nil:
			return err
		}

		var highest int64
		if err := tx.Model(&AspectRecord{}).
			Select("COALESCE(MAX(version), 0)").
			Where("urn = ? AND aspect = ?", entityID, aspect).
			Scan(&highest).Error; err != nil {
			return err
		}
		archived = highest + 1

		current.Version = archived
		if err := tx.Create(&current).Error; err != nil {
			return err
		}
		return tx.Model(&AspectRecord{}).
			Where("urn = ? AND aspect = ? AND version = ?", entityID, aspect, core.LatestVersion).
			Updates(map[string]any{
				"metadata":  datatypes.JSON(payload),
				"createdon": at.UTC(),
			}).Error
	})
	if err != nil {
		return 0, fmt.Errorf("put aspect %s/%s: %w", entityID, aspect, err)
	}

	if s.logger != nil {
		s.logger.Debug("aspect written", "entity", entityID, "aspect", aspect, "archived_version", archived)
	}
	return archived, nil
}

// Insert upserts rows verbatim, bypassing the latest-at-zero discipline.
// It is meant for imports and fixtures.
func (s *Store) Insert(ctx context.Context, entityID string, rows ...core.AspectRow) error {
	if s.IsReadOnly() {
		return fmt.Errorf("cannot insert into %s: %w", entityID, core.ErrReadOnly)
	}
	if len(rows) == 0 {
		return nil
	}

	recs := make([]AspectRecord, 0, len(rows))
	for _, r := range rows {
		payload := r.Payload
		if len(payload) == 0 {
			payload = json.RawMessage("{}")
		}
		recs = append(recs, AspectRecord{
			URN:       entityID,
			Aspect:    r.Aspect,
			Version:   r.Version,
			Metadata:  datatypes.JSON(payload),
			CreatedOn: r.CreatedAt.UTC(),
		})
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&recs).Error
}

// IsReadOnly reports whether writes are rejected.
func (s *Store) IsReadOnly() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readOnly
}

// SetReadOnly toggles write rejection at runtime.
func (s *Store) SetReadOnly(readOnly bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readOnly = readOnly
}

func (r AspectRecord) row() core.AspectRow {
	return core.AspectRow{
		Aspect:    r.Aspect,
		Version:   r.Version,
		CreatedAt: r.CreatedOn,
		Payload:   json.RawMessage(r.Metadata),
	}
}

var _ core.Store = (*Store)(nil)
var _ core.AspectWriter = (*Store)(nil)
