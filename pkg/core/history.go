package core

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"
)

// AspectHistory is the ordered version sequence of one aspect. Rows[0] is the
// comparison baseline (synthetic or fetched); every later row is a change.
type AspectHistory struct {
	Aspect string
	Rows   []AspectRow
}

// historyMerger turns a window of raw rows into diffable per-aspect sequences.
type historyMerger struct {
	store  Store
	logger *slog.Logger
}

// versionRank orders versions chronologically: the baseline first, then the
// archived versions, then version 0 which always holds the newest value.
func versionRank(v int64) int64 {
	if v == LatestVersion {
		return math.MaxInt64
	}
	return v
}

// sortRows orders rows by (createdAt, version) so rows sharing an instant are kept.
func sortRows(rows []AspectRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.Before(rows[j].CreatedAt)
		}
		return versionRank(rows[i].Version) < versionRank(rows[j].Version)
	})
}

// Merge issues one range query for all aspects and at most one point query per
// aspect needing backward extension. Aspects without rows in the window yield
// no history.
func (m *historyMerger) Merge(ctx context.Context, entityID string, aspects []string, start, end time.Time) ([]AspectHistory, error) {
	if len(aspects) == 0 {
		return nil, nil
	}

	rows, err := m.store.GetAspectsInRange(ctx, entityID, aspects, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: range query: %w", ErrStore, err)
	}

	wanted := make(map[string]bool, len(aspects))
	for _, a := range aspects {
		wanted[a] = true
	}
	partitions := make(map[string][]AspectRow)
	for _, row := range rows {
		if !wanted[row.Aspect] {
			continue
		}
		partitions[row.Aspect] = append(partitions[row.Aspect], row)
	}
	if len(partitions) == 0 {
		return nil, nil
	}

	present := make([]string, 0, len(partitions))
	for a := range partitions {
		present = append(present, a)
	}
	sort.Strings(present)

	nextVersions, err := m.store.GetNextVersions(ctx, entityID, present)
	if err != nil {
		return nil, fmt.Errorf("%w: next versions: %w", ErrStore, err)
	}

	histories := make([]AspectHistory, 0, len(present))
	for _, aspect := range present {
		seq := partitions[aspect]
		sortRows(seq)

		baseline, err := m.baseline(ctx, entityID, aspect, seq[0], nextVersions)
		if err != nil {
			return nil, err
		}
		histories = append(histories, AspectHistory{
			Aspect: aspect,
			Rows:   append([]AspectRow{baseline}, seq...),
		})
	}
	return histories, nil
}

// baseline picks the row the oldest in-window row is compared against.
func (m *historyMerger) baseline(ctx context.Context, entityID, aspect string, oldest AspectRow, nextVersions map[string]int64) (AspectRow, error) {
	next, known := nextVersions[aspect]

	beginning := oldest.Version == 1 ||
		(oldest.Version == LatestVersion && (!known || next <= 1))
	if beginning {
		return Baseline(aspect), nil
	}

	preceding := oldest.Version - 1
	if oldest.Version == LatestVersion {
		preceding = next - 1
	}

	if m.logger != nil {
		m.logger.Debug("extending history backwards", "aspect", aspect, "version", preceding)
	}

	row, err := m.store.GetAspect(ctx, entityID, aspect, preceding)
	if err != nil {
		return AspectRow{}, fmt.Errorf("%w: aspect %s version %d: %w", ErrStore, aspect, preceding, err)
	}
	return row, nil
}
