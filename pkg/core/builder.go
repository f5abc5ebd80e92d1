package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/wI2L/jsondiff"
)

// txGroup holds every fragment produced at one chronological instant, across aspects.
type txGroup struct {
	at           time.Time
	transactions []ChangeTransaction
}

// transactionBuilder pairs consecutive versions and dispatches them to differs.
type transactionBuilder struct {
	differs *DifferRegistry
	logger  *slog.Logger
}

type buildRequest struct {
	entityType     string
	entityID       string
	categories     []Category
	includeRawDiff bool
}

// Build diffs every consecutive pair of every history and groups the resulting
// fragments by the instant of the newer row. Groups are returned oldest first;
// instants where no differ applied produce no group.
func (b *transactionBuilder) Build(req buildRequest, histories []AspectHistory) ([]*txGroup, error) {
	groups := make(map[int64]*txGroup)

	for _, h := range histories {
		for i := 1; i < len(h.Rows); i++ {
			prev, curr := h.Rows[i-1], h.Rows[i]

			patch, err := structuralDiff(prev, curr)
			if err != nil {
				return nil, err
			}

			changeType := ChangeUpsert
			if prev.IsBaseline() {
				changeType = ChangeCreate
			}

			for _, category := range req.categories {
				differ, ok := b.differs.Lookup(req.entityType, category, h.Aspect)
				if !ok {
					continue
				}

				in := DiffInput{
					Previous:       prev,
					Current:        curr,
					Category:       category,
					Patch:          patch,
					ChangeType:     changeType,
					Target:         req.entityID,
					IncludeRawDiff: req.includeRawDiff,
				}

				tx, derr := invokeDiffer(differ, in)
				if derr != nil {
					if b.logger != nil {
						b.logger.Warn("differ failed",
							"aspect", h.Aspect,
							"category", category,
							"version", curr.Version,
							"kind", derr.Kind,
							"error", derr.Message,
						)
					}
					tx = exceptional(in, derr)
				}

				tx.Timestamp = curr.CreatedAt
				tx.SemanticVersion = ""
				tx.ChangeType = changeType
				tx.Aspect = h.Aspect
				tx.Category = category

				key := curr.CreatedAt.UnixMilli()
				g, ok := groups[key]
				if !ok {
					g = &txGroup{at: curr.CreatedAt}
					groups[key] = g
				}
				g.transactions = append(g.transactions, tx)
			}
		}
	}

	ordered := make([]*txGroup, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].at.Before(ordered[j].at)
	})
	return ordered, nil
}

// exceptional builds the fragment substituted for a failed differ.
func exceptional(in DiffInput, derr *DiffError) ChangeTransaction {
	return ChangeTransaction{
		Severity: SeverityExceptional,
		ChangeEvents: []ChangeEvent{{
			Description: derr.Error(),
			Category:    in.Category,
			Target:      in.Target,
		}},
	}
}

var emptyDocument = []byte("{}")

// document returns the JSON the row contributes to a diff. The baseline and
// empty payloads count as the empty document.
func document(r AspectRow) ([]byte, error) {
	if r.IsBaseline() {
		return emptyDocument, nil
	}
	trimmed := bytes.TrimSpace(r.Payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return emptyDocument, nil
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("%w: aspect %s version %d", ErrPayloadMalformed, r.Aspect, r.Version)
	}
	return trimmed, nil
}

// structuralDiff computes the JSON Patch turning prev into curr.
func structuralDiff(prev, curr AspectRow) (Patch, error) {
	src, err := document(prev)
	if err != nil {
		return nil, err
	}
	tgt, err := document(curr)
	if err != nil {
		return nil, err
	}

	patch, err := jsondiff.CompareJSON(src, tgt)
	if err != nil {
		return nil, fmt.Errorf("%w: aspect %s version %d: %w", ErrPayloadMalformed, curr.Aspect, curr.Version, err)
	}
	return patch, nil
}
