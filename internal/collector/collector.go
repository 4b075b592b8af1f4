// Package collector gathers facility data from the upstream sources and
// normalizes it into one deduplicated snapshot per reload run.
package collector

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"facreg/internal/facility/models"
)

// Source is one upstream feed of facility records.
type Source interface {
	Name() string
	Collect(ctx context.Context) ([]models.CollectedFacility, error)
}

// Collector fans in every configured source. Sources run concurrently; one
// failed source fails the whole collection, since a partial snapshot would
// push every absent facility toward the graveyard.
type Collector struct {
	sources   []Source
	reference *ReferenceSource
	logger    *slog.Logger
}

// New assembles a collector from explicit sources. The reference source is
// optional and only enriches records produced by the others.
func New(sources []Source, reference *ReferenceSource, logger *slog.Logger) *Collector {
	return &Collector{sources: sources, reference: reference, logger: logger}
}

// FromManifest builds a collector with the standard source set. The caller
// owns the returned *sql.DB and should close it on shutdown; it is nil when
// the manifest configures no warehouse.
func FromManifest(m Manifest, logger *slog.Logger) (*Collector, *sql.DB, error) {
	httpClient := &http.Client{Timeout: 60 * time.Second}

	var sources []Source
	for _, cfg := range m.Geospatial {
		src, err := NewGeospatialSource(cfg, httpClient)
		if err != nil {
			return nil, nil, fmt.Errorf("configure geospatial source %s: %w", cfg.Name, err)
		}
		sources = append(sources, src)
	}

	var db *sql.DB
	if m.Warehouse.DSN != "" {
		var err error
		db, err = sql.Open(m.Warehouse.Driver, m.Warehouse.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open warehouse: %w", err)
		}
		sources = append(sources, NewWarehouseSource(db))
	}
	if m.Cemeteries.URL != "" {
		sources = append(sources, NewCemeteriesSource(m.Cemeteries.URL, httpClient))
	}

	var reference *ReferenceSource
	if m.Reference.Path != "" {
		reference = NewReferenceSource(m.Reference.Path)
	}

	return New(sources, reference, logger), db, nil
}

// CollectFacilities runs every source, applies reference enrichment, dedupes
// by id keeping the first occurrence in source order, and sorts by id.
func (c *Collector) CollectFacilities(ctx context.Context) ([]models.CollectedFacility, error) {
	results := make([][]models.CollectedFacility, len(c.sources))
	var reference map[string]Reference

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range c.sources {
		i, src := i, src
		g.Go(func() error {
			start := time.Now()
			out, err := src.Collect(gctx)
			if err != nil {
				return fmt.Errorf("collect %s: %w", src.Name(), err)
			}
			c.logger.InfoContext(gctx, "source collected",
				"source", src.Name(),
				"count", len(out),
				"duration_ms", time.Since(start).Milliseconds(),
			)
			results[i] = out
			return nil
		})
	}
	if c.reference != nil {
		g.Go(func() error {
			ref, err := c.reference.Load(gctx)
			if err != nil {
				return fmt.Errorf("load reference file: %w", err)
			}
			reference = ref
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var collected []models.CollectedFacility
	for _, batch := range results {
		for _, cf := range batch {
			if _, dup := seen[cf.ID]; dup {
				c.logger.WarnContext(ctx, "duplicate facility id across sources", "id", cf.ID)
				continue
			}
			seen[cf.ID] = struct{}{}
			if ref, ok := reference[cf.ID]; ok {
				applyReference(&cf.Attributes, ref)
			}
			collected = append(collected, cf)
		}
	}
	sort.Slice(collected, func(i, j int) bool { return collected[i].ID < collected[j].ID })
	return collected, nil
}

func applyReference(attrs *models.Attributes, ref Reference) {
	if attrs.Website == "" && ref.Website != "" {
		attrs.Website = ref.Website
	}
	if attrs.Mobile == nil && ref.Mobile != nil {
		attrs.Mobile = ref.Mobile
	}
}
