// Package reload reconciles collected upstream facility data against the
// canonical registry. A run classifies every facility as created, updated,
// revived, missing, or removed, enforces the graveyard grace window, and
// produces an auditable report.
package reload

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"facreg/internal/facility/cache"
	"facreg/internal/facility/merge"
	"facreg/internal/facility/models"
	overlaymodels "facreg/internal/overlay/models"
	"facreg/internal/platform/metrics"
	"facreg/pkg/domain"
	dErrors "facreg/pkg/domain-errors"
)

const defaultWorkers = 8

// Collector produces the normalized upstream snapshot for one run.
type Collector interface {
	CollectFacilities(ctx context.Context) ([]models.CollectedFacility, error)
}

// FacilityStore is the live registry as the engine needs it.
type FacilityStore interface {
	Get(ctx context.Context, key domain.FacilityKey) (*models.FacilityRecord, error)
	Save(ctx context.Context, rec models.FacilityRecord) error
	Delete(ctx context.Context, key domain.FacilityKey) error
	AllKeys(ctx context.Context) ([]domain.FacilityKey, error)
}

// GraveyardStore holds facilities purged from the live registry.
type GraveyardStore interface {
	Get(ctx context.Context, key domain.FacilityKey) (*models.GraveyardRecord, error)
	Save(ctx context.Context, rec models.GraveyardRecord) error
	Delete(ctx context.Context, key domain.FacilityKey) error
	All(ctx context.Context) ([]models.GraveyardRecord, error)
}

// OverlayStore exposes the administrator overlay to the merge step.
type OverlayStore interface {
	Get(ctx context.Context, key domain.FacilityKey) (*overlaymodels.Overlay, error)
	Save(ctx context.Context, ov overlaymodels.Overlay) error
}

// Engine runs the reconcile-and-merge pass. It owns no HTTP concerns; the
// management handler calls Reload (or Process, for uploaded snapshots) and
// renders the resulting report.
type Engine struct {
	collector  Collector
	facilities FacilityStore
	graveyard  GraveyardStore
	overlays   OverlayStore
	validator  Validator
	policy     GraveyardPolicy
	cache      *cache.Cache
	logger     *slog.Logger
	metrics    *metrics.Metrics
	clock      func() time.Time
	workers    int
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source, letting tests pin the grace window.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithWorkers bounds the number of concurrent per-facility reconcilers.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithPolicy overrides the graveyard policy.
func WithPolicy(p GraveyardPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithCache attaches the read cache so a completed run can flush it.
func WithCache(c *cache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

func NewEngine(
	collector Collector,
	facilities FacilityStore,
	graveyard GraveyardStore,
	overlays OverlayStore,
	logger *slog.Logger,
	m *metrics.Metrics,
	opts ...Option,
) *Engine {
	e := &Engine{
		collector:  collector,
		facilities: facilities,
		graveyard:  graveyard,
		overlays:   overlays,
		logger:     logger,
		metrics:    m,
		clock:      time.Now,
		workers:    defaultWorkers,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reload collects a fresh upstream snapshot and reconciles it. The report is
// returned even when the run fails partway; the error tells the caller the
// report is partial.
func (e *Engine) Reload(ctx context.Context) (*Report, error) {
	report := StartReport(e.clock())
	collected, err := e.collector.CollectFacilities(ctx)
	if err != nil {
		report.MarkComplete(e.clock())
		e.metrics.ReloadRuns.WithLabelValues("failure").Inc()
		return report, dErrors.Wrap(err, dErrors.CodeInternal, "collect facilities")
	}
	return report, e.Process(ctx, collected, report)
}

// Process reconciles an already collected snapshot against the registry.
// Collected facilities are handled by a bounded worker pool; the missing
// pass runs afterwards, sequentially, against a key snapshot taken before
// any write. Every lifecycle decision in the run uses the same instant, the
// collection-complete timestamp.
func (e *Engine) Process(ctx context.Context, collected []models.CollectedFacility, report *Report) (err error) {
	now := e.clock()
	report.MarkCompleteCollection(now)
	report.TotalFacilities = len(collected)
	e.logger.Info("facilities collected", "count", len(collected))

	defer func() {
		report.MarkComplete(e.clock())
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		e.metrics.ReloadRuns.WithLabelValues(outcome).Inc()
	}()

	priorKeys, err := e.facilities.AllKeys(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "snapshot facility keys")
	}

	type entry struct {
		key   domain.FacilityKey
		attrs models.Attributes
	}
	entries := make([]entry, 0, len(collected))
	collectedKeys := make(map[domain.FacilityKey]struct{}, len(collected))
	for _, cf := range collected {
		key, parseErr := domain.ParseFacilityKey(cf.ID)
		if parseErr != nil {
			e.logger.Error("cannot reconcile facility, id not understood", "id", cf.ID)
			report.AddProblem(cf.ID, "Cannot parse ID")
			continue
		}
		// A parseable id counts toward the missing computation even when
		// the record itself is rejected below.
		collectedKeys[key] = struct{}{}
		if cf.Attributes.Latitude == nil || cf.Attributes.Longitude == nil {
			e.logger.Error("cannot reconcile facility, coordinates are incomplete", "id", cf.ID)
			report.AddProblem(cf.ID, "Missing coordinates")
			continue
		}
		entries = append(entries, entry{key: key, attrs: cf.Attributes})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, en := range entries {
		en := en
		g.Go(func() error {
			return e.reconcileCollected(gctx, en.key, en.attrs, report, now)
		})
	}
	if err = g.Wait(); err != nil {
		return err
	}

	for _, key := range missingKeys(priorKeys, collectedKeys) {
		if err = e.processMissing(ctx, key, report, now); err != nil {
			return err
		}
	}

	e.cache.InvalidateAll(ctx)
	e.updateGauges(ctx)
	return nil
}

// reconcileCollected classifies one collected facility and saves its merged
// record. Revival retains only the overlay-authored fields from the
// graveyard; everything else is repopulated from collected data.
func (e *Engine) reconcileCollected(
	ctx context.Context,
	key domain.FacilityKey,
	attrs models.Attributes,
	report *Report,
	now time.Time,
) error {
	id := key.String()

	existing, err := e.facilities.Get(ctx, key)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load facility "+id)
	}
	if existing != nil {
		report.AddUpdated(id)
		e.logger.Info("updating facility", "id", id)
		if err := e.updateAndSave(ctx, key, attrs, nil, report, now); err != nil {
			return err
		}
		e.metrics.FacilitiesReloaded.WithLabelValues("updated").Inc()
		return nil
	}

	zombie, err := e.graveyard.Get(ctx, key)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load graveyard record "+id)
	}
	if zombie != nil {
		report.AddRevived(id)
		e.logger.Warn("reviving facility", "id", id)
		if err := e.updateAndSave(ctx, key, attrs, carriedOverlay(zombie), report, now); err != nil {
			return err
		}
		if err := e.graveyard.Delete(ctx, key); err != nil {
			e.logger.Error("failed to delete facility from graveyard", "id", id, "error", err)
			report.AddProblem(id, "Failed to delete facility from graveyard: "+err.Error())
			return dErrors.Wrap(err, dErrors.CodeInternal, "delete graveyard record "+id)
		}
		e.metrics.FacilitiesReloaded.WithLabelValues("revived").Inc()
		return nil
	}

	report.AddCreated(id)
	e.logger.Info("creating facility", "id", id)
	if err := e.updateAndSave(ctx, key, attrs, nil, report, now); err != nil {
		return err
	}
	e.metrics.FacilitiesReloaded.WithLabelValues("created").Inc()
	return nil
}

// updateAndSave merges, validates, and persists one facility. Validation
// problems are recorded but never block the save; a failed save is recorded
// and aborts the run.
func (e *Engine) updateAndSave(
	ctx context.Context,
	key domain.FacilityKey,
	attrs models.Attributes,
	carried *overlaymodels.Overlay,
	report *Report,
	now time.Time,
) error {
	id := key.String()
	attrs.OperationalHoursSpecialInstructions = normalizeSpecialInstructions(attrs.OperationalHoursSpecialInstructions)

	ov, err := e.overlays.Get(ctx, key)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load overlay "+id)
	}
	if ov == nil && carried != nil {
		// Revival with no surviving overlay row: restore the carried
		// overlay so later reads and upserts see the authored state.
		ov = carried
		if err := e.overlays.Save(ctx, *carried); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "restore overlay "+id)
		}
	}

	merged := merge.Apply(attrs, ov)

	problems := e.validator.Validate(key, merged)
	if len(problems) > 0 {
		report.AddProblems(problems)
		e.metrics.ProblemsRecorded.Add(float64(len(problems)))
	}

	rec := buildRecord(key, merged, ov, now)
	if err := e.facilities.Save(ctx, rec); err != nil {
		e.logger.Error("failed to save facility record", "id", id, "error", err)
		report.AddProblem(id, "Failed to save record: "+err.Error())
		return dErrors.Wrap(err, dErrors.CodeInternal, "save facility record "+id)
	}
	return nil
}

// processMissing handles one facility absent from the collected snapshot.
// The missing timestamp is set exactly once, on the run that first notices
// the absence; later runs compare against it.
func (e *Engine) processMissing(ctx context.Context, key domain.FacilityKey, report *Report, now time.Time) error {
	id := key.String()

	rec, err := e.facilities.Get(ctx, key)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load facility "+id)
	}
	if rec == nil {
		return dErrors.Newf(dErrors.CodeInternal, "facility %s disappeared during reload", id)
	}

	if rec.MissingSince == nil {
		ms := now
		rec.MissingSince = &ms
	}

	if e.policy.Decide(*rec.MissingSince, now) == StayMissing {
		report.AddMissing(id)
		e.logger.Warn("marking facility as missing", "id", id)
		if err := e.facilities.Save(ctx, *rec); err != nil {
			e.logger.Error("failed to mark facility as missing", "id", id, "error", err)
			report.AddProblem(id, "Failed to mark facility as missing: "+err.Error())
			return dErrors.Wrap(err, dErrors.CodeInternal, "mark facility missing "+id)
		}
		e.metrics.FacilitiesReloaded.WithLabelValues("missing").Inc()
		return nil
	}

	report.AddRemoved(id)
	e.logger.Warn("moving facility to graveyard", "id", id)
	grave := models.GraveyardRecord{
		Key:              key,
		Attributes:       rec.Attributes,
		OperatingStatus:  rec.Attributes.OperatingStatus,
		DetailedServices: rec.Attributes.DetailedServices,
		OverlayServices:  rec.OverlayServices,
		MissingSince:     *rec.MissingSince,
		MovedAt:          now,
	}
	if err := e.graveyard.Save(ctx, grave); err != nil {
		e.logger.Error("failed to move facility to graveyard", "id", id, "error", err)
		report.AddProblem(id, "Failed to move facility to graveyard: "+err.Error())
		return dErrors.Wrap(err, dErrors.CodeInternal, "save graveyard record "+id)
	}
	if err := e.facilities.Delete(ctx, key); err != nil {
		e.logger.Error("failed to move facility to graveyard", "id", id, "error", err)
		report.AddProblem(id, "Failed to move facility to graveyard: "+err.Error())
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete facility "+id)
	}
	e.metrics.FacilitiesReloaded.WithLabelValues("removed").Inc()
	return nil
}

func (e *Engine) updateGauges(ctx context.Context) {
	if keys, err := e.facilities.AllKeys(ctx); err == nil {
		e.metrics.LiveFacilities.Set(float64(len(keys)))
	}
	if graves, err := e.graveyard.All(ctx); err == nil {
		e.metrics.GraveyardSize.Set(float64(len(graves)))
	}
}

// carriedOverlay rebuilds an overlay from the overlay-authored fields a
// graveyard record preserved. Nil when the record carried none.
func carriedOverlay(z *models.GraveyardRecord) *overlaymodels.Overlay {
	if z.OperatingStatus == nil && z.DetailedServices == nil {
		return nil
	}
	return &overlaymodels.Overlay{
		Key:              z.Key,
		OperatingStatus:  z.OperatingStatus,
		DetailedServices: z.DetailedServices,
		ActiveServiceIDs: z.OverlayServices,
	}
}

func buildRecord(key domain.FacilityKey, attrs models.Attributes, ov *overlaymodels.Overlay, now time.Time) models.FacilityRecord {
	rec := models.FacilityRecord{
		Key:             key,
		Services:        attrs.Services.All(),
		OverlayServices: merge.ActiveServiceIDs(ov),
		Attributes:      attrs,
		Visn:            attrs.Visn,
		LastUpdated:     now,
	}
	if attrs.Latitude != nil {
		rec.Latitude = *attrs.Latitude
	}
	if attrs.Longitude != nil {
		rec.Longitude = *attrs.Longitude
	}
	if p := attrs.Address.Physical; p != nil {
		rec.State = p.State
		rec.Zip = p.Zip
		if len(rec.Zip) > 5 {
			rec.Zip = rec.Zip[:5]
		}
	}
	if attrs.Mobile != nil {
		rec.Mobile = *attrs.Mobile
	}
	return rec
}

// missingKeys is the prior key snapshot minus every parseable collected id,
// in deterministic order.
func missingKeys(prior []domain.FacilityKey, collected map[domain.FacilityKey]struct{}) []domain.FacilityKey {
	var missing []domain.FacilityKey
	for _, key := range prior {
		if _, ok := collected[key]; !ok {
			missing = append(missing, key)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i].String() < missing[j].String() })
	return missing
}
