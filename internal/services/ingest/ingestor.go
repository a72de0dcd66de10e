package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/ShipSight/internal/broker/messages"
	"github.com/BearBump/ShipSight/internal/integrations/classifier"
	"github.com/BearBump/ShipSight/internal/integrations/feed"
	"github.com/BearBump/ShipSight/internal/models"
	"github.com/pkg/errors"
)

type Repository interface {
	UpsertShipment(ctx context.Context, trackingID, origin, destination string) (uint64, error)
	UpdateDestination(ctx context.Context, trackingID, destination string) error
	LatestEvent(ctx context.Context, shipmentID uint64) (*models.ShipmentEvent, error)
	InsertEvent(ctx context.Context, e *models.ShipmentEvent) (uint64, error)
	ListUnclassified(ctx context.Context, limit int) ([]*models.ShipmentEvent, error)
	ListMissingClassification(ctx context.Context, limit int) ([]*models.ShipmentEvent, error)
	SetClassification(ctx context.Context, eventID uint64, status, reason *string) error
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

// Ingestor гоняет цикл: Fetch у источника, запись наблюдений, затем два
// прохода классификации поверх БД. Ошибки цикла логируются, цикл не
// останавливается.
type Ingestor struct {
	source   feed.Source
	repo     Repository
	cls      *classifier.Classifier
	producer Producer
	rl       RateLimiter

	topic string

	dedup Deduper

	interval        time.Duration
	errorBackoff    time.Duration
	backfillBatch   int
	paraphraseBatch int
	rateLimitPerMin int64

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalObservations   atomic.Int64
	totalInserted       atomic.Int64
	totalSuppressed     atomic.Int64
	totalClassified     atomic.Int64
	totalErrors         atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(source feed.Source, repo Repository, cls *classifier.Classifier, producer Producer, rl RateLimiter, topic string) *Ingestor {
	return &Ingestor{
		source: source, repo: repo, cls: cls, producer: producer, rl: rl, topic: topic,
		dedup:             DefaultDeduper(),
		interval:          60 * time.Second,
		errorBackoff:      10 * time.Second,
		backfillBatch:     1000,
		paraphraseBatch:   5,
		rateLimitPerMin:   30,
		triggerCh:         make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func (g *Ingestor) WithSettings(interval, errorBackoff time.Duration, backfillBatch, paraphraseBatch int, rlPerMin int64) *Ingestor {
	if interval > 0 {
		g.interval = interval
	}
	if errorBackoff > 0 {
		g.errorBackoff = errorBackoff
	}
	if backfillBatch > 0 {
		g.backfillBatch = backfillBatch
	}
	if paraphraseBatch > 0 {
		g.paraphraseBatch = paraphraseBatch
	}
	if rlPerMin > 0 {
		g.rateLimitPerMin = rlPerMin
	}
	return g
}

func (g *Ingestor) WithDeduper(d Deduper) *Ingestor {
	if d.Window > 0 {
		g.dedup.Window = d.Window
	}
	if d.DwellSpeedKnots > 0 {
		g.dedup.DwellSpeedKnots = d.DwellSpeedKnots
	}
	if d.DwellEpsilonDeg > 0 {
		g.dedup.DwellEpsilonDeg = d.DwellEpsilonDeg
	}
	if d.DwellStall > 0 {
		g.dedup.DwellStall = d.DwellStall
	}
	return g
}

// Trigger forces an immediate ingest cycle (best-effort, non-blocking).
func (g *Ingestor) Trigger() {
	g.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case g.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt         time.Time  `json:"startedAt"`
	LastCycleAt       *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt     *time.Time `json:"lastTriggerAt,omitempty"`
	TotalObservations int64      `json:"totalObservations"`
	TotalInserted     int64      `json:"totalInserted"`
	TotalSuppressed   int64      `json:"totalSuppressed"`
	TotalClassified   int64      `json:"totalClassified"`
	TotalErrors       int64      `json:"totalErrors"`
	LastError         string     `json:"lastError,omitempty"`
}

func (g *Ingestor) Stats() Stats {
	st := Stats{
		StartedAt:         time.Unix(0, g.startedAtUnixNano).UTC(),
		TotalObservations: g.totalObservations.Load(),
		TotalInserted:     g.totalInserted.Load(),
		TotalSuppressed:   g.totalSuppressed.Load(),
		TotalClassified:   g.totalClassified.Load(),
		TotalErrors:       g.totalErrors.Load(),
	}
	if n := g.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := g.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	g.lastErrorMu.Lock()
	st.LastError = g.lastError
	g.lastErrorMu.Unlock()
	return st
}

func (g *Ingestor) Run(ctx context.Context) error {
	t := time.NewTicker(g.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			g.runOnce(ctx)
		case <-g.triggerCh:
			g.runOnce(ctx)
		}
	}
}

func (g *Ingestor) runOnce(ctx context.Context) {
	g.lastCycleUnixNano.Store(time.Now().UTC().UnixNano())

	observations, err := g.source.Fetch(ctx)
	if err != nil {
		g.recordError(err)
		slog.Error("fetch observations", "error", err.Error())
		// Источнику плохо: не молотим впустую до следующего тика.
		select {
		case <-ctx.Done():
		case <-time.After(g.errorBackoff):
		}
		return
	}
	g.totalObservations.Add(int64(len(observations)))

	for _, obs := range observations {
		if err := g.processOne(ctx, obs); err != nil {
			g.recordError(err)
			slog.Error("process observation", "tracking_id", obs.TrackingID, "error", err.Error())
		}
	}

	g.backfillPass(ctx)
	g.paraphrasePass(ctx)
}

// processOne записывает одно наблюдение. Каждое наблюдение — отдельная
// единица отказа: сбой одного не валит остальные в цикле.
func (g *Ingestor) processOne(ctx context.Context, obs feed.Observation) error {
	if obs.TrackingID == "" {
		return errors.New("observation without tracking id")
	}

	if obs.Static {
		if _, err := g.repo.UpsertShipment(ctx, obs.TrackingID, obs.Origin, ""); err != nil {
			return errors.Wrap(err, "upsert shipment")
		}
		if err := g.repo.UpdateDestination(ctx, obs.TrackingID, obs.Destination); err != nil {
			return errors.Wrap(err, "update destination")
		}
		return nil
	}

	shipmentID, err := g.repo.UpsertShipment(ctx, obs.TrackingID, obs.Origin, obs.Destination)
	if err != nil {
		return errors.Wrap(err, "upsert shipment")
	}

	prev, err := g.repo.LatestEvent(ctx, shipmentID)
	if err != nil {
		return errors.Wrap(err, "latest event")
	}

	now := time.Now().UTC()
	decision := g.dedup.Decide(prev, obs, now)
	if decision == Suppress {
		g.totalSuppressed.Add(1)
		slog.Debug("duplicate position suppressed", "tracking_id", obs.TrackingID)
		return nil
	}

	ev := &models.ShipmentEvent{
		ShipmentID:    shipmentID,
		Timestamp:     obs.Timestamp,
		Location:      obs.Location,
		RawStatusText: obs.StatusText,
		Latitude:      obs.Latitude,
		Longitude:     obs.Longitude,
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = now
	}
	if ev.Location == "" && obs.Latitude != nil && obs.Longitude != nil {
		ev.Location = feed.CoordsLocation(obs.Name, *obs.Latitude, *obs.Longitude)
	}

	switch {
	case decision == InsertDelayed:
		ev.AIStatus = strPtr(models.StatusDelayed)
		ev.AIReason = strPtr(models.ReasonPortCongestion)
	case obs.Status != "":
		ev.AIStatus = strPtr(obs.Status)
		if obs.Reason != "" {
			ev.AIReason = strPtr(obs.Reason)
		}
	}

	eventID, err := g.repo.InsertEvent(ctx, ev)
	if err != nil {
		return errors.Wrap(err, "insert event")
	}
	g.totalInserted.Add(1)

	g.publishRecorded(ctx, shipmentID, eventID, obs.TrackingID, ev)
	return nil
}

// publishRecorded — best effort: событие уже в БД, недоставка уведомления
// стоит лишь лишнего попадания в кэш.
func (g *Ingestor) publishRecorded(ctx context.Context, shipmentID, eventID uint64, trackingID string, ev *models.ShipmentEvent) {
	if g.producer == nil || g.topic == "" {
		return
	}
	msg := messages.ShipmentEventRecorded{
		ShipmentID: shipmentID,
		EventID:    eventID,
		TrackingID: trackingID,
		Timestamp:  ev.Timestamp,
		Location:   ev.Location,
		Latitude:   ev.Latitude,
		Longitude:  ev.Longitude,
		AIStatus:   ev.AIStatus,
		AIReason:   ev.AIReason,
	}
	b, err := json.Marshal(msg)
	if err != nil {
		slog.Warn("marshal kafka msg", "error", err.Error())
		return
	}
	key := []byte(fmt.Sprintf("%d", shipmentID))
	if err := g.producer.Publish(ctx, g.topic, key, b); err != nil {
		slog.Warn("publish shipment event", "event_id", eventID, "error", err.Error())
	}
}

// backfillPass размечает неклассифицированные события эвристикой. Работает
// только при включённом fallback: без него записи ждут внешний сервис.
func (g *Ingestor) backfillPass(ctx context.Context) {
	if g.cls == nil || !g.cls.FallbackEnabled() {
		return
	}

	events, err := g.repo.ListUnclassified(ctx, g.backfillBatch)
	if err != nil {
		g.recordError(err)
		slog.Error("list unclassified", "error", err.Error())
		return
	}

	for _, ev := range events {
		res := classifier.Fallback(ev.RawStatusText)
		if err := g.repo.SetClassification(ctx, ev.ID, strPtr(res.Status), reasonPtr(res.Reason)); err != nil {
			g.recordError(err)
			slog.Error("set classification", "event_id", ev.ID, "error", err.Error())
			continue
		}
		g.totalClassified.Add(1)
	}
}

// paraphrasePass добивает человекочитаемые причины через внешнюю модель.
// Пачка маленькая и ограничена rate limiter'ом: inference API не резиновый.
func (g *Ingestor) paraphrasePass(ctx context.Context) {
	if g.cls == nil || !g.cls.HasExternal() {
		return
	}

	events, err := g.repo.ListMissingClassification(ctx, g.paraphraseBatch)
	if err != nil {
		g.recordError(err)
		slog.Error("list missing classification", "error", err.Error())
		return
	}

	now := time.Now().UTC()
	for _, ev := range events {
		if g.rl != nil && g.rateLimitPerMin > 0 {
			minuteKey := fmt.Sprintf("rl:classifier:%s", now.Format("200601021504"))
			allowed, n, err := g.rl.Allow(ctx, minuteKey, g.rateLimitPerMin, 70*time.Second)
			if err != nil {
				g.recordError(err)
				slog.Error("classifier rate limiter", "error", err.Error())
				return
			}
			if !allowed {
				slog.Warn("classifier rate limit exceeded", "count", n)
				return
			}
		}

		res, outcome := g.cls.Classify(ctx, ev.RawStatusText)
		if outcome != classifier.OutcomeOK {
			// Retry/Error никогда не сохраняются: событие останется в
			// выборке следующего цикла.
			continue
		}
		if err := g.repo.SetClassification(ctx, ev.ID, strPtr(res.Status), reasonPtr(res.Reason)); err != nil {
			g.recordError(err)
			slog.Error("set classification", "event_id", ev.ID, "error", err.Error())
			continue
		}
		g.totalClassified.Add(1)
	}
}

func (g *Ingestor) recordError(err error) {
	g.totalErrors.Add(1)
	g.lastErrorMu.Lock()
	g.lastError = err.Error()
	g.lastErrorMu.Unlock()
}

func strPtr(s string) *string { return &s }

// reasonPtr: пустая причина — это NULL в БД, наружу она вернётся как "N/A".
func reasonPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
