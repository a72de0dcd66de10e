package shipments

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/BearBump/ShipSight/internal/cache"
	"github.com/BearBump/ShipSight/internal/models"
	"github.com/pkg/errors"
)

type Repository interface {
	DelayReasonCounts(ctx context.Context) ([]models.DelayReasonCount, error)
	AtRiskShipments(ctx context.Context) ([]*models.Shipment, error)
	LiveLocations(ctx context.Context) ([]*models.LiveLocation, error)
	ListShipmentEvents(ctx context.Context, shipmentID uint64, limit, offset int) ([]*models.ShipmentEvent, error)
	Ping(ctx context.Context) error
}

const (
	keyDelayReasons  = "kpi:delay_reasons"
	keyAtRisk        = "shipments:at_risk"
	keyLiveLocations = "shipments:live_locations"
)

// Service — read-модель дашборда. Ответы агрегатов кэшируются целиком как
// JSON: кэш — лучшее усилие, источник истины всегда БД.
type Service struct {
	repo  Repository
	cache cache.BytesCache
	ttl   time.Duration
}

func New(repo Repository, c cache.BytesCache, ttl time.Duration) *Service {
	return &Service{repo: repo, cache: c, ttl: ttl}
}

func (s *Service) DelayReasons(ctx context.Context) ([]models.DelayReasonCount, error) {
	var out []models.DelayReasonCount
	if s.cachedGet(ctx, keyDelayReasons, &out) {
		return out, nil
	}
	out, err := s.repo.DelayReasonCounts(ctx)
	if err != nil {
		return nil, err
	}
	s.cachedSet(ctx, keyDelayReasons, out)
	return out, nil
}

func (s *Service) AtRisk(ctx context.Context) ([]*models.Shipment, error) {
	var out []*models.Shipment
	if s.cachedGet(ctx, keyAtRisk, &out) {
		return out, nil
	}
	out, err := s.repo.AtRiskShipments(ctx)
	if err != nil {
		return nil, err
	}
	s.cachedSet(ctx, keyAtRisk, out)
	return out, nil
}

func (s *Service) LiveLocations(ctx context.Context) ([]*models.LiveLocation, error) {
	var out []*models.LiveLocation
	if s.cachedGet(ctx, keyLiveLocations, &out) {
		return out, nil
	}
	out, err := s.repo.LiveLocations(ctx)
	if err != nil {
		return nil, err
	}
	s.cachedSet(ctx, keyLiveLocations, out)
	return out, nil
}

func (s *Service) ListShipmentEvents(ctx context.Context, shipmentID uint64, limit, offset int) ([]*models.ShipmentEvent, error) {
	if shipmentID == 0 {
		return nil, errors.New("shipmentId is required")
	}
	return s.repo.ListShipmentEvents(ctx, shipmentID, limit, offset)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// InvalidateCaches дёргается консьюмером Kafka после каждого нового события:
// агрегаты устаревают сразу, а не по TTL.
func (s *Service) InvalidateCaches(ctx context.Context) {
	if s.cache == nil || s.ttl <= 0 {
		return
	}
	if err := s.cache.Del(ctx, keyDelayReasons, keyAtRisk, keyLiveLocations); err != nil {
		slog.Warn("invalidate caches", "error", err.Error())
	}
}

func (s *Service) cachedGet(ctx context.Context, key string, dst any) bool {
	if s.cache == nil || s.ttl <= 0 {
		return false
	}
	b, ok, err := s.cache.Get(ctx, key)
	if err != nil || !ok {
		return false
	}
	return json.Unmarshal(b, dst) == nil
}

func (s *Service) cachedSet(ctx context.Context, key string, v any) {
	if s.cache == nil || s.ttl <= 0 {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, key, b, s.ttl)
}
