package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BearBump/ShipSight/config"
	"github.com/BearBump/ShipSight/internal/broker/kafka"
	"github.com/BearBump/ShipSight/internal/cache/rediscache"
	"github.com/BearBump/ShipSight/internal/integrations/classifier"
	"github.com/BearBump/ShipSight/internal/integrations/classifier/hfapi"
	"github.com/BearBump/ShipSight/internal/integrations/feed"
	"github.com/BearBump/ShipSight/internal/integrations/feed/aispoll"
	"github.com/BearBump/ShipSight/internal/integrations/feed/aisstream"
	"github.com/BearBump/ShipSight/internal/integrations/feed/mock"
	"github.com/BearBump/ShipSight/internal/services/ingest"
	"github.com/BearBump/ShipSight/internal/storage/pgshipping"
)

type workerFactories struct {
	newStorage     func(cfg *config.Config) (repo ingest.Repository, closeFn func(), err error)
	newProducer    func(cfg *config.Config) ingest.Producer
	newRateLimiter func(cfg *config.Config) ingest.RateLimiter
	newSource      func(cfg *config.Config) feed.Source
	newClassifier  func(cfg *config.Config) *classifier.Classifier
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (ingest.Repository, func(), error) {
			sslMode := cfg.Database.SSLMode
			if sslMode == "" {
				sslMode = "disable"
			}
			connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
				cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
			repo, closeFn := openPostgresWithRetry(1*time.Second, func() (ingest.Repository, func(), error) {
				st, err := pgshipping.New(connString)
				if err != nil {
					return nil, nil, err
				}
				return st, st.Close, nil
			})
			return repo, closeFn, nil
		},
		newProducer: func(cfg *config.Config) ingest.Producer {
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			return kafka.NewProducer(brokers)
		},
		newRateLimiter: func(cfg *config.Config) ingest.RateLimiter {
			redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
			return rediscache.NewRateLimiter(redisAddr)
		},
		newSource: func(cfg *config.Config) feed.Source {
			switch cfg.ShipSight.SourceMode {
			case "poll":
				return aispoll.New(cfg.ShipSight.PollURLTemplate, cfg.ShipSight.PollTrackedIDs)
			case "stream":
				c := aisstream.New(cfg.ShipSight.StreamURL, cfg.ShipSight.StreamAPIKey).
					WithFilters(cfg.ShipSight.StreamBoundingBoxes, cfg.ShipSight.StreamMMSIFilter, cfg.ShipSight.StreamMessageTypes)
				if cfg.ShipSight.StreamReceiveWindowSeconds > 0 {
					c = c.WithReceiveWindow(time.Duration(cfg.ShipSight.StreamReceiveWindowSeconds) * time.Second)
				}
				return c
			default:
				return mock.New(cfg.ShipSight.MockCorpusSize, cfg.ShipSight.MockPreclassified)
			}
		},
		newClassifier: func(cfg *config.Config) *classifier.Classifier {
			var p classifier.Paraphraser
			// Без API-ключа внешний сервис не зовём вообще.
			if cfg.ShipSight.ClassifierAPIURL != "" && cfg.ShipSight.ClassifierAPIKey != "" {
				timeout := time.Duration(cfg.ShipSight.ClassifierTimeoutSeconds) * time.Second
				p = hfapi.New(cfg.ShipSight.ClassifierAPIURL, cfg.ShipSight.ClassifierAPIKey, timeout)
			}
			return classifier.New(p, cfg.ShipSight.ClassifierFallbackEnabled)
		},
	}
}

// Постгрес может подниматься дольше воркера: ждём без дедлайна с фиксированным
// бэкоффом, старт воркера из-за базы не падает.
func openPostgresWithRetry(backoff time.Duration, open func() (ingest.Repository, func(), error)) (ingest.Repository, func()) {
	for {
		repo, closeFn, err := open()
		if err == nil {
			return repo, closeFn
		}
		slog.Warn("postgres is not ready, retrying", "error", err.Error())
		time.Sleep(backoff)
	}
}

func newIngestor(cfg *config.Config, f workerFactories) (*ingest.Ingestor, func(), error) {
	topic := cfg.Kafka.ShipmentEventsTopicName
	if topic == "" {
		topic = "shipment_events"
	}

	interval := sourceInterval(cfg)
	errorBackoff := time.Duration(cfg.ShipSight.ErrorBackoffSeconds) * time.Second
	if errorBackoff <= 0 {
		errorBackoff = 10 * time.Second
	}

	repo, closeFn, err := f.newStorage(cfg)
	if err != nil {
		return nil, nil, err
	}

	g := ingest.New(f.newSource(cfg), repo, f.newClassifier(cfg), f.newProducer(cfg), f.newRateLimiter(cfg), topic).
		WithSettings(interval, errorBackoff,
			cfg.ShipSight.BackfillBatchSize, cfg.ShipSight.ClassifierBatchSize,
			int64(cfg.ShipSight.ClassifierRateLimitPerMinute)).
		WithDeduper(ingest.Deduper{
			Window:          time.Duration(cfg.ShipSight.DedupWindowMinutes) * time.Minute,
			DwellSpeedKnots: cfg.ShipSight.DwellSpeedKnots,
			DwellEpsilonDeg: cfg.ShipSight.DwellEpsilonDegrees,
			DwellStall:      time.Duration(cfg.ShipSight.DwellStallMinutes) * time.Minute,
		})
	return g, closeFn, nil
}

// sourceInterval: mock-корпус можно дёргать часто, живые источники — раз в
// минуту, чтобы не жечь лимиты.
func sourceInterval(cfg *config.Config) time.Duration {
	switch cfg.ShipSight.SourceMode {
	case "poll":
		if cfg.ShipSight.PollIntervalSeconds > 0 {
			return time.Duration(cfg.ShipSight.PollIntervalSeconds) * time.Second
		}
		return 60 * time.Second
	case "stream":
		return 60 * time.Second
	default:
		if cfg.ShipSight.MockIntervalSeconds > 0 {
			return time.Duration(cfg.ShipSight.MockIntervalSeconds) * time.Second
		}
		return 5 * time.Second
	}
}

func RunShipWorker(ctx context.Context, cfg *config.Config, f workerFactories) error {
	g, closeFn, err := newIngestor(cfg, f)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}
	return g.Run(ctx)
}
