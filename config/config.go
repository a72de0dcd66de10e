package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	ShipSight ShipSightConfig `yaml:"shipsight"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                    string `yaml:"host"`
	Port                    int    `yaml:"port"`
	ShipmentEventsTopicName string `yaml:"shipment_events_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type ShipSightConfig struct {
	HTTPAddr           string `yaml:"http_addr"`
	WorkerHTTPAddr     string `yaml:"worker_http_addr"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`
	KPICacheTTLSeconds int    `yaml:"kpi_cache_ttl_seconds"`

	// Source selection: "mock" | "poll" | "stream".
	SourceMode string `yaml:"source_mode"`

	MockPreclassified   bool `yaml:"mock_preclassified"`
	MockCorpusSize      int  `yaml:"mock_corpus_size"`
	MockIntervalSeconds int  `yaml:"mock_interval_seconds"`

	PollURLTemplate     string   `yaml:"poll_url_template"`
	PollTrackedIDs      []string `yaml:"poll_tracked_ids"`
	PollIntervalSeconds int      `yaml:"poll_interval_seconds"`

	StreamURL                  string        `yaml:"stream_url"`
	StreamAPIKey               string        `yaml:"stream_api_key"`
	StreamBoundingBoxes        [][][]float64 `yaml:"stream_bounding_boxes"`
	StreamMMSIFilter           []string      `yaml:"stream_mmsi_filter"`
	StreamMessageTypes         []string      `yaml:"stream_message_types"`
	StreamReceiveWindowSeconds int           `yaml:"stream_receive_window_seconds"`

	DedupWindowMinutes  int     `yaml:"dedup_window_minutes"`
	DwellSpeedKnots     float64 `yaml:"dwell_speed_knots"`
	DwellEpsilonDegrees float64 `yaml:"dwell_epsilon_degrees"`
	DwellStallMinutes   int     `yaml:"dwell_stall_minutes"`

	ClassifierAPIURL             string `yaml:"classifier_api_url"`
	ClassifierAPIKey             string `yaml:"classifier_api_key"`
	ClassifierTimeoutSeconds     int    `yaml:"classifier_timeout_seconds"`
	ClassifierFallbackEnabled    bool   `yaml:"classifier_fallback_enabled"`
	ClassifierBatchSize          int    `yaml:"classifier_batch_size"`
	ClassifierRateLimitPerMinute int    `yaml:"classifier_rate_limit_per_minute"`

	BackfillBatchSize   int `yaml:"backfill_batch_size"`
	ErrorBackoffSeconds int `yaml:"error_backoff_seconds"`

	SeedRecords int `yaml:"seed_records"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
