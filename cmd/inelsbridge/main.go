// iNels Bridge - gateway value translator and topic router
//
// This is the main entry point for the iNels bridge. It connects to the
// MQTT broker the iNels gateway publishes on, translates device status
// payloads into Gray Logic state messages, routes commands back as set
// payloads and serves the REST/WebSocket API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/gray-logic-inels/migrations"

	"github.com/nerrad567/gray-logic-inels/internal/api"
	"github.com/nerrad567/gray-logic-inels/internal/bridges/inels"
	"github.com/nerrad567/gray-logic-inels/internal/device"
	"github.com/nerrad567/gray-logic-inels/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-inels/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-inels/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-inels/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-inels/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// pruneInterval is how often state history older than the retention is removed.
const pruneInterval = time.Hour

// brokerCheckTimeout bounds the broker reachability check at startup.
const brokerCheckTimeout = 10 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting iNels bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := config.ResolvePath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version).With("site_id", cfg.Site.ID)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
		"site", cfg.Site.Name,
	)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go reloadLogLevel(ctx, configPath, log, hup)

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	deviceRegistry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	deviceRegistry.SetLogger(log.Component("registry"))
	if refreshErr := deviceRegistry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	log.Info("device registry initialised", "devices", deviceRegistry.DeviceCount())

	stateHistory := device.NewSQLiteStateHistoryRepository(db.DB)

	bridgeCfg := bridgeConfig(cfg)
	if validateErr := bridgeCfg.Validate(); validateErr != nil {
		return fmt.Errorf("bridge config: %w", validateErr)
	}

	if brokerErr := checkBroker(ctx, cfg.MQTT); brokerErr != nil {
		return brokerErr
	}
	mqttClient, err := connectMQTT(cfg, bridgeCfg.BridgeID, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()

	influxClient, err := influxdb.Connect(ctx, cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	opts := inels.BridgeOptions{
		Config:     bridgeCfg,
		MQTTClient: &mqttBridgeAdapter{client: mqttClient},
		Logger:     log.Component("inels"),
		Registry:   &registryAdapter{registry: deviceRegistry, history: stateHistory},
	}
	if influxClient != nil {
		opts.Metrics = influxClient
	}
	bridge, err := inels.NewBridge(opts)
	if err != nil {
		return fmt.Errorf("creating iNels bridge: %w", err)
	}
	if startErr := bridge.Start(ctx); startErr != nil {
		bridge.Stop()
		return fmt.Errorf("starting iNels bridge: %w", startErr)
	}
	defer func() {
		log.Info("stopping iNels bridge")
		bridge.Stop()
	}()

	if cfg.API.Enabled {
		checks := map[string]api.HealthChecker{
			"database": db,
			"mqtt":     mqttClient,
		}
		if influxClient != nil {
			checks["influxdb"] = influxClient
		}

		apiServer, apiErr := api.New(api.Deps{
			Config:       cfg.API,
			WS:           cfg.WebSocket,
			Logger:       log.Component("api"),
			Registry:     deviceRegistry,
			StateHistory: stateHistory,
			MQTT:         mqttClient,
			Discoverer:   bridge,
			HealthChecks: checks,
			Version:      version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API server disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	housekeeping := maintenance{
		bridgeID:      bridgeCfg.BridgeID,
		stats:         bridge.Stats,
		subscriptions: mqttClient.SubscriptionCount,
		history:   stateHistory,
		retention: cfg.GetHistoryRetention(),
		interval:  bridgeCfg.GetHealthInterval(),
		log:       log.Component("maintenance"),
	}
	if influxClient != nil {
		housekeeping.influx = influxClient
	}
	go runMaintenance(ctx, housekeeping)

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. API server (if enabled)
	// 2. iNels bridge
	// 3. InfluxDB (if enabled)
	// 4. MQTT
	// 5. Database

	log.Info("iNels bridge stopped")
	return nil
}

// reloadLogLevel re-reads the config file on every signal from hup and
// applies its logging.level. Other settings need a restart.
func reloadLogLevel(ctx context.Context, path string, log *logging.Logger, hup <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			cfg, err := config.Load(path)
			if err != nil {
				log.Warn("log level reload failed", "path", path, "error", err)
				continue
			}
			log.SetLevel(cfg.Logging.Level)
			log.Info("log level reloaded", "level", log.Level().String())
		}
	}
}

// checkBroker fails fast when the broker refuses connections, before the
// long-lived session registers its Last Will.
func checkBroker(ctx context.Context, cfg config.MQTTConfig) error {
	checkCtx, cancel := context.WithTimeout(ctx, brokerCheckTimeout)
	defer cancel()
	if !mqtt.Probe(checkCtx, cfg) {
		return fmt.Errorf("connecting to MQTT: %w: broker %s:%d unreachable",
			mqtt.ErrConnectionFailed, cfg.Broker.Host, cfg.Broker.Port)
	}
	return nil
}

// connectMQTT connects to the broker with the bridge's offline health
// message registered as Last Will.
func connectMQTT(cfg *config.Config, bridgeID string, log *logging.Logger) (*mqtt.Client, error) {
	lwt, err := json.Marshal(inels.NewLWTMessage(bridgeID))
	if err != nil {
		return nil, fmt.Errorf("building LWT payload: %w", err)
	}

	client, err := mqtt.Connect(cfg.MQTT,
		mqtt.WithWill(mqtt.Will{
			Topic:    inels.HealthTopic(),
			Payload:  lwt,
			QoS:      1,
			Retained: true,
		}),
		mqtt.WithLogger(log.Component("mqtt")),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}

	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err, "broker_available", client.IsAvailable())
	})

	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", client.ClientID(),
	)
	return client, nil
}

// healthCheck verifies all infrastructure connections are healthy.
// influxClient may be nil when telemetry is disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// statsWriter records bridge counters. Satisfied by *influxdb.Client.
type statsWriter interface {
	WriteBridgeStats(bridgeID string, fields map[string]any)
}

// historyPruner removes old state history. Satisfied by the SQLite history repository.
type historyPruner interface {
	PruneOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// maintenance holds the periodic housekeeping settings.
type maintenance struct {
	bridgeID string
	stats    func() inels.BridgeStatistics
	// subscriptions reports the MQTT filters the session restores on
	// reconnect.
	subscriptions func() int
	history       historyPruner
	retention     time.Duration
	interval      time.Duration
	influx        statsWriter
	log           *logging.Logger
}

// runMaintenance writes bridge counters to InfluxDB every interval and
// prunes state history past the retention every pruneInterval, until ctx
// is cancelled.
func runMaintenance(ctx context.Context, m maintenance) {
	interval := m.interval
	if interval <= 0 {
		interval = inels.DefaultHealthInterval
	}
	statsTicker := time.NewTicker(interval)
	defer statsTicker.Stop()
	pruneTicker := time.NewTicker(pruneInterval)
	defer pruneTicker.Stop()

	m.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-statsTicker.C:
			m.writeStats()
		case <-pruneTicker.C:
			m.prune(ctx)
		}
	}
}

func (m maintenance) writeStats() {
	if m.influx == nil || m.stats == nil {
		return
	}
	s := m.stats()
	fields := map[string]any{
		"messages_received": int64(s.MessagesReceived), // #nosec G115 -- counters stay far below MaxInt64
		"commands_sent":     int64(s.CommandsSent),     // #nosec G115
		"fallbacks":         int64(s.Fallbacks),        // #nosec G115
		"errors":            int64(s.Errors),           // #nosec G115
	}
	if m.subscriptions != nil {
		fields["mqtt_subscriptions"] = int64(m.subscriptions())
	}
	m.influx.WriteBridgeStats(m.bridgeID, fields)
}

func (m maintenance) prune(ctx context.Context) {
	if m.history == nil || m.retention <= 0 {
		return
	}
	removed, err := m.history.PruneOlderThan(ctx, m.retention)
	if err != nil {
		m.log.Warn("state history prune failed", "error", err)
		return
	}
	if removed > 0 {
		m.log.Info("state history pruned", "removed", removed, "retention", m.retention.String())
	}
}
