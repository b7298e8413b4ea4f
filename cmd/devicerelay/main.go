// Device Relay - real-time relay between MQTT devices and their owners.
//
// Devices publish telemetry to devices/{device_id}/data; the relay keeps the
// latest snapshot of each, pushes it to the owner's live WebSocket
// connections, and relays validated settings back to devices/{device_id}/{command}.
//
// Usage:
//
//	devicerelay                 run the relay
//	devicerelay token <user>    print a development access token for <user>
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/device-relay/internal/access"
	"github.com/nerrad567/device-relay/internal/api"
	"github.com/nerrad567/device-relay/internal/auth"
	"github.com/nerrad567/device-relay/internal/command"
	"github.com/nerrad567/device-relay/internal/device"
	"github.com/nerrad567/device-relay/internal/hub"
	"github.com/nerrad567/device-relay/internal/infrastructure/config"
	"github.com/nerrad567/device-relay/internal/infrastructure/database"
	"github.com/nerrad567/device-relay/internal/infrastructure/logging"
	"github.com/nerrad567/device-relay/internal/infrastructure/mqtt"
	"github.com/nerrad567/device-relay/internal/ingest"
	"github.com/nerrad567/device-relay/internal/ownership"
	"github.com/nerrad567/device-relay/internal/relay"
	"github.com/nerrad567/device-relay/internal/state"
	"github.com/nerrad567/device-relay/internal/supervisor"
	"github.com/nerrad567/device-relay/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// Supervised task names.
const (
	taskMQTT  = "mqtt"
	taskStore = "ownership-store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	if len(os.Args) > 1 && os.Args[1] == "token" {
		err = runToken(os.Args[2:], os.Stdout)
	} else {
		err = run(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runToken prints a signed access token for the given user id.
func runToken(args []string, out io.Writer) error {
	if len(args) != 1 || args[0] == "" {
		return errors.New("usage: devicerelay token <user-id>")
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	token, err := auth.GenerateAccessToken(args[0], cfg.Security.JWT.Secret, cfg.Security.JWT.AccessTokenTTL)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting device relay",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "level", cfg.Logging.Level)

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	registry, err := device.Load(cfg.Registry.File)
	if err != nil {
		return fmt.Errorf("loading device registry: %w", err)
	}
	log.Info("device registry loaded",
		"types", len(registry.Types()),
		"devices", len(registry.DeviceIDs()),
	)

	store := ownership.NewSQLiteStore(db)
	cache := state.NewCache()
	authn := auth.NewTokenAuthenticator(cfg.Security.JWT.Secret)

	mqttClient := mqtt.New(cfg.MQTT)
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT connection lost", "error", err)
	})
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()

	pushHub := hub.New(hub.Deps{
		Owners:        store,
		Authenticator: authn,
		Config:        cfg.WebSocket,
		Logger:        log.Component("hub"),
	})

	ingestor := ingest.New(ingest.Deps{
		Registry:   registry,
		Cache:      cache,
		Subscriber: mqttClient,
		Notifier:   pushHub,
		Logger:     log.Component("ingest"),
		QoS:        byte(cfg.MQTT.QoS),
	})
	// Subscriptions are tracked while disconnected and sent on first connect.
	if startErr := ingestor.Start(ctx); startErr != nil {
		return fmt.Errorf("starting telemetry ingest: %w", startErr)
	}

	service := relay.New(relay.Deps{
		Registry: registry,
		Gate:     access.New(registry, store),
		Cache:    cache,
		Store:    store,
		Commands: command.New(command.Deps{
			Registry:  registry,
			Store:     store,
			Transport: mqttClient,
			Logger:    log.Component("command"),
		}),
		Notifier: pushHub,
		Logger:   log,
	})

	sup := supervisor.New(log.Component("supervisor"))

	server, err := api.New(api.Deps{
		Config:        cfg.API,
		Logger:        log,
		Service:       service,
		Hub:           pushHub,
		Authenticator: authn,
		Checks: map[string]api.HealthChecker{
			"database": store,
			"mqtt":     mqttClient,
		},
		Ingest:     ingestor,
		Supervisor: sup,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sup.Run(gctx, supervisor.Task{
			Name:  taskMQTT,
			Run:   mqttClient.Run,
			Delay: cfg.GetReconnectInterval(),
		})
	})
	g.Go(func() error {
		return sup.Run(gctx, supervisor.Task{
			Name:  taskStore,
			Run:   supervisor.Periodic(cfg.GetStoreHealthInterval(), store.HealthCheck),
			Delay: cfg.GetStoreHealthInterval(),
		})
	})
	g.Go(func() error {
		return ingestor.Run(gctx)
	})

	log.Info("device relay running", "api", server.Addr())

	if err := g.Wait(); err != nil {
		return fmt.Errorf("supervised task: %w", err)
	}
	log.Info("shutdown signal received, stopping...")
	return nil
}

// getConfigPath returns the config file path from DEVRELAY_CONFIG or the default.
func getConfigPath() string {
	if path := os.Getenv("DEVRELAY_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
