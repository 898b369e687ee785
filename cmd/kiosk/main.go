package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/neiam/apollos-kiosk/internal/config"
	"github.com/neiam/apollos-kiosk/internal/service"
	"github.com/neiam/apollos-kiosk/internal/storage/sqlite"
	"github.com/neiam/apollos-kiosk/internal/subscriber"
)

func main() {
	configPath := flag.String("config", defaultConfigPath(), "path to config file")
	frameInterval := flag.Duration("frame-interval", 250*time.Millisecond, "consumer loop tick interval")

	mqttHost := flag.String("mqtt-host", "", "data channel broker (env MQTT_HOST)")
	mqttUsername := flag.String("mqtt-username", "", "data channel username (env MQTT_USERNAME)")
	mqttPassword := flag.String("mqtt-password", "", "data channel password (env MQTT_PASSWORD)")
	mqttTopic := flag.String("mqtt-topic", "", "data channel topic (env MQTT_TOPIC)")

	themeSync := flag.String("mqtt-theme-sync", "", "enable theme sync, true/false (env MQTT_THEME_SYNC)")
	themeHost := flag.String("mqtt-theme-host", "", "theme channel broker (env MQTT_THEME_HOST)")
	themeUsername := flag.String("mqtt-theme-username", "", "theme channel username (env MQTT_THEME_USERNAME)")
	themePassword := flag.String("mqtt-theme-password", "", "theme channel password (env MQTT_THEME_PASSWORD)")
	themeTopic := flag.String("mqtt-theme-topic", "", "theme channel topic (env MQTT_THEME_TOPIC)")

	flag.Parse()

	logger := setupLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	// Startup overrides take precedence over the persisted config,
	// field by field.
	cfg.Apply(config.Overrides{
		MQTTHost:      stringOverride(*mqttHost, "MQTT_HOST"),
		MQTTUsername:  stringOverride(*mqttUsername, "MQTT_USERNAME"),
		MQTTPassword:  stringOverride(*mqttPassword, "MQTT_PASSWORD"),
		MQTTTopic:     stringOverride(*mqttTopic, "MQTT_TOPIC"),
		ThemeSync:     boolOverride(*themeSync, "MQTT_THEME_SYNC"),
		ThemeHost:     stringOverride(*themeHost, "MQTT_THEME_HOST"),
		ThemeUsername: stringOverride(*themeUsername, "MQTT_THEME_USERNAME"),
		ThemePassword: stringOverride(*themePassword, "MQTT_THEME_PASSWORD"),
		ThemeTopic:    stringOverride(*themeTopic, "MQTT_THEME_TOPIC"),
	})

	logger = setupLogger(cfg.LogLevel)

	if cfg.MQTTTopic == "" {
		logger.Error("data channel topic not configured (set mqtt_topic or MQTT_TOPIC)")
		os.Exit(1)
	}

	configStore := config.NewFileStore(*configPath)

	var snapStore service.SnapshotStore
	snapshots, err := sqlite.Open(cfg.SnapshotDB)
	if err != nil {
		logger.Warn("snapshot archive unavailable, continuing without", "path", cfg.SnapshotDB, "error", err)
	} else {
		snapStore = snapshots
		defer snapshots.Close()
	}

	var loop *service.Loop
	engine := service.NewEngine(cfg, configStore, snapStore, func() { loop.Wake() }, logger)
	loop = service.NewLoop(engine, *frameInterval, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine.RestoreSnapshots(ctx)

	dataSub := subscriber.New(subscriber.Config{
		Endpoint: cfg.MQTTHost,
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
		Topic:    cfg.MQTTTopic,
		ClientID: clientID(cfg.MQTTUsername, "kiosk"),
	}, func(payload []byte) {
		engine.DataMailbox().Push(payload)
	}, logger.With("channel", "data"))

	// A dead subscriber degrades the kiosk to stale data; it does not
	// bring the process down.
	if err := dataSub.Start(ctx); err != nil {
		logger.Error("data subscriber failed to start, continuing with stale data", "error", err)
	} else {
		defer dataSub.Close()
	}

	if cfg.ThemeSync {
		user := "kiosk-theme"
		if cfg.ThemeUsername != nil {
			user = *cfg.ThemeUsername
		}
		pass := ""
		if cfg.ThemePassword != nil {
			pass = *cfg.ThemePassword
		}

		themeSub := subscriber.New(subscriber.Config{
			Endpoint: cfg.ThemeHost,
			Username: user,
			Password: pass,
			Topic:    cfg.ThemeTopic,
			ClientID: user + "-client",
		}, subscriber.ThemeHandler(func(name string) {
			engine.ThemeMailbox().Push(name)
		}, logger.With("channel", "theme")), logger.With("channel", "theme"))

		if err := themeSub.Start(ctx); err != nil {
			logger.Error("theme subscriber failed to start, theme sync disabled for this run", "error", err)
		} else {
			defer themeSub.Close()
		}
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("starting kiosk engine",
		"config", *configPath,
		"data_broker", cfg.MQTTHost,
		"data_topic", cfg.MQTTTopic,
		"theme_sync", cfg.ThemeSync,
		"theme", cfg.CurrentTheme,
	)

	if err := loop.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("consumer loop error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "apollos-kiosk", "config.yaml")
}

// stringOverride returns the flag value when set, else the environment
// value when present, else nil (no override).
func stringOverride(flagVal, envKey string) *string {
	if flagVal != "" {
		return &flagVal
	}
	if v, ok := os.LookupEnv(envKey); ok {
		return &v
	}
	return nil
}

func boolOverride(flagVal, envKey string) *bool {
	raw := flagVal
	if raw == "" {
		raw = os.Getenv(envKey)
	}
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

func clientID(username, fallback string) string {
	if username != "" {
		return username
	}
	return fallback
}
