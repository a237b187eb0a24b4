package main

import (
	"fmt"
	"os"

	"sandbox-app-service/conf"
	"sandbox-app-service/database"
	"sandbox-app-service/events"
	"sandbox-app-service/logging"
	"sandbox-app-service/models/dao"
	"sandbox-app-service/relay"
	"sandbox-app-service/service/generator_service"
	"sandbox-app-service/service/provisioner_service"
	"sandbox-app-service/service/sandbox_service"
)

// initEnv initialize environment
func initEnv() error {
	env, err := conf.ParseEnvironment(envFlag)
	if err != nil {
		return err
	}
	conf.SystemEnvironmentEnum = env
	conf.ConfigFile = configFlag
	return nil
}

// initAll loads config, opens the store and wires the service.
// The returned func releases the store and the event publisher.
func initAll() (*sandbox_service.SandboxAppService, func(), error) {
	if err := initEnv(); err != nil {
		return nil, nil, err
	}
	if err := conf.InitConfig(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize config: %w", err)
	}
	cfg := conf.Cfg

	logging.Setup(cfg.Log.Level, cfg.Log.Json, os.Stderr)
	logging.Info("configuration loaded", "env", conf.SystemEnvironmentEnum, "config", conf.GetYaml(),
		"port", cfg.Server.Port, "database", cfg.Database.Type)

	if err := initDatabase(cfg.Database); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	publisher, err := initPublisher(cfg.Events)
	if err != nil {
		database.DB.Close()
		return nil, nil, err
	}

	b := &sandbox_service.Backends{
		Generator:   generator_service.NewAnthropicGenerator(cfg.Generator),
		Provisioner: provisioner_service.NewHTTPProvisioner(cfg.Provisioner),
		Control: relay.NewClient(relay.Options{
			EditPath:         cfg.Sandbox.EditPath,
			HeartbeatPath:    cfg.Sandbox.HeartbeatPath,
			PushTimeout:      cfg.Sandbox.PushTimeout(),
			HeartbeatTimeout: cfg.Sandbox.HealthTimeout(),
		}),
		Events: publisher,
	}

	dir := sandbox_service.NewAppDirectory(dao.NewAppDAO(), b)
	dir.Load()

	svc := sandbox_service.NewSandboxAppService(dir, b, sandbox_service.ServiceOptions{
		Image: cfg.Sandbox.Image,
		Health: sandbox_service.RetryPolicy{
			MaxAttempts:    cfg.Sandbox.HealthMaxAttempts,
			Delay:          cfg.Sandbox.HealthDelay(),
			AttemptTimeout: cfg.Sandbox.HealthTimeout(),
		},
		Cleanup: sandbox_service.CleanupPolicy{
			ProbeAttempts: cfg.Cleanup.ProbeAttempts,
			ProbeDelay:    cfg.Sandbox.HealthDelay(),
		},
		CleanupStatus: dao.NewCleanupStatusDAO(),
	})

	cleanup := func() {
		if err := publisher.Close(); err != nil {
			logging.Warn("failed to close event publisher", "error", err)
		}
		if database.DB != nil {
			database.DB.Close()
		}
	}
	return svc, cleanup, nil
}

// initDatabase initialize database based on configuration
func initDatabase(cfg conf.DatabaseConfig) error {
	dbType := database.DBType(cfg.Type)

	switch dbType {
	case database.DBTypePebble:
		return database.InitDatabase(dbType, &database.PebbleConfig{DataDir: cfg.DataDir})
	case database.DBTypeSqlite:
		return database.InitDatabase(dbType, &database.SqliteConfig{Path: cfg.SqlitePath})
	case database.DBTypeMemory:
		logging.Warn("using in-memory database, apps are lost on exit")
		return database.InitDatabase(dbType, nil)
	default:
		return fmt.Errorf("unsupported database type: %s", dbType)
	}
}

func initPublisher(cfg conf.EventsConfig) (events.Publisher, error) {
	if !cfg.ZmqEnabled {
		return events.NopPublisher{}, nil
	}
	pub, err := events.NewZMQPublisher(cfg.ZmqAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to start event publisher: %w", err)
	}
	logging.Info("publishing lifecycle events", "address", pub.Addr())
	return pub, nil
}
