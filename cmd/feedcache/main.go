package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rushteam/feedcache/config"
	"github.com/rushteam/feedcache/pkg/logger"
	"github.com/rushteam/feedcache/server"
	"github.com/rushteam/feedcache/store/db"
)

var (
	rootCmd = &cobra.Command{
		Use:   "feedcache",
		Short: "Per-user recommended feed ranking and caching service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env 不存在时忽略
			_ = godotenv.Load()
			return nil
		},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API (and the scheduled warmer when warmup.cron is set)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	warmCmd = &cobra.Command{
		Use:   "warm",
		Short: "Refresh the feed cache for every user once, or on a schedule with --cron",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWarm(cmd.Context(), viper.GetString("cron"))
		},
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to the YAML config file")
	rootCmd.PersistentFlags().String("addr", "", "HTTP listen address, overrides server.addr")
	rootCmd.PersistentFlags().String("driver", "", "database driver (postgres, sqlite, memory), overrides database.driver")
	rootCmd.PersistentFlags().String("dsn", "", "database source name, overrides database.dsn")
	rootCmd.PersistentFlags().String("log-mode", "", `log mode, "dev" or "prod"`)
	warmCmd.Flags().String("cron", "", "run on this cron schedule instead of once")

	for _, name := range []string{"config", "addr", "driver", "dsn", "log-mode"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}
	if err := viper.BindPFlag("cron", warmCmd.Flags().Lookup("cron")); err != nil {
		panic(err)
	}

	viper.SetEnvPrefix("feedcache")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(serveCmd, warmCmd, migrateCmd)
}

// loadConfig 读取配置文件，再用命令行参数与 FEEDCACHE_* 环境变量覆盖。
func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return nil, err
	}
	if v := viper.GetString("addr"); v != "" {
		cfg.Server.Addr = v
	}
	if v := viper.GetString("driver"); v != "" {
		cfg.Database.Driver = v
	}
	if v := viper.GetString("dsn"); v != "" {
		cfg.Database.DSN = v
	}
	if v := viper.GetString("log-mode"); v != "" {
		cfg.Log.Mode = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		log.Error("failed to build app", "error", err)
		log.Sync()
		return nil, err
	}
	return a, nil
}

func runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.log.Sync()
	defer a.Close()

	if a.warmer != nil && a.cfg.Warmup.Cron != "" {
		if err := a.warmer.Schedule(a.cfg.Warmup.Cron); err != nil {
			return err
		}
		defer a.warmer.Stop()
		a.log.Info("feed warmup scheduled", "cron", a.cfg.Warmup.Cron)
	}

	srv := server.New(a.svc, a.cfg.Server.RequestTimeout, a.log, a.metrics)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(a.cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runWarm(ctx context.Context, spec string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.log.Sync()
	defer a.Close()

	if a.warmer == nil {
		return fmt.Errorf("user repository cannot list users, warmup unavailable")
	}

	if spec == "" {
		report, err := a.warmer.WarmAll(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("warmed %d users: %d refreshed, %d skipped, %d failed in %s\n",
			report.Total, report.Refreshed, report.Skipped, report.Failed, report.Duration)
		return nil
	}

	if err := a.warmer.Schedule(spec); err != nil {
		return err
	}
	a.log.Info("feed warmup scheduled", "cron", spec)
	<-ctx.Done()
	a.warmer.Stop()
	return nil
}

func runMigrate() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Database.Driver == "memory" {
		return fmt.Errorf("nothing to migrate for the memory driver")
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	gdb, err := db.Open(cfg.Database.Driver, cfg.Database.DSN, log)
	if err != nil {
		return err
	}
	if sqlDB, err := gdb.DB(); err == nil {
		defer sqlDB.Close()
	}
	return db.Migrate(gdb, log)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
