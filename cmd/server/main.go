package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/safeanchor/safeanchor/internal/api"
	"github.com/safeanchor/safeanchor/internal/app"
	"github.com/safeanchor/safeanchor/internal/app/maintenance"
	iauth "github.com/safeanchor/safeanchor/internal/auth"
	"github.com/safeanchor/safeanchor/internal/database"
	"github.com/safeanchor/safeanchor/internal/otp"
	"github.com/safeanchor/safeanchor/internal/services"
	"github.com/safeanchor/safeanchor/pkg/logger"
	"github.com/safeanchor/safeanchor/pkg/mail"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("safeanchor-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	jwtService, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         cfg.Auth.JWT.Secret,
		Issuer:         cfg.Auth.JWT.Issuer,
		AccessTokenTTL: cfg.Auth.JWT.TTL,
	})
	if err != nil {
		return fmt.Errorf("initialise jwt service: %w", err)
	}

	refreshSvc, err := iauth.NewRefreshService(db, jwtService, iauth.RefreshConfig{
		RefreshTokenTTL: cfg.Auth.Refresh.TTL,
		TokenBytes:      cfg.Auth.Refresh.TokenBytes,
	})
	if err != nil {
		return fmt.Errorf("initialise refresh service: %w", err)
	}

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return fmt.Errorf("initialise mailer: %w", err)
	}

	otpStore := otp.NewMemoryStore(otp.MemoryConfig{})

	svcs, err := buildServices(db, otpStore, refreshSvc, mailer)
	if err != nil {
		return err
	}

	var cleaner *maintenance.Cleaner
	if cfg.Maintenance.Enabled {
		cleaner = maintenance.NewCleaner(refreshSvc, otpStore,
			maintenance.WithRefreshSchedule(cfg.Maintenance.RefreshSchedule),
			maintenance.WithOTPSchedule(cfg.Maintenance.OTPSchedule),
		)
		if err := cleaner.Start(); err != nil {
			return fmt.Errorf("start maintenance jobs: %w", err)
		}
		defer func() {
			// Stop's context is Done once running jobs drain; the final
			// sweep needs a live context of its own.
			<-cleaner.Stop().Done()
			if err := cleaner.RunOnce(context.Background()); err != nil {
				log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
			}
		}()
	}

	router, err := api.NewRouter(db, jwtService, svcs)
	if err != nil {
		return fmt.Errorf("build api router: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	db, err := database.Open(database.Config{
		Driver:   cfg.Database.Driver,
		Path:     cfg.Database.Path,
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Name:     cfg.Database.Name,
		Options:  cfg.Database.Options,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("obtain sql handle", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("close database", zap.Error(err))
	}
}

func buildServices(db *gorm.DB, otps otp.Store, refresh *iauth.RefreshService, mailer mail.Mailer) (api.Services, error) {
	accounts, err := services.NewAccountService(db, otps, refresh, mailer)
	if err != nil {
		return api.Services{}, fmt.Errorf("initialise account service: %w", err)
	}
	resources, err := services.NewResourceService(db)
	if err != nil {
		return api.Services{}, fmt.Errorf("initialise resource service: %w", err)
	}
	groups, err := services.NewSupportGroupService(db)
	if err != nil {
		return api.Services{}, fmt.Errorf("initialise support group service: %w", err)
	}
	hotlines, err := services.NewHotlineService(db)
	if err != nil {
		return api.Services{}, fmt.Errorf("initialise hotline service: %w", err)
	}
	sessions, err := services.NewSessionService(db)
	if err != nil {
		return api.Services{}, fmt.Errorf("initialise session service: %w", err)
	}
	matching, err := services.NewMatchingService(db)
	if err != nil {
		return api.Services{}, fmt.Errorf("initialise matching service: %w", err)
	}
	dashboards, err := services.NewDashboardService(db)
	if err != nil {
		return api.Services{}, fmt.Errorf("initialise dashboard service: %w", err)
	}
	profiles, err := services.NewProfileService(db)
	if err != nil {
		return api.Services{}, fmt.Errorf("initialise profile service: %w", err)
	}

	return api.Services{
		Accounts:   accounts,
		Resources:  resources,
		Groups:     groups,
		Hotlines:   hotlines,
		Sessions:   sessions,
		Matching:   matching,
		Dashboards: dashboards,
		Profiles:   profiles,
	}, nil
}
