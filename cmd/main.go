package main

import (
	"context"
	"time"

	"github.com/hellofresh/health-go/v5"
	healthPostgres "github.com/hellofresh/health-go/v5/checks/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/yakoovad/scanhub/internal/api"
	"github.com/yakoovad/scanhub/internal/auth"
	"github.com/yakoovad/scanhub/internal/config"
	"github.com/yakoovad/scanhub/internal/db"
	"github.com/yakoovad/scanhub/internal/realtime"
	"github.com/yakoovad/scanhub/internal/repository"
	"github.com/yakoovad/scanhub/internal/service"
	"github.com/yakoovad/scanhub/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("starting application")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}
	auth.TokenSecretKey = cfg.TokenSecret

	pool, err := pgxpool.New(context.Background(), cfg.DSN())
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err = pool.Ping(context.Background()); err != nil {
		log.Fatal("failed to ping database", zap.Error(err))
	}

	log.Info("database connection established")

	transactor := db.NewPgxTransactor(pool)

	membershipRepo := repository.NewPgxMembershipRepository(pool)
	scanRepo := repository.NewPgxScanRepository(pool)
	userRepo := repository.NewPgxUserRepository(pool)

	hub := realtime.NewHub(log)
	listener := realtime.NewListener(cfg.DSN(), hub, log)
	go func() {
		if lerr := listener.Run(context.Background()); lerr != nil {
			log.Error("realtime listener stopped", zap.Error(lerr))
		}
	}()

	team := service.NewTeamService(transactor).
		WithMembershipRepo(membershipRepo).
		WithCapacityEnforcer(service.NewSnapshotEnforcer(membershipRepo))
	scan := service.NewScanService(transactor).WithScanRepo(scanRepo)
	user := service.NewUserService(transactor, time.Duration(cfg.TokenTTLHours)*time.Hour).
		WithUserRepo(userRepo)

	healthChecker := api.MustNewHealthChecker(health.Config{
		Name:      "postgres",
		Timeout:   5 * time.Second,
		SkipOnErr: false,
		Check: healthPostgres.New(healthPostgres.Config{
			DSN: cfg.DSN(),
		}),
	})

	e := echo.New()

	handler := api.NewHandler(log).
		WithTeamService(team).
		WithScanService(scan).
		WithUserService(user).
		WithScanRepo(scanRepo).
		WithHub(hub).
		WithHealthChecker(healthChecker)

	handler.RegisterRoutes(e)

	log.Info("server starting", zap.String("port", cfg.HTTPPort))
	if err = e.Start(":" + cfg.HTTPPort); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}
