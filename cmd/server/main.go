package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"hospital-queue/internal/bootstrap"
	"hospital-queue/internal/config"
	"hospital-queue/internal/http/handler"
	"hospital-queue/internal/http/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog/log"
)

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	config.InitLogger(cfg.ServiceName, cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := config.InitTracer(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing init failed")
	}

	config.InitRedis(cfg)
	defer config.CloseRedis()
	config.InitDB(cfg)
	defer config.CloseDB()

	svc, err := bootstrap.Build(ctx, cfg, config.Redis, config.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap failed")
	}
	defer svc.Close()

	go func() {
		if err := svc.Hub.Run(ctx); err != nil {
			log.Error().Err(err).Msg("realtime hub stopped")
		}
	}()

	app := fiber.New(fiber.Config{
		Prefork:       false,
		CaseSensitive: true,
		StrictRouting: true,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
		AllowMethods: "GET, POST",
	}))

	h := handler.New(svc.Engine, svc.Logs, svc.Hub)
	h.Register(app, cfg.JWTSecret)
	if cfg.DisplayUser != "" {
		h.RegisterDisplay(app, cfg.DisplayUser, cfg.DisplayPass)
	}

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("http shutdown")
		}
	}()

	log.Info().Str("addr", cfg.Addr()).Msg("server listening")
	if err := app.Listen(cfg.Addr()); err != nil {
		log.Error().Err(err).Msg("server stopped")
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracer(flushCtx); err != nil {
		log.Warn().Err(err).Msg("tracer shutdown")
	}
}
