package main

import (
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"charzing/internal/config"
	"charzing/internal/database"
	"charzing/internal/middleware"
	"charzing/internal/modules/auth"
	"charzing/internal/modules/payment"
	"charzing/internal/modules/reservation"
	"charzing/internal/modules/stream"
	"charzing/internal/oauth"
	jwtsvc "charzing/internal/pkg/jwt"
	validatorpkg "charzing/internal/pkg/validator"
	"charzing/internal/queue"
	"charzing/internal/repository"
	"charzing/internal/toss"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := newLogger(cfg.AppEnv)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Connect(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	if err := repository.Migrate(db); err != nil {
		logger.Fatal("migrate failed", zap.Error(err))
	}

	userRepo := repository.NewUserRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	jwtService := jwtsvc.New(cfg.JWTSecret, cfg.JWTAccessTTL)

	kakao := oauth.NewKakaoVerifier(logger)
	google := oauth.NewGoogleVerifier(cfg.GoogleClientID, logger)
	apple := oauth.NewAppleVerifier(cfg.AppleClientID, logger)

	events := queue.NewPublisher(cfg.RabbitURL, logger)
	defer events.Close()

	hub := stream.NewHub(logger)
	tossClient := toss.NewClient(cfg.TossSecretKey, cfg.TossBaseURL, logger)
	loggerf := logger.Sugar().Infof

	authService := auth.NewService(userRepo, kakao, google, apple, jwtService)
	authHandler := auth.NewHandler(authService)

	reservationService := reservation.NewService(reservationRepo, userRepo, events, loggerf)
	reservationHandler := reservation.NewHandler(reservationService)

	paymentService := payment.NewService(paymentRepo, reservationRepo, userRepo, tossClient, events, hub, loggerf)
	paymentHandler := payment.NewHandler(paymentService, loggerf)

	streamHandler := stream.NewHandler(hub, jwtService, logger)

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}

	if isRelease(cfg.AppEnv) {
		gin.SetMode(gin.ReleaseMode)
	}
	validatorpkg.RegisterGinTags()
	r := gin.New()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS())

	v1 := r.Group("/api/v1")
	{
		// public: social login, Toss confirm/webhook, payment landings
		public := v1.Group("/")
		public.Use(middleware.RateLimit(cfg.RateLimit, rdb, logger))
		{
			authHandler.RegisterRoutes(public)
			paymentHandler.RegisterPublicRoutes(public)
		}

		// websocket authenticates itself via ?token=
		streamHandler.RegisterRoutes(v1)

		protected := v1.Group("/")
		protected.Use(middleware.JWTAuth(jwtService))
		{
			authHandler.RegisterProtectedRoutes(protected)
			reservationHandler.RegisterProtectedRoutes(protected)
			paymentHandler.RegisterProtectedRoutes(protected)
		}

		staff := v1.Group("/staff")
		staff.Use(middleware.JWTAuth(jwtService), middleware.StaffOnly())
		{
			reservationHandler.RegisterStaffRoutes(staff)
		}
	}

	logger.Info("api listening", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(appEnv string) (*zap.Logger, error) {
	if isRelease(appEnv) {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func isRelease(env string) bool {
	env = strings.ToLower(env)
	return env == "prod" || env == "production" || env == "release"
}
