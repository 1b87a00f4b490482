package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/edudash-api/internal/auth"
	"github.com/noah-isme/edudash-api/internal/config"
	"github.com/noah-isme/edudash-api/internal/database"
	"github.com/noah-isme/edudash-api/internal/handler"
	"github.com/noah-isme/edudash-api/internal/middleware"
	"github.com/noah-isme/edudash-api/internal/repository"
	"github.com/noah-isme/edudash-api/internal/router"
	"github.com/noah-isme/edudash-api/internal/service"
	"github.com/noah-isme/edudash-api/internal/utils"
	cloud "github.com/noah-isme/edudash-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if cfg.AppEnv == "development" {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Drain()
	}

	var storage service.FileStorage
	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("cloudinary disabled, logo uploads and report archives are unavailable")
	} else {
		storage = uploader
	}

	validation := utils.NewValidation()
	validate := validation.Validate
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)

	accountRepo := repository.NewAccountRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	resolver := service.NewSessionResolver(accountRepo, redisClient, logger)
	activityService := service.NewActivityService(activityRepo, logger)
	authService := service.NewAuthService(accountRepo, memberRepo, schoolRepo, resolver, tokens, validate, activityService, logger)
	uploadService := service.NewUploadService(storage, cfg.UploadMaxMB, logger)
	schoolService := service.NewSchoolService(schoolRepo, uploadService, validate, activityService, logger)
	reportService := service.NewReportService(attendanceRepo, batchRepo, memberRepo, service.ReportServiceOptions{
		Cache:    redisClient,
		CacheTTL: cfg.ReportCacheTTL,
		Uploads:  uploadService,
		Activity: activityService,
		Location: cfg.Location,
	}, logger)
	batchService := service.NewBatchService(batchRepo, schoolRepo, validate, activityService, reportService, logger)
	memberService := service.NewMemberService(memberRepo, accountRepo, batchRepo, schoolRepo, resolver, validate, activityService, reportService, logger)
	importService, err := service.NewImportService(memberRepo, batchRepo, activityService, reportService, logger)
	if err != nil {
		log.Fatalf("failed to compile roster schema: %v", err)
	}
	notificationService := service.NewNotificationService(notificationRepo, accountRepo, redisClient, cfg.NotificationChannel, natsConn, validate, logger)
	sessionService := service.NewSessionService(sessionRepo, memberRepo, batchRepo, notificationService, validate, activityService, logger)
	liveService := service.NewLiveGridService(redisClient, cfg.NotificationChannel, natsConn, logger)
	attendanceService := service.NewAttendanceService(attendanceRepo, batchRepo, memberRepo, validate, service.AttendanceServiceOptions{
		Drafts:      service.NewDraftStore(redisClient, cfg.DraftTTL, logger),
		Reports:     reportService,
		Broadcaster: liveService,
		Activity:    activityService,
		Location:    cfg.Location,
	}, logger)
	overviewService := service.NewOverviewService(memberRepo, schoolRepo, batchRepo, sessionRepo, attendanceRepo, cfg.Location, logger)

	backgroundCtx, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()
	notificationService.Start(backgroundCtx)
	liveService.Start(backgroundCtx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    int(cfg.UploadLimitBytes()) + 1024*1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		Tokens:              tokens,
		Resolver:            resolver,
		Logger:              logger,
		AuthHandler:         handler.NewAuthHandler(authService, validation, logger),
		SchoolHandler:       handler.NewSchoolHandler(schoolService, validation, logger),
		BatchHandler:        handler.NewBatchHandler(batchService, validation, logger),
		MemberHandler:       handler.NewMemberHandler(memberService, importService, validation, logger),
		SessionHandler:      handler.NewSessionHandler(sessionService, validation, cfg.Location, logger),
		AttendanceHandler:   handler.NewAttendanceHandler(attendanceService, liveService, validation, logger),
		ReportHandler:       handler.NewReportHandler(reportService, validation, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, validation, logger, cfg.NotificationKeepAlive),
		OverviewHandler:     handler.NewOverviewHandler(overviewService, logger),
		ActivityHandler:     handler.NewActivityHandler(activityService, logger),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, cancelBackground)
}

func waitForShutdown(app *fiber.App, stopBackground context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
