package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/Lightwork-Marking/moodle-mod-assign/internal/auth"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/config"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/database"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/gradebook"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/handler"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/middleware"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/models"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/plugin"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/repository"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/router"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/service"
	"github.com/Lightwork-Marking/moodle-mod-assign/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Course{},
		&models.User{},
		&models.Enrollment{},
		&models.Scale{},
		&models.Assignment{},
		&models.AssignPluginConfig{},
		&models.Submission{},
		&models.Grade{},
		&models.GradeHistory{},
		&models.GradebookGrade{},
		&models.Notification{},
		&models.AuditLogEntry{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	fileStore := storage.NewMemoryStore()
	if cfg.MinioEndpoint != "" {
		fileStore, err = storage.NewMinioStore(context.Background(), storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create minio store: %v", err)
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	registry := plugin.NewRegistry(
		plugin.NewOnlineTextPlugin(),
		plugin.NewFilePlugin(fileStore),
	)

	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	pluginConfigRepo := repository.NewPluginConfigRepository(db)
	gradingTableRepo := repository.NewGradingTableRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	authorizer := auth.NewEnrollmentAuthorizer(db)
	book := gradebook.NewStore(db)
	notifier := service.NewNotificationService(notificationRepo, authorizer, natsConn, cfg.NATSSubject, logger)

	assignmentService := service.NewAssignmentService(assignmentRepo, pluginConfigRepo, authorizer, registry, fileStore, validate, logger)
	lifecycleService := service.NewLifecycleService(
		assignmentRepo, submissionRepo, gradeRepo, userRepo, auditRepo,
		authorizer, book, notifier, registry, fileStore, courseRepo, validate, logger,
	)
	gradingTableService := service.NewGradingTableService(
		assignmentRepo, submissionRepo, gradingTableRepo, courseRepo,
		authorizer, redisClient, validate, logger,
	)
	externalService := service.NewExternalService(
		courseRepo, assignmentRepo, submissionRepo, pluginConfigRepo,
		authorizer, fileStore, validate, logger,
	)

	assignmentHandler := handler.NewAssignmentHandler(assignmentService, logger)
	submissionHandler := handler.NewSubmissionHandler(lifecycleService, logger)
	gradingHandler := handler.NewGradingHandler(lifecycleService, gradingTableService, logger)
	externalHandler := handler.NewExternalHandler(externalService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AssignmentHandler: assignmentHandler,
		SubmissionHandler: submissionHandler,
		GradingHandler:    gradingHandler,
		ExternalHandler:   externalHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
