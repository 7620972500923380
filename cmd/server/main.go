package main

import (
	"fmt"
	"log"

	"tallyocr/internal/config"
	"tallyocr/internal/dhis2"
	"tallyocr/internal/handler"
	"tallyocr/internal/recognizer/openai"
	"tallyocr/internal/repository/postgres"
	"tallyocr/internal/router"
	"tallyocr/internal/service"
	s3storage "tallyocr/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	// Refuse to start without credentials rather than failing mid-session.
	if err := cfg.Validate(); err != nil {
		return err
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	pageRepo := postgres.NewPageRepo(db)
	submissionRepo := postgres.NewSubmissionRepo(db)

	// Initialize storage
	s3Client, err := s3storage.NewS3Client(&cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	// Initialize external clients
	dhis2Client := dhis2.NewClient(&cfg.DHIS2)
	pageRecognizer := openai.NewRecognizer(&cfg.Recognizer)

	// Initialize services
	metadataSvc := service.NewMetadataService(dhis2Client)
	sessionSvc := service.NewSessionService(
		service.NewSessionStore(),
		pageRepo,
		submissionRepo,
		s3Client,
		pageRecognizer,
		metadataSvc,
		dhis2Client,
		&cfg.S3,
		&cfg.Upload,
	)

	// Initialize handlers
	sessionH := handler.NewSessionHandler(sessionSvc)
	metadataH := handler.NewMetadataHandler(metadataSvc)
	healthH := handler.NewHealthHandler(db)

	// Setup router
	r := router.Setup(cfg, sessionH, metadataH, healthH)

	log.Printf("Server starting on %s", cfg.Server.Port)
	if err := r.Run(cfg.Server.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}
