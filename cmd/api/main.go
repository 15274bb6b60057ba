package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"legacynote/internal/crypto"
	"legacynote/internal/domain/sqlite"
	"legacynote/internal/domain/sqlite/repository"
	handler2 "legacynote/internal/http/handler"
	authmw "legacynote/internal/http/middleware"
	"legacynote/internal/infrastructure/aws/storage"
	"legacynote/internal/infrastructure/mail"
	"legacynote/internal/service"
	"legacynote/internal/service/jobs"
	"legacynote/internal/sharing"
	"legacynote/internal/utils"
	"legacynote/internal/utils/uid"
	"legacynote/internal/utils/validators"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
)

const envVarsPrefix = "/legacynote/prod/"

func main() {
	validate := validator.New()
	registerValidators(validate)

	// Loads env vars depending on environment
	if os.Getenv("GO_ENV") == "production" {
		loadProdEnv() // AWS SSM Parameter Store
	} else {
		// Loads from .env
		err := godotenv.Load()
		if err != nil {
			panic(err)
		}
	}

	uid.Init(machineID())

	if err := utils.InitTokenSigner(os.Getenv("JWT_SECRET")); err != nil {
		log.Fatalf("failed to initialize token signer: %v", err)
	}

	contentCipher, err := crypto.NewCipherFromBase64(os.Getenv("NOTE_CIPHER_KEY"))
	if err != nil {
		log.Fatalf("failed to initialize content cipher: %v", err)
	}

	// Init SQLite
	db, err := sqlite.Init()
	if err != nil {
		panic(err)
	}

	// Init S3 client
	s3Client, err := storage.NewStorageClient()
	if err != nil {
		panic(err)
	}

	// Init SMTP sender
	mailer, err := mail.NewSMTPSender()
	if err != nil {
		panic(err)
	}

	links := sharing.NewGenerator(os.Getenv("PUBLIC_BASE_URL"))

	// Getting repos
	noteRepo := repository.NewNoteRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Getting services
	userService := service.NewUserService(userRepo, mailer, validate)
	noteService := service.NewNoteService(noteRepo, contentCipher, links, s3Client, validate)

	// Getting handlers
	noteRoutes := handler2.NewNoteDefault(noteService)
	shareRoutes := handler2.NewShareDefault(noteService)
	userRoutes := handler2.NewUserDefault(userService)

	authRequired := authmw.NewAuthMiddleware(&authmw.AuthMiddlewareConfig{UserRepo: userRepo})

	e := echo.New()
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit("30M"))

	// Notes
	notes := e.Group("/api/notes", authRequired)
	notes.GET("", noteRoutes.GetNotes)
	notes.GET("/:id", noteRoutes.GetNote)
	notes.POST("", noteRoutes.CreateNote)
	notes.PATCH("/:id", noteRoutes.UpdateNote)
	notes.DELETE("/:id", noteRoutes.DeleteNote)
	notes.POST("/:id/share", shareRoutes.ShareNote)

	// Public share links carry their own access key; no auth middleware.
	e.GET("/api/shared/:id/:key", shareRoutes.GetSharedNote)

	// Users
	e.POST("/api/users", userRoutes.CreateUser)
	e.POST("/api/users/login", userRoutes.CreateLogin)

	// Docker Compose healthcheck
	e.GET("/health", healthCheckRoute)

	// The scheduler drains its current cycle when the context is
	// canceled; shutdown waits for it before exiting.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := jobs.NewDeliveryScheduler(noteRepo, contentCipher, links, mailer, schedulerInterval())
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		scheduler.Start(ctx)
	}()

	go func() {
		if err := e.Start(":7070"); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorf("failed to shut down server: %v", err)
	}
	<-schedDone
}

func registerValidators(validate *validator.Validate) {
	_ = validate.RegisterValidation("hasupper", validators.HasUpper)
	_ = validate.RegisterValidation("haslower", validators.HasLower)
	_ = validate.RegisterValidation("hasdigit", validators.HasDigit)
	_ = validate.RegisterValidation("hasspecial", validators.HasSpecial)
	_ = validate.RegisterValidation("nodupes", validators.NoDupes)
}

func machineID() int64 {
	raw := os.Getenv("MACHINE_ID")
	if raw == "" {
		return 1
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Fatalf("invalid MACHINE_ID: %v", err)
	}
	return id
}

func schedulerInterval() time.Duration {
	raw := os.Getenv("SCHEDULER_INTERVAL_SECONDS")
	if raw == "" {
		return jobs.DefaultInterval
	}

	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		log.Warnf("invalid SCHEDULER_INTERVAL_SECONDS %q, using default", raw)
		return jobs.DefaultInterval
	}
	return time.Duration(secs) * time.Second
}

func loadProdEnv() {
	ctx := context.Background()
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(os.Getenv("AWS_REGION")))
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}

	client := ssm.NewFromConfig(cfg)
	out, err := client.GetParametersByPath(ctx, &ssm.GetParametersByPathInput{
		Path:           aws.String(envVarsPrefix),
		WithDecryption: aws.Bool(true),
		Recursive:      aws.Bool(true),
	})
	if err != nil {
		log.Fatalf("unable to load prod environment, %v", err)
	}

	prefixLength := len(envVarsPrefix)
	// Export vars
	for _, param := range out.Parameters {
		key := (*param.Name)[prefixLength:]
		value := *param.Value
		enverr := os.Setenv(key, value)
		if enverr != nil {
			log.Fatalf("unable to set environment variable, %v", enverr)
		}
	}
	log.Debugf("loaded %d prod environment variables", len(out.Parameters))
}

func healthCheckRoute(c echo.Context) error {
	return c.String(200, "OK")
}
