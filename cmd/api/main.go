package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/myinvois-signer/internal/application/signing"
	"github.com/jhoicas/myinvois-signer/internal/infrastructure/myinvois/signer"
	"github.com/jhoicas/myinvois-signer/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/myinvois-signer/internal/interfaces/http"
	"github.com/jhoicas/myinvois-signer/pkg/config"
	"github.com/jhoicas/myinvois-signer/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("myinvois", cfg.MyInvois.Environment).
		Msg("iniciando aplicación")

	// Firmador: cadena y llave se cargan una sola vez al arrancar.
	orchestrator := signer.NewOrchestrator(signer.FileCredentials{
		CertificatePath: cfg.Signing.CertPath,
		KeyPath:         cfg.Signing.KeyPath,
		PKCS12Path:      cfg.Signing.P12Path,
		Passphrase:      cfg.Signing.KeyPassphrase,
	}, signer.WithLogger(log.Component("signer")))

	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	if err := orchestrator.Initialize(initCtx); err != nil {
		// se sigue arrancando: /health reporta el fallo y la firma responde 503
		log.Error().Err(err).Msg("firmador no disponible")
	}
	cancelInit()

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	signedRepo := postgres.NewSignedDocumentRepository(pool)
	if err := signedRepo.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("esquema de base de datos")
	}

	signUC := signing.NewSignDocumentUseCase(orchestrator, signedRepo, postgres.NewTxRunner(pool))
	certificateUC := signing.NewCertificateUseCase(orchestrator)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
		BodyLimit:    10 * 1024 * 1024,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "MyInvois Signer API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		SignUC:        signUC,
		CertificateUC: certificateUC,
		SignerState:   func() string { return orchestrator.State().String() },
		JWTSecret:     cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
