package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/taskvine/identity"
	"github.com/taskvine/identity/gateway"
	"github.com/taskvine/identity/mailer"
	"github.com/taskvine/identity/provider"
	"github.com/taskvine/identity/provider/discord"
	"github.com/taskvine/identity/provider/google"
	"github.com/taskvine/identity/session"
	"github.com/taskvine/identity/signup"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// stdLogger adapts the standard logger to the printf-style interface the
// identity packages expect.
type stdLogger struct {
	prefix string
}

func (l stdLogger) Debug(format string, args ...any) { log.Printf(l.prefix+" DEBUG "+format, args...) }
func (l stdLogger) Info(format string, args ...any)  { log.Printf(l.prefix+" INFO "+format, args...) }
func (l stdLogger) Warn(format string, args ...any)  { log.Printf(l.prefix+" WARN "+format, args...) }
func (l stdLogger) Error(format string, args ...any) { log.Printf(l.prefix+" ERROR "+format, args...) }

func main() {
	if err := run(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

func run() error {
	cfg, err := identity.LoadConfig()
	if err != nil {
		return err
	}

	logger := stdLogger{prefix: "identity"}
	metrics := identity.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.DSN)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	repo := identity.NewRepositoryManager(db)

	sessionStore, err := session.NewBunStore(ctx, db)
	if err != nil {
		return err
	}
	sessionStore.OnError = func(error) { metrics.RecordSessionError() }
	defer sessionStore.Close()

	sessions, err := session.NewManager(
		sessionStore,
		cfg.Session.Name,
		cfg.Session.Secret,
		cfg.Session.TTL,
		session.WithManagerLogger(stdLogger{prefix: "session"}),
		session.WithSecureCookies(true),
	)
	if err != nil {
		return err
	}

	bridge := session.NewBridge(cfg.Session.Secret).WithLogger(stdLogger{prefix: "bridge"})
	bridge.OnRewrite = metrics.RecordBridgeRewrite

	var guild signup.GuildChecker
	var gw *gateway.Gateway
	if cfg.GatewayConfigured() {
		transport := gateway.NewWSTransport(
			cfg.Gateway.BotToken,
			gateway.WithWSLogger(stdLogger{prefix: "gateway"}),
		)
		gw = gateway.New(
			transport,
			gateway.WithLogger(stdLogger{prefix: "gateway"}),
		)
		gw.OnStateChange = func(s gateway.State) { metrics.RecordGatewayState(int(s)) }
		if err := gw.Initialize(ctx); err != nil {
			// membership checks fail closed until a reconnect succeeds
			logger.Error("gateway initialization failed: %v", err)
		}
		guild = gw
	} else {
		logger.Warn("discord gateway not configured, signup membership checks will reject")
	}

	registry, err := provider.NewRegistry(
		identity.NewProviderStore(repo),
		provider.WithLogger(stdLogger{prefix: "provider"}),
	)
	if err != nil {
		return err
	}

	registry.RegisterIfConfigured("google", provider.Credentials{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		CallbackURL:  cfg.Google.CallbackURL,
	}, func(creds provider.Credentials) provider.OAuthStrategy {
		return google.New(google.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			CallbackURL:  creds.CallbackURL,
		})
	})

	registry.RegisterIfConfigured("discord", provider.Credentials{
		ClientID:     cfg.Discord.ClientID,
		ClientSecret: cfg.Discord.ClientSecret,
		CallbackURL:  cfg.Discord.CallbackURL,
	}, func(creds provider.Credentials) provider.OAuthStrategy {
		return discord.New(discord.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			CallbackURL:  creds.CallbackURL,
		})
	})

	var mobile *google.MobileVerifier
	if cfg.GoogleMobile.ClientID != "" {
		mobile, err = google.NewMobileVerifier(google.MobileConfig{
			ClientID: cfg.GoogleMobile.ClientID,
		})
		if err != nil {
			return err
		}
		defer mobile.Close()
	}

	var mail mailer.Mailer
	if cfg.MailConfigured() {
		mail, err = mailer.NewSMTP(mailer.Config{
			Host:        cfg.Mail.Host,
			Port:        cfg.Mail.Port,
			Username:    cfg.Mail.Username,
			Password:    cfg.Mail.Password,
			From:        cfg.Mail.From,
			OpsMirror:   cfg.Mail.OpsMirror,
			Suppression: cfg.Mail.Suppression,
		}, stdLogger{prefix: "mailer"})
		if err != nil {
			return err
		}
	} else {
		logger.Warn("SMTP not configured, outbound email is logged and dropped")
		mail = mailer.NewNoop(stdLogger{prefix: "mailer"})
	}

	signupStore := identity.NewSignupStore(repo).WithLogger(stdLogger{prefix: "signup"})

	signupOpts := []signup.Option{
		signup.WithMailer(mail),
		signup.WithLogger(stdLogger{prefix: "signup"}),
	}
	if guild != nil {
		signupOpts = append(signupOpts, signup.WithGuildChecker(guild, cfg.Gateway.GuildID))
	}

	signups, err := signup.New(signupStore, signupOpts...)
	if err != nil {
		return err
	}
	signups.OnOutcome = metrics.RecordSignupOutcome

	tokens := identity.NewTokenService(
		[]byte(cfg.Tokens.SigningKey),
		cfg.Tokens.Issuer,
		stdLogger{prefix: "tokens"},
	)

	ctrl := identity.NewController(
		repo,
		sessions,
		registry,
		signups,
		tokens,
		mail,
		identity.WithControllerLogger(logger),
		identity.WithMobileVerifier(mobile),
		identity.WithRedirects(cfg.Redirects.Success, cfg.Redirects.Failure),
		identity.WithMetrics(metrics),
	)

	limiter := identity.NewRateLimiter(identity.DefaultRateLimiterConfig())
	defer limiter.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "taskvine-identity",
		DisableStartupMessage: true,
	})

	app.Use(bridge.Middleware())
	app.Use(sessions.Middleware())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if err := db.PingContext(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	auth := app.Group("/auth", limiter.Middleware())
	ctrl.RegisterRoutes(auth)

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening addr=%s", cfg.HTTPAddr)
		errc <- app.Listen(cfg.HTTPAddr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	if gw != nil {
		gw.Shutdown()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}
