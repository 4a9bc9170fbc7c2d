package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"os"
	"runtime"

	"sathi/internal/auth"
	"sathi/internal/callbackguard"
	"sathi/internal/certificates"
	"sathi/internal/checkout"
	"sathi/internal/config"
	"sathi/internal/db"
	"sathi/internal/domain/storage"
	"sathi/internal/mailer"
	"sathi/internal/notifications"
	"sathi/internal/payments"
	"sathi/internal/ratelimiter"
	"sathi/internal/turnstile"

	"github.com/9ssi7/exponent"
	"github.com/cloudinary/cloudinary-go/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger creates a colored console logger. When LOG_FILE is set a JSON
// copy is written to a rotated file as well.
func NewLogger(cfg *config.Config) (*zap.SugaredLogger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCfg := encoderCfg
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(os.Stdout), level),
	}

	if cfg.LogFile != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(file), level))
	}

	return zap.New(zapcore.NewTee(cores...)).Sugar(), nil
}

var version = "1.0.0"

//	@title			Sathi API
//	@description	Donation, membership and event payments for Sathi through eSewa, Khalti, IME Pay and ConnectIPS.

//	@contact.name	Sathi Tech Team
//	@contact.email	tech@sathi.org.np

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@BasePath					/v1
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						Authorization
//	@description

//	@securityDefinitions.basic	BasicAuth

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := NewLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	// Database
	pool, err := db.New(context.Background(), cfg.DB.Addr, cfg.DB.MaxConns, cfg.DB.MaxIdleTime)
	if err != nil {
		logger.Fatal(err)
	}
	defer pool.Close()
	logger.Info("database connection pool established")

	store := storage.NewContainer(pool)

	gateways := newGateways(cfg, logger)

	guard, err := callbackguard.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.GuardTTL)
	if err != nil {
		logger.Warnw("redis unavailable, callback guard is in-memory", "error", err)
	}

	smtp, err := mailer.NewSMTPMailer(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.Username, cfg.Mail.Password, cfg.Mail.FromEmail)
	if err != nil {
		logger.Warnw("mailer disabled", "error", err)
	}

	notifier := newNotifier(cfg, store, smtp, logger)

	svc := checkout.NewService(store, checkout.Options{
		Gateways:    gateways,
		Guard:       guard,
		Notifier:    notifier,
		Logger:      logger,
		ReturnHosts: cfg.AllowedReturnHosts(),
		VerifyGrace: cfg.Reconcile.MinAge,
	})

	app := &application{
		config:        cfg,
		store:         store,
		logger:        logger,
		checkout:      svc,
		authenticator: auth.NewJWTAuthenticator(cfg.Auth.TokenSecret, cfg.Auth.TokenIss, cfg.Auth.TokenIss, cfg.Auth.TokenExp),
		rateLimiter:   ratelimiter.NewFixedWindowLimiter(cfg.RateLimiter.RequestsPerTimeFrame, cfg.RateLimiter.TimeFrame),
		turnstile:     turnstile.New(cfg.Turnstile.SecretKey, cfg.Turnstile.ExpectedHostname),
		ping:          pool.Ping,
	}
	if smtp != nil {
		app.mailer = smtp
	}

	if cfg.Reconcile.Enabled {
		rec := checkout.NewReconciler(store.Payments, svc, store.PushTokens, checkout.ReconcilerConfig{
			Schedule: cfg.Reconcile.Schedule,
			MinAge:   cfg.Reconcile.MinAge,
			MaxAge:   cfg.Reconcile.MaxAge,
			Batch:    cfg.Reconcile.Batch,
		}, logger)
		if err := rec.Start(); err != nil {
			logger.Fatal(err)
		}
		app.onShutdown = append(app.onShutdown, rec.Stop)
	}
	app.onShutdown = append(app.onShutdown, func(context.Context) { svc.Wait() })

	//Metrics collected http://localhost:8080/v1/debug/vars
	expvar.NewString("version").Set(version)
	expvar.Publish("database", expvar.Func(func() any {
		s := pool.Stat()
		return map[string]any{
			"total_conns":    s.TotalConns(),
			"idle_conns":     s.IdleConns(),
			"acquired_conns": s.AcquiredConns(),
			"max_conns":      s.MaxConns(),
		}
	}))
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.mount()

	logger.Fatal(app.run(mux))
}

// newGateways registers every gateway that has credentials configured.
func newGateways(cfg *config.Config, logger *zap.SugaredLogger) *payments.PaymentManager {
	m := payments.NewPaymentManager()

	if cfg.Esewa.Enabled() {
		m.RegisterGateway(payments.ProviderEsewa, payments.NewEsewaAdapter(cfg.Credentials(payments.ProviderEsewa)))
	}
	if cfg.Khalti.Enabled() {
		m.RegisterGateway(payments.ProviderKhalti, payments.NewKhaltiAdapter(cfg.Credentials(payments.ProviderKhalti), cfg.FrontendURL))
	}
	if cfg.IMEPay.Enabled() {
		m.RegisterGateway(payments.ProviderIMEPay, payments.NewIMEPayAdapter(cfg.Credentials(payments.ProviderIMEPay), payments.IMEPayAPI{
			User:     cfg.IMEPay.APIUser,
			Password: cfg.IMEPay.APIPassword,
			Module:   cfg.IMEPay.Module,
		}))
	}
	if cfg.ConnectIPS.Enabled() {
		m.RegisterGateway(payments.ProviderConnectIPS, payments.NewConnectIPSAdapter(cfg.Credentials(payments.ProviderConnectIPS), payments.ConnectIPSApp{
			AppID:    cfg.ConnectIPS.AppID,
			AppName:  cfg.ConnectIPS.AppName,
			Password: cfg.ConnectIPS.AppPassword,
		}))
	}

	for _, p := range payments.SupportedProviders {
		if !m.Supports(p) {
			logger.Warnw("gateway disabled, no credentials", "provider", p)
		}
	}
	return m
}

// newNotifier assembles the completed-payment sinks that are configured.
// Order matters: the receipt links the certificate.
func newNotifier(cfg *config.Config, store *storage.Container, smtp *mailer.SMTPMailer, logger *zap.SugaredLogger) checkout.Notifier {
	var sinks []checkout.Notifier

	if cfg.CloudinaryURL != "" {
		cld, err := cloudinary.NewFromURL(cfg.CloudinaryURL)
		if err != nil {
			logger.Fatal(err)
		}
		numbers, err := certificates.NewNumberGenerator(cfg.HashIDsSalt)
		if err != nil {
			logger.Fatal(err)
		}
		issuer := certificates.NewIssuer(numbers, certificates.NewCloudinaryUploader(cld, "sathi/certificates"))
		sinks = append(sinks, &checkout.CertificateSink{Issuer: issuer, Payments: store.Payments})
	} else {
		logger.Warn("CLOUDINARY_URL not set, certificates disabled")
	}

	if smtp != nil {
		sinks = append(sinks, &checkout.ReceiptSink{Mailer: smtp})
	}

	expo := exponent.NewClient(exponent.WithAccessToken(cfg.ExpoAccessToken))
	sinks = append(sinks, &checkout.AdminPushSink{
		Push:        notifications.NewExpoAdapter(expo),
		Store:       store,
		ExtraTokens: cfg.AdminPushTokens,
	})

	return checkout.NewFanoutNotifier(sinks...)
}
