package main

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"sathi/docs" //this is required to generate swagger docs
	"sathi/internal/auth"
	"sathi/internal/checkout"
	"sathi/internal/config"
	"sathi/internal/domain/paymentsrepo"
	"sathi/internal/domain/storage"
	"sathi/internal/mailer"
	"sathi/internal/payments"
	"sathi/internal/ratelimiter"
	"sathi/internal/turnstile"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// checkoutService is what the payment handlers need from checkout.Service.
type checkoutService interface {
	Initiate(ctx context.Context, in checkout.InitiateInput) (payments.PaymentResult, error)
	HandleCallback(ctx context.Context, provider payments.Provider, q url.Values) (*checkout.Settlement, error)
	Reverify(ctx context.Context, txID string) (*checkout.Settlement, error)
	Status(ctx context.Context, txID string) (*paymentsrepo.Payment, error)
}

type application struct {
	config        *config.Config
	store         *storage.Container
	logger        *zap.SugaredLogger
	checkout      checkoutService
	mailer        mailer.Client
	authenticator auth.Authenticator
	rateLimiter   *ratelimiter.FixedWindowRateLimiter
	turnstile     *turnstile.Verifier
	ping          func(ctx context.Context) error
	onShutdown    []func(ctx context.Context)
	wg            sync.WaitGroup
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{app.config.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "CF-Turnstile-Response"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(middleware.Timeout(60 * time.Second))

	if app.config.RateLimiter.Enabled {
		r.Use(app.RateLimiterMiddleware)
	}

	r.Route("/v1", func(r chi.Router) {
		r.With(app.BasicAuthMiddleware()).Get("/health", app.healthCheckHandler)
		docsURL := app.config.APIURL + "/v1/swagger/doc.json"
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(docsURL)))

		r.With(app.BasicAuthMiddleware()).Get("/debug/vars", expvar.Handler().ServeHTTP)

		r.Route("/payments", func(r chi.Router) {
			r.Post("/", app.createPaymentHandler)

			// gateways redirect the browser with GET, some post the form back
			r.Get("/{gateway:esewa|khalti|imepay|connectips}/return", app.paymentReturnHandler)
			r.Post("/{gateway:esewa|khalti|imepay|connectips}/return", app.paymentReturnHandler)

			r.Get("/{transactionID}", app.getPaymentHandler)
			r.Post("/{transactionID}/verify", app.verifyPaymentHandler)
		})

		r.Post("/members", app.createMemberHandler)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", app.adminLoginHandler)

			r.Group(func(r chi.Router) {
				r.Use(app.AdminAuthMiddleware)
				r.Use(app.RequireRole("admin"))

				r.Post("/logout", app.adminLogoutHandler)
				r.Get("/me", app.adminSessionHandler)
				r.Get("/dashboard", app.adminDashboardHandler)

				r.Get("/payments", app.adminListPaymentsHandler)
				r.Get("/payments/{paymentID}", app.adminGetPaymentHandler)

				r.Get("/members", app.adminListMembersHandler)
				r.Get("/members/{memberID}", app.adminGetMemberHandler)
				r.Post("/members/{memberID}/approve", app.adminApproveMemberHandler)
				r.Post("/members/{memberID}/reject", app.adminRejectMemberHandler)

				r.Post("/push-tokens", app.savePushTokenHandler)
				r.Delete("/push-tokens", app.removePushTokenHandler)
				r.Post("/push-tokens/bulk-remove", app.bulkRemovePushTokensHandler)
			})
		})
	})
	return r
}

func (app *application) run(mux http.Handler) error {
	// Docs
	docs.SwaggerInfo.Version = version
	if u, err := url.Parse(app.config.APIURL); err == nil {
		docs.SwaggerInfo.Host = u.Host
	}
	docs.SwaggerInfo.BasePath = "/v1"

	srv := &http.Server{
		Addr:         app.config.Addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		err := srv.Shutdown(ctx)
		for _, fn := range app.onShutdown {
			fn(ctx)
		}
		app.wg.Wait()
		shutdown <- err
	}()

	app.logger.Infow("server has started", "addr", app.config.Addr, "env", app.config.Env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.Addr, "env", app.config.Env)

	return nil
}
