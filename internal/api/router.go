package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/obalifehub/lifehub/docs"
	"github.com/obalifehub/lifehub/internal/api/handler"
	"github.com/obalifehub/lifehub/internal/api/middleware"
	"github.com/obalifehub/lifehub/internal/core/domain"
	"github.com/obalifehub/lifehub/internal/core/ports"
	"github.com/obalifehub/lifehub/internal/core/service"
)

// Deps are the services the public API is built on.
type Deps struct {
	Sessions  *service.SessionRegistry
	Tokens    ports.TokenIssuer
	Ledger    ports.LedgerService
	Catalog   ports.CatalogService
	JWTSecret string
	Log       zerolog.Logger

	// Registerer receives the HTTP metrics; nil means the default registry.
	Registerer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "lifehub",
		Registerer: d.Registerer,
	}))
	e.Use(requestLogger(d.Log))

	authHandler := handler.NewAuthHandler(d.Sessions, d.Tokens)
	profileHandler := handler.NewProfileHandler()
	walletHandler := handler.NewWalletHandler(d.Ledger, d.Catalog)
	kidsHandler := handler.NewKidsHandler(d.Ledger, d.Catalog)

	authMiddleware := middleware.Auth(d.JWTSecret)
	sessionMiddleware := middleware.Session(d.Sessions)

	// --- Auth routes ---
	e.POST("/auth/signup", authHandler.SignUp)
	e.POST("/auth/signin", authHandler.SignIn)
	e.POST("/auth/signout", authHandler.SignOut, authMiddleware)

	// --- Authenticated routes ---
	v1 := e.Group("/v1", authMiddleware, sessionMiddleware)

	v1.GET("/me", profileHandler.Me)
	v1.PATCH("/me", profileHandler.Update)
	v1.POST("/me/reload", profileHandler.Reload)
	v1.GET("/me/stream", profileHandler.Stream)
	v1.GET("/me/rewards", walletHandler.Claims)

	v1.GET("/rewards", walletHandler.Rewards)
	v1.POST("/rewards/:id/redeem", walletHandler.Redeem)
	v1.GET("/wallet/transactions", walletHandler.Transactions)
	v1.POST("/wallet/reconcile", walletHandler.Reconcile)

	kids := v1.Group("/kids", middleware.RequireCapability(domain.CapabilityKids))
	kids.GET("/activities", kidsHandler.Activities)
	kids.POST("/activities/:id/complete", kidsHandler.Complete)

	// --- API docs ---
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger writes one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			switch {
			case v.Status >= 500:
				ev = log.Error().Err(v.Error)
			case v.Error != nil:
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
