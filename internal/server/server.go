package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shinyyama/quickfix-backend/internal/ai"
	"github.com/shinyyama/quickfix-backend/internal/config"
	"github.com/shinyyama/quickfix-backend/internal/handler"
	appmw "github.com/shinyyama/quickfix-backend/internal/middleware"
	"github.com/shinyyama/quickfix-backend/internal/payment"
	"github.com/shinyyama/quickfix-backend/internal/repository"
	"github.com/shinyyama/quickfix-backend/internal/service"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

// Clients are the external integrations. Any of them may be nil; the
// matching routes then answer with a "not configured" error.
type Clients struct {
	Auth     appmw.TokenVerifier
	Users    handler.UserDirectory
	Gemini   *ai.GeminiClient
	Maps     handler.MapsClient
	Uploads  handler.ImageStore
	Checkout service.CheckoutProvider
	Deduper  payment.Deduper
}

type Server struct {
	e *echo.Echo
}

func New(cfg *config.Config, repos *repository.Repositories, clients Clients, sha, buildTime string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(appmw.CorrelationID)
	e.Use(middleware.Logger())
	e.Use(otelecho.Middleware("quickfix-backend"))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization", appmw.DevUIDHeader},
		AllowCredentials: true,
		AllowOriginFunc:  allowOrigin(cfg.AppBaseURL),
	}))

	var gen service.DiagnosisGenerator
	var judge service.CompletionJudge
	if clients.Gemini != nil {
		gen, judge = clients.Gemini, clients.Gemini
	}

	notifySvc := service.NewNotificationService(repos.Notifications)
	diagSvc := service.NewDiagnosticService(gen, repos.Reports, repos.Requests)
	verifySvc := service.NewVerificationService(judge, repos.Requests, repos.Verifications)
	requestSvc := service.NewRequestService(repos.Requests, repos.Repairers, repos.Payments, diagSvc, verifySvc, notifySvc, cfg.StripeCurrency)
	repairerSvc := service.NewRepairerService(repos.Repairers)
	directorySvc := service.NewDirectoryService(repos.Repairers, repos.Requests, cfg.DefaultSearchRadiusKm)
	paymentSvc := service.NewPaymentService(clients.Checkout, clients.Deduper, repos.Requests, repos.Payments, notifySvc,
		service.PaymentConfig{Currency: cfg.StripeCurrency, AppBaseURL: cfg.AppBaseURL})

	requestHandler := handler.NewRequestHandler(requestSvc)
	repairerHandler := handler.NewRepairerHandler(repairerSvc, directorySvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	notificationHandler := handler.NewNotificationHandler(notifySvc)
	geoHandler := handler.NewGeoHandler(clients.Maps, requestSvc, repairerSvc)
	uploadHandler := handler.NewUploadHandler(clients.Uploads)

	authMw := appmw.NewAuthMiddleware(clients.Auth, cfg.AllowDevAuth && cfg.Development())
	auth := authMw.RequireAuth

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"git_sha":    sha,
			"build_time": buildTime,
		})
	})

	api := e.Group("/api")
	api.POST("/stripe-webhook", paymentHandler.Webhook)
	api.GET("/repairers/nearby", repairerHandler.Nearby)
	api.GET("/geo/reverse", geoHandler.Reverse)

	api.POST("/requests", requestHandler.Create, auth)
	api.GET("/me/requests", requestHandler.ListMine, auth)
	api.GET("/requests/:id", requestHandler.Get, auth)
	api.GET("/requests/:id/diagnosis", requestHandler.GetDiagnosis, auth)
	api.POST("/requests/:id/diagnosis", requestHandler.Diagnose, auth)
	api.POST("/requests/:id/accept", requestHandler.Accept, auth)
	api.POST("/requests/:id/start", requestHandler.Start, auth)
	api.POST("/requests/:id/complete", requestHandler.Complete, auth)
	api.POST("/requests/:id/price", requestHandler.SetPrice, auth)
	api.POST("/requests/:id/cancel", requestHandler.Cancel, auth)
	api.GET("/requests/:id/verifications", requestHandler.Verifications, auth)
	api.GET("/requests/:id/route", geoHandler.RequestRoute, auth)

	api.GET("/repairers/me", repairerHandler.GetMe, auth)
	api.PUT("/repairers/me", repairerHandler.UpsertMe, auth)
	api.GET("/repairers/:id", repairerHandler.Get, auth)
	api.GET("/repairer/jobs", requestHandler.ListAssigned, auth)
	api.GET("/repairer/jobs/available", repairerHandler.AvailableJobs, auth)

	api.POST("/create-checkout-session", paymentHandler.CreateCheckoutSession, auth)
	api.POST("/uploads", uploadHandler.Upload, auth)
	api.GET("/notifications", notificationHandler.List, auth)
	api.POST("/notifications/read", notificationHandler.MarkAllRead, auth)
	if clients.Users != nil {
		api.GET("/users/:uid/public", handler.NewUserHandler(clients.Users).GetPublic)
	}

	return &Server{e: e}
}

// allowOrigin accepts localhost, Vercel previews and the configured app origin.
func allowOrigin(appBaseURL string) func(origin string) (bool, error) {
	appHost := ""
	if u, err := url.Parse(appBaseURL); err == nil {
		appHost = strings.ToLower(u.Host)
	}
	return func(origin string) (bool, error) {
		low := strings.ToLower(origin)
		if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
			strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
			return true, nil
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false, nil
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return false, nil
		}
		host := u.Hostname()
		if strings.HasSuffix(host, "vercel.app") {
			return true, nil
		}
		return appHost != "" && strings.ToLower(u.Host) == appHost, nil
	}
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func (s *Server) Handler() http.Handler {
	return s.e
}
