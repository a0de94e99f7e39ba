package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/parcella/internal/auth"
	authdomain "github.com/smallbiznis/parcella/internal/auth/domain"
	"github.com/smallbiznis/parcella/internal/auth/session"
	"github.com/smallbiznis/parcella/internal/authorization"
	"github.com/smallbiznis/parcella/internal/calendar"
	calendardomain "github.com/smallbiznis/parcella/internal/calendar/domain"
	"github.com/smallbiznis/parcella/internal/catalog"
	catalogdomain "github.com/smallbiznis/parcella/internal/catalog/domain"
	"github.com/smallbiznis/parcella/internal/clock"
	"github.com/smallbiznis/parcella/internal/config"
	"github.com/smallbiznis/parcella/internal/invoice"
	invoicedomain "github.com/smallbiznis/parcella/internal/invoice/domain"
	"github.com/smallbiznis/parcella/internal/observability"
	"github.com/smallbiznis/parcella/internal/observability/errorreport"
	obsmiddleware "github.com/smallbiznis/parcella/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/parcella/internal/observability/metrics"
	obstracing "github.com/smallbiznis/parcella/internal/observability/tracing"
	"github.com/smallbiznis/parcella/internal/patient"
	patientdomain "github.com/smallbiznis/parcella/internal/patient/domain"
	"github.com/smallbiznis/parcella/internal/plan"
	plandomain "github.com/smallbiznis/parcella/internal/plan/domain"
	"github.com/smallbiznis/parcella/internal/profile"
	profiledomain "github.com/smallbiznis/parcella/internal/profile/domain"
	"github.com/smallbiznis/parcella/internal/providers/email"
	"github.com/smallbiznis/parcella/internal/providers/pdf"
	"github.com/smallbiznis/parcella/internal/ratelimit"
	"github.com/smallbiznis/parcella/internal/support"
	supportdomain "github.com/smallbiznis/parcella/internal/support/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	auth.Module,
	ratelimit.Module,
	email.Module,
	pdf.Module,
	profile.Module,
	patient.Module,
	catalog.Module,
	plan.Module,
	invoice.Module,
	calendar.Module,
	support.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, reporter *errorreport.Reporter) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(reporter.GinRecovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware("/health", "/metrics"))
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, reporter *errorreport.Reporter) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics, reporter)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	authsvc      authdomain.Service
	sessions     *session.Manager
	authzSvc     authorization.Service
	loginLimiter *ratelimit.LoginLimiter
	profileSvc   profiledomain.Service
	patientSvc   patientdomain.Service
	catalogSvc   catalogdomain.Service
	planSvc      plandomain.Service
	invoiceSvc   invoicedomain.Service
	calendarSvc  calendardomain.Service
	supportSvc   supportdomain.Service
	obsMetrics   *obsmetrics.Metrics
	clock        clock.Clock
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	Authsvc      authdomain.Service
	Sessions     *session.Manager
	AuthzSvc     authorization.Service
	LoginLimiter *ratelimit.LoginLimiter `optional:"true"`
	ProfileSvc   profiledomain.Service
	PatientSvc   patientdomain.Service
	CatalogSvc   catalogdomain.Service
	PlanSvc      plandomain.Service
	InvoiceSvc   invoicedomain.Service
	CalendarSvc  calendardomain.Service
	SupportSvc   supportdomain.Service
	ObsMetrics   *obsmetrics.Metrics `optional:"true"`
	Clock        clock.Clock         `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	clk := p.Clock
	if clk == nil {
		clk = clock.System()
	}
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("http.server"),
		authsvc:      p.Authsvc,
		sessions:     p.Sessions,
		authzSvc:     p.AuthzSvc,
		loginLimiter: p.LoginLimiter,
		profileSvc:   p.ProfileSvc,
		patientSvc:   p.PatientSvc,
		catalogSvc:   p.CatalogSvc,
		planSvc:      p.PlanSvc,
		invoiceSvc:   p.InvoiceSvc,
		calendarSvc:  p.CalendarSvc,
		supportSvc:   p.SupportSvc,
		obsMetrics:   p.ObsMetrics,
		clock:        clk,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerAdminRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) now() time.Time {
	return s.clock.Now()
}

func (s *Server) registerAuthRoutes() {
	group := s.engine.Group("/auth")

	group.POST("/signup", s.Signup)
	group.POST("/login", s.Login)
	group.POST("/logout", s.Logout)
	group.POST("/change-password", s.SessionRequired(), s.ChangePassword)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.SessionRequired())

	api.GET("/me", s.Me)

	// -------- Profile --------
	api.GET("/profile", s.authorize(authorization.ObjectProfile, authorization.ActionView), s.GetProfile)
	api.PUT("/profile", s.authorize(authorization.ObjectProfile, authorization.ActionUpdate), s.UpsertProfile)
	api.POST("/profile/fiscal-preview", s.authorize(authorization.ObjectProfile, authorization.ActionView), s.FiscalPreview)

	// -------- Patients --------
	api.GET("/patients", s.authorize(authorization.ObjectPatient, authorization.ActionView), s.ListPatients)
	api.POST("/patients", s.authorize(authorization.ObjectPatient, authorization.ActionCreate), s.CreatePatient)
	api.GET("/patients/:id", s.authorize(authorization.ObjectPatient, authorization.ActionView), s.GetPatient)
	api.PUT("/patients/:id", s.authorize(authorization.ObjectPatient, authorization.ActionUpdate), s.UpdatePatient)
	api.POST("/patients/:id/archive", s.authorize(authorization.ObjectPatient, authorization.ActionDelete), s.ArchivePatient)

	// -------- Catalog --------
	api.GET("/catalog", s.authorize(authorization.ObjectCatalog, authorization.ActionView), s.ListCatalogItems)
	api.POST("/catalog", s.authorize(authorization.ObjectCatalog, authorization.ActionCreate), s.CreateCatalogItem)
	api.GET("/catalog/:id", s.authorize(authorization.ObjectCatalog, authorization.ActionView), s.GetCatalogItem)
	api.PUT("/catalog/:id", s.authorize(authorization.ObjectCatalog, authorization.ActionUpdate), s.UpdateCatalogItem)
	api.POST("/catalog/:id/deactivate", s.authorize(authorization.ObjectCatalog, authorization.ActionDelete), s.DeactivateCatalogItem)

	// -------- Invoices --------
	api.GET("/invoices", s.authorize(authorization.ObjectInvoice, authorization.ActionView), s.ListInvoices)
	api.POST("/invoices", s.authorize(authorization.ObjectInvoice, authorization.ActionCreate), s.CreateInvoice)
	api.GET("/invoices/:id", s.authorize(authorization.ObjectInvoice, authorization.ActionView), s.GetInvoiceByID)
	api.GET("/invoices/:id/pdf", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceRender), s.RenderInvoice)
	api.GET("/invoices/:id/receipt", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceRender), s.RenderInvoiceReceipt)
	api.POST("/invoices/:id/send", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceSend), s.SendInvoice)
	api.POST("/invoices/:id/pay", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoicePay), s.MarkInvoicePaid)
	api.POST("/invoices/:id/cancel", s.authorize(authorization.ObjectInvoice, authorization.ActionInvoiceCancel), s.CancelInvoice)

	// -------- Calendar --------
	api.POST("/calendar/events", s.authorize(authorization.ObjectCalendar, authorization.ActionCreate), s.CreateEvent)
	api.GET("/calendar/events/:id", s.authorize(authorization.ObjectCalendar, authorization.ActionView), s.GetEvent)
	api.PUT("/calendar/events/:id", s.authorize(authorization.ObjectCalendar, authorization.ActionUpdate), s.UpdateEvent)
	api.DELETE("/calendar/events/:id", s.authorize(authorization.ObjectCalendar, authorization.ActionDelete), s.DeleteEvent)
	api.GET("/calendar/agenda", s.authorize(authorization.ObjectCalendar, authorization.ActionView), s.GetAgenda)

	// -------- Plan --------
	api.GET("/plan", s.authorize(authorization.ObjectPlan, authorization.ActionView), s.GetPlan)
	api.PUT("/plan", s.authorize(authorization.ObjectPlan, authorization.ActionPlanChange), s.ChangePlan)

	// -------- Support --------
	api.GET("/tickets", s.authorize(authorization.ObjectTicket, authorization.ActionView), s.ListMyTickets)
	api.POST("/tickets", s.authorize(authorization.ObjectTicket, authorization.ActionCreate), s.OpenTicket)
	api.GET("/tickets/:id", s.authorize(authorization.ObjectTicket, authorization.ActionView), s.GetTicket)
	api.POST("/tickets/:id/replies", s.authorize(authorization.ObjectTicket, authorization.ActionTicketReply), s.ReplyTicket)
	api.POST("/tickets/:id/close", s.authorize(authorization.ObjectTicket, authorization.ActionTicketStatus), s.CloseTicket)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin", s.SessionRequired())

	admin.GET("/tickets", s.authorize(authorization.ObjectAdminTicket, authorization.ActionView), s.AdminListTickets)
	admin.GET("/tickets/:id", s.authorize(authorization.ObjectAdminTicket, authorization.ActionView), s.GetTicket)
	admin.POST("/tickets/:id/replies", s.authorize(authorization.ObjectAdminTicket, authorization.ActionTicketReply), s.AdminReplyTicket)
	admin.POST("/tickets/:id/status", s.authorize(authorization.ObjectAdminTicket, authorization.ActionTicketStatus), s.AdminSetTicketStatus)
	admin.GET("/stats", s.authorize(authorization.ObjectAdminStats, authorization.ActionView), s.AdminStats)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
