package api

import (
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/tipdrop/tipdrop-api/docs"
	v1 "github.com/tipdrop/tipdrop-api/internal/api/handler/v1"
	"github.com/tipdrop/tipdrop-api/internal/api/middleware"
	"github.com/tipdrop/tipdrop-api/internal/config"
	"github.com/tipdrop/tipdrop-api/internal/repository"
	"github.com/tipdrop/tipdrop-api/internal/repository/dao"
	"github.com/tipdrop/tipdrop-api/internal/service"
)

type Server struct {
	Config *config.AppConfig
	Router *gin.Engine
}

func NewServer(conf *config.AppConfig, db *gorm.DB) *Server {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	s := &Server{
		Config: conf,
		Router: engine,
	}

	s.MountMiddlewares()

	authHandler := s.initAuthHandler(db)
	userHandler := s.initUserHandler(db)
	venueHandler := s.initVenueHandler(db)
	tipHandler := s.initTipHandler(db)
	payoutHandler := s.initPayoutHandler(db)
	webhookHandler := s.initWebhookHandler(db)
	s.MountHandlers(authHandler, userHandler, venueHandler, tipHandler, payoutHandler, webhookHandler)

	return s
}

func (s *Server) initAuthHandler(db *gorm.DB) *v1.AuthHandler {
	userDAO := dao.NewUserDAO(db)
	repo := repository.NewUserRepository(userDAO)
	svc := service.NewAuthService(repo)
	handler := v1.NewAuthHandler(s.Config.API, svc)

	return handler
}

func (s *Server) initUserHandler(db *gorm.DB) *v1.UserHandler {
	userDAO := dao.NewUserDAO(db)
	repo := repository.NewUserRepository(userDAO)
	svc := service.NewUserService(repo)
	handler := v1.NewUserHandler(svc)

	return handler
}

func (s *Server) initVenueHandler(db *gorm.DB) *v1.VenueHandler {
	venueDAO := dao.NewVenueDAO(db)
	repo := repository.NewVenueRepository(venueDAO)
	svc := service.NewVenueService(repo)
	handler := v1.NewVenueHandler(svc)

	return handler
}

func (s *Server) initTipHandler(db *gorm.DB) *v1.TipHandler {
	ledgerRepo := repository.NewLedgerRepository(dao.NewLedgerDAO(db))
	venueRepo := repository.NewVenueRepository(dao.NewVenueDAO(db))
	gateway := service.NewStripeGateway(s.Config.Stripe)
	svc := service.NewTipService(ledgerRepo, venueRepo, gateway, s.Config.Ledger.FeeBasisPoints, s.Config.Ledger.Currency)
	ledgerSvc := s.initLedgerService(db)
	handler := v1.NewTipHandler(svc, ledgerSvc)

	return handler
}

func (s *Server) initPayoutHandler(db *gorm.DB) *v1.PayoutHandler {
	svc := s.initLedgerService(db)
	venueSvc := service.NewVenueService(repository.NewVenueRepository(dao.NewVenueDAO(db)))
	uSvc := service.NewUserService(repository.NewUserRepository(dao.NewUserDAO(db)))
	handler := v1.NewPayoutHandler(svc, venueSvc, uSvc)

	return handler
}

func (s *Server) initWebhookHandler(db *gorm.DB) *v1.WebhookHandler {
	svc := s.initLedgerService(db)
	handler := v1.NewWebhookHandler(svc)

	return handler
}

func (s *Server) initLedgerService(db *gorm.DB) *service.LedgerService {
	ledgerRepo := repository.NewLedgerRepository(dao.NewLedgerDAO(db))
	venueRepo := repository.NewVenueRepository(dao.NewVenueDAO(db))
	resolver := service.NewDistributionResolver(service.UnassignedPersonalPolicy(s.Config.Ledger.UnassignedPersonalPolicy))

	return service.NewLedgerService(ledgerRepo, venueRepo, resolver)
}

func (s *Server) MountMiddlewares() {
	// Logger and Recovery are needed unless we use gin.Default().
	s.Router.Use(gin.Logger())
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
}

func (s *Server) MountHandlers(
	authHandler *v1.AuthHandler,
	userHandler *v1.UserHandler,
	venueHandler *v1.VenueHandler,
	tipHandler *v1.TipHandler,
	payoutHandler *v1.PayoutHandler,
	webhookHandler *v1.WebhookHandler,
) {
	const basePath = "/api/v1"

	public := s.Router.Group(basePath)
	{
		public.POST("/auth/signup", authHandler.HandleSignup)
		public.POST("/auth/login", authHandler.HandleLogin)

		// Customers tip without an account.
		public.POST("/venues/:venueID/tips", tipHandler.HandleCreateTip)
		public.GET("/tips/:tipID", tipHandler.HandleGetTip)

		public.POST("/webhooks/stripe", webhookHandler.HandleStripeEvent)
	}

	authed := s.Router.Group(basePath, middleware.NewAuthenticator(s.Config.API.JWTSigningKey).VerifyJWT())
	{
		authed.GET("/users/me", userHandler.HandleGetMe)

		authed.POST("/venues", venueHandler.HandleCreateVenue)
		authed.GET("/venues/:venueID", venueHandler.HandleGetVenue)
		authed.PUT("/venues/:venueID/mode", venueHandler.HandleUpdateVenueMode)
		authed.POST("/venues/:venueID/staff", venueHandler.HandleAddStaff)
		authed.GET("/venues/:venueID/staff", venueHandler.HandleListStaff)
		authed.PUT("/venues/:venueID/staff/:staffID/active", venueHandler.HandleSetStaffActive)
		authed.POST("/venues/:venueID/qrcodes", venueHandler.HandleCreateQRCode)

		authed.GET("/staff/:staffID/balance", payoutHandler.HandleGetBalance)
		authed.POST("/staff/:staffID/payouts", payoutHandler.HandleSettle)
		authed.GET("/staff/:staffID/payouts", payoutHandler.HandleListPayouts)
		authed.POST("/staff/:staffID/reconcile", payoutHandler.HandleReconcile)

		authed.POST("/admin/reconcile", payoutHandler.HandleReconcileAll)
	}

	s.Router.GET("/", v1.HandleHealthcheck)

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "TipDrop API"
	docs.SwaggerInfo.Description = "QR tipping for venues: tip collection, distribution and payouts."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}
