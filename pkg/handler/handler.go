package handler

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"keeway/pkg/middleware"
	"keeway/pkg/service"
)

type Config struct {
	AllowedOrigins []string
	AdminKey       string
	Debug          bool
}

type Handler struct {
	service *service.Service
	cfg     Config
}

func NewHandler(service *service.Service, cfg Config) *Handler {
	return &Handler{service: service, cfg: cfg}
}

func (h *Handler) InitRoute() *gin.Engine {
	if !h.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	origins := h.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "x-api-key", "x-admin-key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}))

	misc := router.Group("/misc")
	{
		misc.GET("/ping", h.Ping)
		misc.GET("/tokens", h.ListTokens)
		misc.GET("/networks", h.ListNetworks)
	}

	apps := router.Group("/apps", middleware.AdminAuth(h.cfg.AdminKey))
	{
		apps.POST("", h.CreateApp)
		apps.GET("/:id", h.GetApp)
		apps.PATCH("/:id", h.UpdateApp)
		apps.DELETE("/:id", h.DeleteApp)
	}

	api := router.Group("/api", middleware.AppAuth(h.service))
	{
		api.POST("/wallets", h.GenerateWallet)
		api.GET("/wallets", h.ListWallets)
		api.GET("/wallets/:reference", h.GetWallet)
		api.GET("/wallets/:reference/transactions", h.WalletTransactions)
		api.GET("/balance", h.Balance)
		api.POST("/send", h.SendCrypto)
	}

	exchange := router.Group("/exchange", middleware.AppAuth(h.service))
	{
		auth := exchange.Group("/auth")
		{
			auth.POST("/signup", h.SignUp)
			auth.POST("/signin", h.SignIn)
			auth.POST("/verify", h.VerifyEmail)
			auth.POST("/initiate-reset", h.InitiateReset)
			auth.POST("/verify-reset", h.VerifyReset)
			auth.POST("/reset-password", h.ResetPassword)
		}

		user := exchange.Group("", middleware.UserAuth(h.service))
		{
			user.GET("/profile", h.Profile)
			user.PATCH("/profile", h.UpdateProfile)
			user.PATCH("/profile/password", h.UpdatePassword)
			user.POST("/signout", h.SignOut)
			user.GET("/totp", h.SetupTotp)
			user.POST("/totp/validate", h.ValidateTotp)
			user.GET("/wallets", h.UserWallets)
			user.GET("/wallets/:token", h.UserWalletByToken)
			user.GET("/transactions", h.UserTransactions)
			user.POST("/send", h.UserSend)
		}
	}

	return router
}
