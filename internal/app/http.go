package app

import (
	"context"

	"connect-service/internal/account"
	"connect-service/internal/auth/handler"
	"connect-service/internal/auth/provider"
	"connect-service/internal/auth/provider/oidc"
	"connect-service/internal/config"
	"connect-service/internal/deauth"
	"connect-service/internal/extsession"
	"connect-service/internal/link"
	"connect-service/internal/middleware"
	"connect-service/internal/reconcile"
	"connect-service/internal/session"

	"github.com/gin-gonic/gin"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	sessionStore := session.NewRedisStore(infra.Redis.Client)
	externalStore := extsession.NewRedisStore(infra.Redis.Client)

	accounts := account.NewService(infra.DB)
	linkStore := link.NewDBStore(infra.DB)
	linker := link.NewLinker(linkStore, accounts)

	probe := reconcile.NewProbe(sessionStore, externalStore, linkStore)
	deauthHandler := deauth.NewHandler(cfg.DeauthSecret, linker)

	oidcProvider, err := oidc.New(
		ctx,
		cfg.ProviderIssuer,
		cfg.ProviderClientID,
		cfg.ProviderClientSecret,
		cfg.ProviderRedirectURL,
	)
	if err != nil {
		return nil, nil, err
	}

	registry := provider.NewRegistry(oidcProvider)

	authHandler := handler.NewHandler(
		registry,
		sessionStore,
		externalStore,
		accounts,
		linker,
		probe,
		deauthHandler,
	)

	authMiddleware := middleware.NewAuthMiddleware(sessionStore)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())

	// ----------------------------
	// Public Routes
	// ----------------------------

	authHandler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ----------------------------
	// Protected API Routes
	// ----------------------------

	api := router.Group("/api")
	api.Use(middleware.GinRequireAuth(authMiddleware))

	api.GET("/me", func(c *gin.Context) {
		userID, _ := middleware.UserIDFromContext(c.Request.Context())
		c.JSON(200, gin.H{
			"user_id": userID,
		})
	})

	// ----------------------------
	// Cleanup
	// ----------------------------

	return router, func() error {
		return infra.DB.Close()
	}, nil
}
