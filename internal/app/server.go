package app

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"accountshop/internal/auth"
	"accountshop/internal/config"
	"accountshop/internal/core"
	"accountshop/internal/handlers"
)

// NewRouter wires middleware, the auth collaborator, and the product routes
// into a gin engine.
func NewRouter(cfg config.Config, db *gorm.DB, log *slog.Logger) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(log))
	r.Use(Timeout(cfg.Server.RequestTimeout))

	authSvc := auth.NewService(db, cfg.Auth)
	authH := handlers.NewAuth(authSvc)
	productsH := handlers.NewProducts(core.New(db, log), log)

	// health
	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.Ping()
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "db": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	a := r.Group("/auth")
	{
		a.POST("/register", authH.Register)
		a.POST("/jwt/login", authH.Login)
	}

	p := r.Group("/products")
	{
		p.GET("/", productsH.List)
		p.GET("/item/:id", productsH.GetItem)
		p.GET("/:tags/sorted/:method", productsH.Sorted)

		secured := p.Group("", authH.RequireAuth())
		secured.POST("/add/item", productsH.AddItem)
		secured.POST("/add/images/", productsH.AddImage)
		secured.POST("/delete/item", productsH.Delete)
		secured.POST("/rework/item/:id", productsH.Rework)
		secured.PUT("/rework/item/:id", productsH.Rework)
		secured.GET("/buy/item/:id", productsH.Buy)
	}

	return r
}

// NewServer wraps the router in an http.Server with the configured timeouts.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}
