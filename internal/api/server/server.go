package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/0xChampi/hyper-threat-tokencast/internal/community"
	"github.com/0xChampi/hyper-threat-tokencast/internal/config"
	database "github.com/0xChampi/hyper-threat-tokencast/internal/db"
	"github.com/0xChampi/hyper-threat-tokencast/internal/pumpfun"
	"github.com/0xChampi/hyper-threat-tokencast/internal/show"
	"github.com/0xChampi/hyper-threat-tokencast/internal/swarm"

	"github.com/0xChampi/hyper-threat-tokencast/internal/api/handlers"
	"github.com/0xChampi/hyper-threat-tokencast/internal/api/middleware"
)

type Server struct {
	cfg    *config.Config
	db     *database.Client
	orc    *show.Orchestrator
	feed   *community.Feed
	pump   *pumpfun.Client
	intel  *swarm.Client
	router *gin.Engine
}

func New(cfg *config.Config, db *database.Client, orc *show.Orchestrator,
	feed *community.Feed, pump *pumpfun.Client, intel *swarm.Client) *Server {
	if cfg.Server.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode) // Set to Release for production
	}

	s := &Server{
		cfg:    cfg,
		db:     db,
		orc:    orc,
		feed:   feed,
		pump:   pump,
		intel:  intel,
		router: gin.Default(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	// CORS Configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}

	// "Authorization" must be allowed so the frontend can send the JWT
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}

	s.router.Use(cors.New(corsConfig))
}

func (s *Server) setupRoutes() {
	secret := []byte(s.cfg.Auth.JWTSecret)

	authHandler := handlers.NewAuthHandler(s.db.DB, secret)
	showHandler := handlers.NewShowHandler(s.orc)
	tokenHandler := handlers.NewTokenHandler(show.NewStore(s.db.DB), s.pump, s.intel)
	communityHandler := handlers.NewCommunityHandler(s.feed, s.orc)

	// Health Check
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "tokencast"})
	})

	// API Group
	v1 := s.router.Group("/api/v1")
	{
		// ==========================================
		// PUBLIC ROUTES (No Token Required)
		// ==========================================
		v1.POST("/auth/login", authHandler.Login)

		v1.GET("/shows/current", showHandler.CurrentState)
		v1.GET("/shows/:id", showHandler.GetShow)

		v1.GET("/tokens/launches", tokenHandler.GetLaunches)
		v1.GET("/tokens/trending", tokenHandler.GetTrending)
		v1.GET("/tokens/:address", tokenHandler.GetToken)

		// Audience feedback is open; the feed degrades to a no-op
		// when Redis is down.
		v1.POST("/community/mentions", communityHandler.PostMention)
		v1.POST("/community/questions", communityHandler.PostQuestion)
		v1.GET("/community/feed", communityHandler.GetFeed)

		// ==========================================
		// PROTECTED ROUTES (JWT Token Required)
		// ==========================================
		protected := v1.Group("/")
		protected.Use(middleware.RequireAuth(secret)) // Checks for valid JWT
		{
			// --- ADMIN ONLY ---
			protected.POST("/auth/register", middleware.RequireRole("admin"), authHandler.Register)

			// --- HOST (Show Controllers) ---
			// Hosts drive the broadcast: start, skip ahead, end.
			protected.POST("/shows/start", middleware.RequireRole("host"), showHandler.StartShow)
			protected.POST("/shows/transition", middleware.RequireRole("host"), showHandler.Transition)
			protected.POST("/shows/end", middleware.RequireRole("host"), showHandler.EndShow)

			protected.POST("/tokens/analyze", middleware.RequireRole("host"), tokenHandler.Analyze)
			protected.POST("/community/viewers", middleware.RequireRole("host"), communityHandler.PostViewers)
		}
	}
}

// Start runs the server on the configured port
func (s *Server) Start(addr string) error {
	return s.router.Run(addr)
}
