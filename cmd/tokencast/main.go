package main

import (
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/0xChampi/hyper-threat-tokencast/internal/broadcast"
	"github.com/0xChampi/hyper-threat-tokencast/internal/community"
	"github.com/0xChampi/hyper-threat-tokencast/internal/config"
	database "github.com/0xChampi/hyper-threat-tokencast/internal/db"
	"github.com/0xChampi/hyper-threat-tokencast/internal/generate"
	"github.com/0xChampi/hyper-threat-tokencast/internal/pumpfun"
	"github.com/0xChampi/hyper-threat-tokencast/internal/show"
	"github.com/0xChampi/hyper-threat-tokencast/internal/swarm"

	apiserver "github.com/0xChampi/hyper-threat-tokencast/internal/api/server"
)

func main() {
	var (
		addr = flag.String("addr", "", "listen address (overrides config)")
		auto = flag.Bool("auto", true, "automatically transition segments on schedule")
	)
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting Tokencast Orchestration Server...")

	// 1. Setup Configuration
	cfg := config.Load()

	// 2. Initialize Infrastructure
	db := database.New(cfg)

	// 3. Run Database Migrations
	db.AutoMigrate()
	database.SeedAdminUser(db.DB, cfg.Auth.AdminPassword)

	// 4. Gateways
	intel := swarm.NewClient(cfg.Swarm.APIURL, cfg.Swarm.APIKey,
		time.Duration(cfg.Swarm.TimeoutSeconds)*time.Second)
	pump := pumpfun.NewClient(cfg.PumpFun.APIBase,
		time.Duration(cfg.PumpFun.TimeoutSeconds)*time.Second)
	feed := community.NewFeed(community.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB))

	// 5. Content Generators
	reg := generate.NewRegistry()
	reg.Register(show.TypeLaunchMonitor, generate.NewLaunchMonitorGenerator(pump, intel))
	reg.Register(show.TypeDeepAnalysis, generate.NewDeepAnalysisGenerator(intel))
	reg.Register(show.TypeSingleTokenDeepDive, generate.NewDeepAnalysisGenerator(intel))
	reg.Register(show.TypeTrendSurvey, generate.NewTrendSurveyGenerator(intel))
	reg.Register(show.TypeCommunityInteraction, generate.NewCommunityGenerator(feed))
	// creative-break, meta-breakdown and narrative-insight run on the
	// built-in placeholder until dedicated generators land.

	// 6. Orchestrator
	opts := show.Options{
		AutoTransition:   cfg.Show.AutoTransition && *auto,
		GeneratorTimeout: time.Duration(cfg.Show.GeneratorTimeoutSeconds) * time.Second,
		Viewers:          feed,
	}
	if cfg.Broadcast.AMQPURL != "" {
		opts.Publisher = broadcast.NewPublisher(cfg.Broadcast.AMQPURL, cfg.Broadcast.Queue)
	}

	orc := show.NewOrchestrator(show.NewStore(db.DB), reg, show.RealClock{}, opts)
	if err := orc.Reconcile(); err != nil {
		log.Fatalf("❌ Startup reconcile failed: %v", err)
	}

	// 7. Setup Metrics
	show.RegisterMetrics()
	go func() {
		http.Handle("/_metrics", promhttp.Handler())
		log.Printf("📊 Metrics exposed at http://localhost%s/_metrics", cfg.Server.MetricsPort)
		if err := http.ListenAndServe(cfg.Server.MetricsPort, nil); err != nil {
			log.Printf("⚠️ Metrics server error: %v", err)
		}
	}()

	// 8. Start Server
	srv := apiserver.New(cfg, db, orc, feed, pump, intel)

	listen := cfg.Server.Port
	if *addr != "" {
		listen = *addr
	}
	log.Printf("🚀 Tokencast API starting on %s", listen)

	if err := srv.Start(listen); err != nil {
		log.Fatalf("❌ Server failed to start: %v", err)
	}
}
