package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"gorm.io/gorm"

	"github.com/camden-git/vanshavalibackend/config"
	"github.com/camden-git/vanshavalibackend/database"
	"github.com/camden-git/vanshavalibackend/handlers"
	"github.com/camden-git/vanshavalibackend/kinship"
	"github.com/camden-git/vanshavalibackend/models"
	"github.com/camden-git/vanshavalibackend/realtime"
	"github.com/camden-git/vanshavalibackend/repository"
	"github.com/camden-git/vanshavalibackend/rules"
	"github.com/camden-git/vanshavalibackend/services"
	"github.com/camden-git/vanshavalibackend/workers"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}

// app is everything a command needs from the stores.
type app struct {
	cfg      config.Config
	gormDB   *gorm.DB
	sqlDB    *sql.DB
	members  *repository.MemberRepository
	ruleRepo *repository.RelationRuleRepository
	service  *services.RelationService
}

func loadConfig() (config.Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	return config.LoadConfig()
}

func openApp(cfg config.Config) (*app, error) {
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	gormDB, err := database.InitGormDB(cfg.DatabasePath, cfg.GormLogLevel)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrateModels(gormDB); err != nil {
		return nil, err
	}
	sqlDB, err := database.InitDB(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		gormDB:   gormDB,
		sqlDB:    sqlDB,
		members:  repository.NewMemberRepository(gormDB),
		ruleRepo: repository.NewRelationRuleRepository(gormDB),
	}
	engine := kinship.NewEngine(kinship.Options{MaxBloodHops: cfg.MaxBloodHops, MaxSpouseHops: cfg.MaxSpouseHops})
	a.service = services.NewRelationService(a.members, a.ruleRepo, engine, cfg.SnapshotTTL)
	return a, nil
}

func (a *app) Close() {
	if err := a.sqlDB.Close(); err != nil {
		log.Printf("Warning: closing relationship store: %v", err)
	}
	if db, err := a.gormDB.DB(); err == nil {
		db.Close()
	}
}

// seedRules replaces the stored rule table with the rules of path, or the
// embedded table when path is empty. Materialized relations computed under
// the old table are dropped.
func (a *app) seedRules(path string) (int, error) {
	rs, err := rules.LoadFile(path)
	if err != nil {
		return 0, err
	}
	rows := make([]models.RelationRule, len(rs))
	for i, r := range rs {
		rows[i] = models.RelationRuleFromKinship(i, r)
	}
	if err := a.ruleRepo.ReplaceAll(rows); err != nil {
		return 0, err
	}
	a.service.Invalidate()
	if n, err := database.DeleteAllRelationships(a.sqlDB); err != nil {
		return 0, err
	} else if n > 0 {
		log.Printf("cleared %d materialized relationship(s) after rule seeding", n)
	}
	return len(rows), nil
}

func (a *app) seedRulesIfEmpty() error {
	n, err := a.ruleRepo.Count()
	if err != nil {
		return err
	}
	if n > 0 {
		log.Printf("relation rule table has %d rule(s)", n)
		return nil
	}
	seeded, err := a.seedRules(a.cfg.RulesPath)
	if err != nil {
		return fmt.Errorf("failed to seed relation rules: %w", err)
	}
	source := a.cfg.RulesPath
	if source == "" {
		source = "embedded default"
	}
	log.Printf("seeded %d relation rule(s) from %s", seeded, source)
	return nil
}

func serve(cfg config.Config) error {
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.seedRulesIfEmpty(); err != nil {
		return err
	}

	hub := realtime.NewHub(cfg.AllowedOrigins)
	go hub.Run()

	log.Printf("Initializing relation worker pool (Workers: %d, Queue Size: %d)...", cfg.NumRelationWorkers, cfg.RelationQueueSize)
	generator := workers.NewRelationGenerator(a.service, a.sqlDB, hub, cfg.RelationQueueSize, cfg.NumRelationWorkers)
	defer generator.Stop()

	log.Printf("Using database: %s", cfg.DatabasePath)
	log.Printf("Traversal bounds: %d blood hop(s), %d spouse hop(s)", cfg.MaxBloodHops, cfg.MaxSpouseHops)

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}

	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsHandler.Handler)

	r.Handle("/metrics", promhttp.Handler())

	h := &handlers.Handlers{
		Relations: &handlers.RelationsHandler{Service: a.service, Generator: generator, DB: a.sqlDB},
		Members:   &handlers.MemberHandler{Members: a.members, Service: a.service, DB: a.sqlDB, Hub: hub},
		Rules:     &handlers.RulesHandler{Rules: a.ruleRepo, Service: a.service, DB: a.sqlDB, Hub: hub},
		Tree:      &handlers.TreeHandler{Members: a.members, Service: a.service, DB: a.sqlDB},
		WS:        hub.ServeWS,
		Timeout:   60 * time.Second,
	}
	h.Mount(r)

	serverAddr := ":" + cfg.Port
	fmt.Printf("Server starting on http://localhost:%s\n", cfg.Port)
	log.Printf("Server listening on %s", serverAddr)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 75 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
