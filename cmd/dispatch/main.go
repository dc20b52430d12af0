package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/safecity/dispatch/internal/cache"
	"github.com/safecity/dispatch/internal/dispatch"
	"github.com/safecity/dispatch/internal/legacy"
	"github.com/safecity/dispatch/internal/officer"
	"github.com/safecity/dispatch/internal/prediction"
	"github.com/safecity/dispatch/internal/profile"
	"github.com/safecity/dispatch/internal/realtime"
	"github.com/safecity/dispatch/internal/report"
	"github.com/safecity/dispatch/internal/shared/auth"
	"github.com/safecity/dispatch/internal/shared/config"
	"github.com/safecity/dispatch/internal/shared/database"
	"github.com/safecity/dispatch/internal/shared/events"
	"github.com/safecity/dispatch/internal/shared/metrics"
	secmiddleware "github.com/safecity/dispatch/internal/shared/middleware"
	"github.com/safecity/dispatch/internal/simulation"
)

// App holds all application dependencies
type App struct {
	Config   *config.Config
	DB       *database.DB
	Bus      events.EventBus
	Cache    *cache.Client
	Legacy   *legacy.Adapter
	Notifier *realtime.Notifier
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	app := &App{Config: cfg}

	// Database is not optional; every workflow runs against it
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	app.DB = db
	defer db.Close()

	if err := database.Migrate(ctx, db.Pool); err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}

	// Event bus: EventStoreDB when configured, in-process otherwise
	if cfg.EventStore.Enabled {
		bus, err := events.NewBus(ctx, cfg.EventStore)
		if err != nil {
			fmt.Printf("Warning: EventStoreDB not available: %v\n", err)
			fmt.Println("Falling back to in-process event bus...")
			app.Bus = events.NewLocal()
		} else {
			app.Bus = bus
			fmt.Println("EventStoreDB event bus initialized")
		}
	} else {
		app.Bus = events.NewLocal()
	}
	defer app.Bus.Close()

	// Redis list cache (optional)
	cacheClient, err := cache.New(ctx, cfg.Redis)
	if err != nil {
		fmt.Printf("Warning: Redis not available: %v\n", err)
		fmt.Println("Running without list cache...")
	} else if cacheClient != nil {
		app.Cache = cacheClient
		defer cacheClient.Close()
		fmt.Println("Redis list cache initialized")
	}

	// Realtime change feed, bridged onto the bus
	app.Notifier = realtime.NewNotifier()
	if err := realtime.Bridge(ctx, app.Bus, app.Notifier); err != nil {
		fmt.Printf("Warning: realtime bridge failed to start: %v\n", err)
	}

	watchCtx, stopWatchers := context.WithCancel(ctx)
	defer stopWatchers()
	if app.Cache != nil {
		go cache.WatchReports(watchCtx, app.Cache, app.Notifier)
	}

	// Legacy FIR registry (optional)
	if cfg.Legacy.Enabled {
		adapter := legacy.New(cfg.Legacy)
		if err := adapter.Start(ctx); err != nil {
			fmt.Printf("Warning: legacy registry not available: %v\n", err)
		} else {
			app.Legacy = adapter
			fmt.Println("Legacy FIR registry adapter started")
		}
	}

	// Repositories and workflows
	reportRepo := report.NewRepository(db.Pool)
	if app.Cache != nil {
		reportRepo.WithCache(app.Cache)
	}
	officerRepo := officer.NewRepository(db.Pool)
	profileRepo := profile.NewRepository(db.Pool)

	store := dispatch.NewPostgresStore(db.Pool, reportRepo, officerRepo)
	coordinator := dispatch.NewCoordinator(store, app.Bus)
	verifier := dispatch.NewVerifier(store, app.Bus)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(metrics.Middleware)
	r.Use(corsMiddleware)

	// Health checks (unauthenticated)
	r.Get("/health", healthHandler(app))
	r.Get("/ready", readyHandler(app))
	r.Handle("/metrics", metrics.Handler())

	// API info
	r.Get("/", infoHandler)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Auth))
		r.Use(secmiddleware.NewIPRateLimiter(20, 40).Middleware)
		r.Use(secmiddleware.InputSanitizer)

		reportHandler := report.NewHandler(reportRepo, app.Bus)
		reportRoutes := reportHandler.Routes()

		officerHandler := officer.NewHandler(officerRepo, app.Bus)
		officerRoutes := officerHandler.Routes()

		// Dispatch workflows live on the resources they act on
		dispatchHandler := dispatch.NewHandler(coordinator, verifier)
		dispatchHandler.Register(reportRoutes, officerRoutes)

		r.Mount("/reports", reportRoutes)
		r.Mount("/officers", officerRoutes)

		profileHandler := profile.NewHandler(profileRepo)
		r.Mount("/profiles", profileHandler.Routes())

		realtimeHandler := realtime.NewHandler(app.Notifier)
		r.Get("/stream", realtimeHandler.Stream)

		if cfg.Prediction.Enabled {
			predictionClient := prediction.NewClient(cfg.Prediction)
			predictionHandler := prediction.NewHandler(predictionClient)
			r.Mount("/predictions", predictionHandler.Routes())
			fmt.Printf("Prediction module enabled (service: %s)\n", cfg.Prediction.URL)
		}

		if app.Legacy != nil {
			legacyHandler := legacy.NewHandler(app.Legacy)
			r.Mount("/legacy", legacyHandler.Routes())
		}

		// Demo data and walkthrough scenarios, never in production
		if cfg.Server.Env != "production" {
			simHandler := simulation.NewHandler(reportRepo, officerRepo, coordinator, verifier)
			r.Mount("/simulation", simHandler.Routes())
			fmt.Println("Simulation module enabled")
		}
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		fmt.Println("\nShutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if app.Legacy != nil {
			if err := app.Legacy.Stop(shutdownCtx); err != nil {
				fmt.Printf("Legacy adapter shutdown error: %v\n", err)
			}
		}

		if err := srv.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Server shutdown error: %v\n", err)
		}
		close(done)
	}()

	fmt.Println("============================================")
	fmt.Println("SafeCity Crime Report Dispatch Service")
	fmt.Println("============================================")
	fmt.Printf("Environment:  %s\n", cfg.Server.Env)
	fmt.Printf("Server:       http://localhost:%d\n", cfg.Server.Port)
	fmt.Printf("API:          http://localhost:%d/api/v1\n", cfg.Server.Port)
	fmt.Printf("Health:       http://localhost:%d/health\n", cfg.Server.Port)
	fmt.Printf("Stream:       http://localhost:%d/api/v1/stream\n", cfg.Server.Port)
	fmt.Println("============================================")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}

	<-done
	fmt.Println("Server stopped")
}

func infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    "SafeCity Crime Report Dispatch Service",
		"version": "0.1.0",
		"docs":    "/api/v1",
	})
}

func healthHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
		})
	}
}

func readyHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"server": "ready",
		}

		if err := app.DB.Health(r.Context()); err != nil {
			checks["database"] = "not ready: " + err.Error()
		} else {
			checks["database"] = "ready"
		}

		if err := app.Bus.Health(); err != nil {
			checks["events"] = "not ready: " + err.Error()
		} else {
			checks["events"] = "ready"
		}

		if app.Cache != nil {
			if err := app.Cache.Health(r.Context()); err != nil {
				checks["cache"] = "not ready: " + err.Error()
			} else {
				checks["cache"] = "ready"
			}
		} else {
			checks["cache"] = "not configured"
		}

		if app.Legacy != nil {
			if err := app.Legacy.Health(r.Context()); err != nil {
				checks["legacy"] = "not ready: " + err.Error()
			} else {
				checks["legacy"] = "ready"
			}
		} else {
			checks["legacy"] = "not configured"
		}

		allReady := true
		for _, status := range checks {
			if status != "ready" && status != "not configured" {
				allReady = false
				break
			}
		}

		status := http.StatusOK
		if !allReady {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"status": map[bool]string{true: "ready", false: "not ready"}[allReady],
			"checks": checks,
		})
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
