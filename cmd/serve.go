package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"smartbus-service/internal/admin"
	"smartbus-service/internal/bookings"
	"smartbus-service/internal/buses"
	"smartbus-service/internal/config"
	"smartbus-service/internal/fleet"
	"smartbus-service/internal/network"
	"smartbus-service/internal/relay"
	"smartbus-service/internal/reviews"
	"smartbus-service/internal/tracking"
	"smartbus-service/internal/users"
	"smartbus-service/migrations"
	"smartbus-service/pkg/db"
	"smartbus-service/pkg/httpx"
	"smartbus-service/pkg/jwt"
	"smartbus-service/pkg/kafka"
	rredis "smartbus-service/pkg/redis"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the fleet simulation and the live relay",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// ── 1. JWT secret ──
	if err := jwt.Init(cfg.JWTSecret); err != nil {
		return err
	}

	// ── 2. PostgreSQL ──
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.RunMigrations(ctx, migrations.FS); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}

	// ── 3. Redis ──
	redisClient, err := rredis.NewClient(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	// ── 4. Kafka ──
	kafkaClient := kafka.NewClient(cfg.KafkaBrokers)
	defer kafkaClient.Close()
	if err := kafkaClient.EnsureTopics(ctx, kafka.Topics...); err != nil {
		return err
	}

	// ── 5. Services ──
	sqlDB := database.SQL()
	userSvc := users.NewService(users.NewRepository(sqlDB), cfg.BcryptCost)
	busSvc := buses.NewService(buses.NewRepository(sqlDB), redisClient)
	bookingSvc := bookings.NewService(bookings.NewRepository(sqlDB), busSvc, redisClient, kafkaClient, cfg.SeatHoldTTL)
	reviewSvc := reviews.NewService(reviews.NewRepository(sqlDB), bookingSvc)
	sim := fleet.NewSimulator(cfg.SimSeed, fleet.NewKafkaSink(kafkaClient))

	// ── 6. Background workers ──
	go sim.Run(ctx, cfg.SimInterval)

	wsHub := tracking.NewHub()
	relay.New(kafkaClient, wsHub, relayGroup()).Start(ctx)

	// ── 7. HTTP router ──
	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: (&server{
			cfg:      cfg,
			limiter:  redisClient,
			users:    users.NewHandler(userSvc),
			buses:    buses.NewHandler(busSvc),
			bookings: bookings.NewHandler(bookingSvc),
			admin:    admin.NewHandler(admin.NewRepository(sqlDB)),
			reviews:  reviews.NewHandler(reviewSvc),
			network:  network.NewHandler(network.NewRepository(sqlDB)),
			fleet:    fleet.NewHandler(sim, bookingSvc),
			hub:      wsHub,
		}).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ── 8. Start server ──
	errc := make(chan error, 1)
	go func() {
		log.Printf("smartbus listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	// ── 9. Graceful shutdown ──
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Println("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	cancel() // stop simulation and consumers
	return nil
}

// relayGroup is unique per host so every instance receives the whole
// stream for its own WebSocket clients.
func relayGroup() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "local"
	}
	return "smartbus-relay-" + host
}

type server struct {
	cfg     config.Config
	limiter httpx.Limiter

	users    *users.Handler
	buses    *buses.Handler
	bookings *bookings.Handler
	admin    *admin.Handler
	reviews  *reviews.Handler
	network  *network.Handler
	fleet    *fleet.Handler
	hub      *tracking.Hub
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(httpx.Recover)
	r.Use(httpx.CORS(s.cfg.CORSOrigins))
	r.Use(chimw.SetHeader("X-Content-Type-Options", "nosniff"))
	r.Use(chimw.SetHeader("X-Frame-Options", "DENY"))
	r.Use(chimw.SetHeader("Referrer-Policy", "no-referrer"))

	r.NotFound(httpx.NotFound)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{
			"status":    "OK",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(httpx.RateLimit(s.limiter, s.cfg.RateLimit, s.cfg.RateLimitWindow))
		r.NotFound(httpx.NotFound)

		r.Mount("/auth", s.users.Routes())
		r.Mount("/buses", s.buses.Routes())
		r.Mount("/bookings", s.bookings.Routes())
		r.Mount("/admin", s.admin.Routes())
		r.Mount("/reviews", s.reviews.Routes())
		r.Mount("/iot", s.fleet.IoTRoutes())
		r.Mount("/rfid", s.fleet.RFIDRoutes())
		r.Mount("/fleet", s.fleet.FleetRoutes())
		s.network.Register(r)
	})

	r.Mount("/ws", s.hub.Routes())
	return r
}
