package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/utakatalp/league-simulator/internal/api"
	"github.com/utakatalp/league-simulator/internal/cache"
	"github.com/utakatalp/league-simulator/internal/config"
	"github.com/utakatalp/league-simulator/internal/league"
	"github.com/utakatalp/league-simulator/internal/service"
	"github.com/utakatalp/league-simulator/internal/store"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML settings file")
	offline := flag.Bool("offline", false, "play a whole season in memory and print it instead of serving HTTP")
	seed := flag.Int64("seed", 0, "random seed for -offline (0 picks one from the clock)")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load config")
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithError(err).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if *offline {
		if *seed == 0 {
			*seed = time.Now().UnixNano()
		}
		if err := playOffline(os.Stdout, cfg.Teams, rand.New(rand.NewSource(*seed))); err != nil {
			logger.WithError(err).Fatal("Offline season failed")
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := store.NewStore(connectCtx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(connectCtx); err != nil {
		return err
	}
	logger.Info("Database ready")

	var opts []service.Option
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(connectCtx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		opts = append(opts, service.WithCache(cache.NewSnapshots(rdb, cfg.CacheTTL)))
		logger.WithField("addr", cfg.RedisAddr).Info("League cache enabled")
	}

	svc := service.New(st, cfg.Teams, logger, opts...)
	teams, err := st.GetTeams(connectCtx)
	if err != nil {
		return err
	}
	if len(teams) == 0 {
		if err := svc.Initialize(connectCtx); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewHandler(svc, logger).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("Starting league simulator")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// playOffline simulates a full season week by week and prints the table and
// predictions after each one.
func playOffline(w io.Writer, configured []config.TeamConfig, rng *rand.Rand) error {
	teams := make([]*league.Team, len(configured))
	for i, tc := range configured {
		strength := tc.Strength
		if strength == 0 {
			strength = 50 + rng.Intn(41)
		}
		teams[i] = &league.Team{ID: i + 1, Name: tc.Name, Strength: strength}
	}

	matches, err := league.GenerateFullSeason(teams)
	if err != nil {
		return err
	}
	league.WriteSchedule(w, "Fixtures", matches)

	sim := league.NewSimulator(rng)
	for {
		week, ok := league.UnplayedWeek(matches)
		if !ok {
			break
		}
		played := sim.SimulateWeek(matches, week)
		fmt.Fprintf(w, "\nWeek %d results\n", week)
		for _, m := range played {
			fmt.Fprintf(w, "  %s\n", m.ScoreLine())
		}

		table := league.BuildTable(teams, matches)
		league.WriteTable(w, "", table)
		remaining := league.RemainingMatches(matches, teams[0].ID)
		league.WritePredictions(w, "Championship predictions", league.PredictChampion(teams, table, remaining))
	}
	return nil
}
