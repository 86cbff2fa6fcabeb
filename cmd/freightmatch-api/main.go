// README: Entry point; loads config, wires services, starts HTTP server and background sync.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"freightmatch/internal/config"
	httptransport "freightmatch/internal/http"
	"freightmatch/internal/infra"
	"freightmatch/internal/maps"
	"freightmatch/internal/modules/carrier"
	"freightmatch/internal/modules/costing"
	"freightmatch/internal/modules/geo"
	"freightmatch/internal/modules/load"
	"freightmatch/internal/modules/matching"
	"freightmatch/internal/notify"
)

// defaultBaseScore is the flat pairwise base before bonuses. Replace with a
// lane-rate model once historical acceptance data is imported.
const defaultBaseScore = 50.0

func main() {
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.WithError(err).Fatal("connect postgres")
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer redisClient.Close()

	amqpConn, amqpCh, err := infra.NewAMQPChannel(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
	if err != nil {
		log.WithError(err).Fatal("connect rabbitmq")
	}
	defer amqpConn.Close()

	// Market rate rows, when present, override the configured defaults.
	costingStore := costing.NewStore(dbPool)
	if rates, ok, err := costingStore.CurrentRates(ctx); err != nil {
		log.WithError(err).Warn("market rates unavailable, using config defaults")
	} else if ok {
		cfg.Costing.FuelPricePerGallon = rates.FuelPricePerGallon
		cfg.Costing.DriverRatePerMile = rates.DriverRatePerMile
	}

	var distance geo.Estimator = geo.NewHaversineEstimator()
	if cfg.Maps.APIKey != "" {
		routes, err := maps.NewRouteService(cfg.Maps.APIKey)
		if err != nil {
			log.WithError(err).Fatal("init maps client")
		}
		distance = maps.NewRouteEstimator(routes)
	}

	carrierStore := carrier.NewStore(dbPool)
	geoIndex := carrier.NewGeoIndex(redisClient)
	loadStore := load.NewStore(dbPool)
	matchStore := matching.NewStore(dbPool)

	base := matching.BaseScorerFunc(func(context.Context, *load.Load, *carrier.Carrier) (float64, error) {
		return defaultBaseScore, nil
	})
	engine := matching.NewEngine(base, matchStore, log)

	costEstimator := costing.NewEstimator(cfg.Costing)
	ranking := matching.NewService(carrierStore, loadStore, geoIndex, engine,
		distance, costEstimator, cfg.Matching, log)

	publisher := notify.NewPublisher(amqpCh, cfg.RabbitMQ.Exchange, log)
	committer := matching.NewCommitter(ranking, matchStore, distance, publisher,
		cfg.Matching.AutoMatchTopN, log)

	handler := httptransport.NewRouter(loadStore, carrierStore, geoIndex, ranking, committer, log)
	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	go carrier.RunGeoSync(ctx, carrierStore, geoIndex, carrier.DefaultGeoSyncInterval, log)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("shutdown")
		}
	}()

	log.WithField("addr", cfg.HTTP.Addr).Info("listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("serve")
	}
}
