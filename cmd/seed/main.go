package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"

	"retail-service/internal/cache"
	"retail-service/internal/config"
	"retail-service/internal/ingest"
	"retail-service/internal/repository"
	"retail-service/internal/service"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", "seed").Logger()

func main() {
	file := flag.String("file", "", "CSV file to import")
	truncate := flag.Bool("truncate", false, "delete every sale before importing")
	batchSize := flag.Int("batch", ingest.DefaultBatchSize, "records per insert batch")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: seed -file sales.csv [-truncate] [-batch 5000]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}
	cfg.ApplyLogLevel()

	ctx := context.Background()
	client, err := config.ConnectMongo(ctx, cfg.MongoURI, 3)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.MongoDatabase)
	repository.EnsureIndexes(ctx, db)

	if *truncate {
		res, err := db.Collection(repository.SalesCollection).DeleteMany(ctx, bson.D{})
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to clear sales")
		}
		logger.Info().Msgf("Deleted %d existing sales", res.DeletedCount)
	}

	f, err := os.Open(*file)
	if err != nil {
		logger.Fatal().Err(err).Msgf("Failed to open %s", *file)
	}
	defer f.Close()

	started := time.Now()
	pipeline := ingest.NewPipeline(repository.NewSaleRepository(db), ingest.NewNormalizer(ingest.SeedProfile), *batchSize)
	res, err := pipeline.Ingest(ctx, f, 0)
	if err != nil {
		logger.Fatal().Err(err).Msgf("Failed to import %s", *file)
	}

	if cfg.RedisAddr != "" {
		service.EvictSalesAggregates(ctx, cache.NewRedisCache(config.NewRedisClient(cfg.RedisAddr)))
	}

	for _, msg := range res.Errors {
		logger.Warn().Msg(msg)
	}
	logger.Info().
		Int("processed", res.Processed).
		Int("inserted", res.Inserted).
		Int("errors", res.ErrorCount).
		Dur("took", time.Since(started)).
		Msgf("Imported %s", *file)
}
