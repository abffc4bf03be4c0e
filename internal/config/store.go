package config

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-sql-driver/mysql"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const retryDelay = 3 * time.Second

func ConnectMongo(ctx context.Context, uri string, attempts int) (*mongo.Client, error) {
	var client *mongo.Client
	var err error
	for i := 0; i < attempts; i++ {
		client, err = mongo.Connect(ctx, options.Client().ApplyURI(uri))
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = client.Ping(pingCtx, readpref.Primary())
			cancel()
			if err == nil {
				logger.Info().Msg("Connected to MongoDB")
				return client, nil
			}
			_ = client.Disconnect(ctx)
		}
		logger.Warn().Err(err).Msgf("Retry %d: failed to connect to MongoDB", i+1)
		time.Sleep(retryDelay)
	}
	return nil, fmt.Errorf("failed to connect to MongoDB after %d attempts: %w", attempts, err)
}

// ConnectMySQL opens the import audit database. parseTime is forced on so DATETIME columns scan into time.Time.
func ConnectMySQL(dsn string, attempts int) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true

	var db *sql.DB
	for i := 0; i < attempts; i++ {
		db, err = sql.Open("mysql", cfg.FormatDSN())
		if err == nil {
			err = db.Ping()
			if err == nil {
				logger.Info().Msgf("Connected to MySQL %s", cfg.DBName)
				return db, nil
			}
			db.Close()
		}
		logger.Warn().Err(err).Msgf("Retry %d: failed to connect to MySQL %s (%s)", i+1, cfg.DBName, cfg.Addr)
		time.Sleep(retryDelay)
	}
	return nil, fmt.Errorf("failed to connect to MySQL %s after retries: %w", cfg.DBName, err)
}

func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: addr,
	})
}
