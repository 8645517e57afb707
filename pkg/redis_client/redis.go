package redis_client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/travigo/feedcheck/pkg/util"
)

var Client *redis.Client

const defaultConnectionAddress = "localhost:6379"
const defaultConnectionPassword = ""
const defaultDatabase = 0

// Options reads FEEDCHECK_REDIS_ADDRESS, FEEDCHECK_REDIS_PASSWORD and FEEDCHECK_REDIS_DATABASE
func Options(env map[string]string) (*redis.Options, error) {
	options := &redis.Options{
		Addr:     defaultConnectionAddress,
		Password: defaultConnectionPassword,
		DB:       defaultDatabase,
	}

	if env["FEEDCHECK_REDIS_ADDRESS"] != "" {
		options.Addr = env["FEEDCHECK_REDIS_ADDRESS"]
	}

	if env["FEEDCHECK_REDIS_PASSWORD"] != "" {
		options.Password = env["FEEDCHECK_REDIS_PASSWORD"]
	}

	if env["FEEDCHECK_REDIS_DATABASE"] != "" {
		database, err := strconv.Atoi(env["FEEDCHECK_REDIS_DATABASE"])
		if err != nil {
			return nil, fmt.Errorf("FEEDCHECK_REDIS_DATABASE: %w", err)
		}
		options.DB = database
	}

	return options, nil
}

func Connect(ctx context.Context) error {
	options, err := Options(util.GetEnvironmentVariables())
	if err != nil {
		return err
	}

	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("ping redis at %s: %w", options.Addr, err)
	}

	log.Debug().Str("address", options.Addr).Int("database", options.DB).Msg("Connected to Redis")

	Client = client

	return nil
}

func Close() {
	if Client != nil {
		Client.Close()
		Client = nil
	}
}
