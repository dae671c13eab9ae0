package main

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/camellia/config"
	"github.com/Ramsey-B/camellia/pkg/database"
	"github.com/Ramsey-B/camellia/pkg/redis"
)

const (
	dependencyPostgres = "postgres"
	dependencyRedis    = "redis"
)

type postgresDependency struct {
	cfg    *config.Config
	logger ectologger.Logger
	db     database.DB
}

func (d *postgresDependency) GetName() string     { return dependencyPostgres }
func (d *postgresDependency) DependsOn() []string { return nil }

func (d *postgresDependency) Start(ctx context.Context) error {
	db, err := database.Connect(ctx, database.ConnectionConfig{
		Host:            d.cfg.DatabaseHost,
		Port:            d.cfg.DatabasePort,
		UserName:        d.cfg.DatabaseUserName,
		Password:        d.cfg.DatabasePassword,
		Name:            d.cfg.DatabaseName,
		SSLMode:         d.cfg.DatabaseSSLMode,
		MaxOpenConns:    d.cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    d.cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: d.cfg.DatabaseConnMaxLifetime,
	}, d.logger)
	if err != nil {
		return err
	}
	d.db = db
	return nil
}

func (d *postgresDependency) Stop(context.Context) error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

type redisDependency struct {
	cfg    *config.Config
	logger ectologger.Logger
	client *redis.Client
}

func (d *redisDependency) GetName() string     { return dependencyRedis }
func (d *redisDependency) DependsOn() []string { return nil }

func (d *redisDependency) Start(ctx context.Context) error {
	client, err := redis.NewClient(ctx, redis.Config{
		Addr:     d.cfg.RedisAddr(),
		Password: d.cfg.RedisPassword,
		DB:       d.cfg.RedisDB,
	}, d.logger)
	if err != nil {
		return err
	}
	d.client = client
	return nil
}

func (d *redisDependency) Stop(context.Context) error {
	if d.client == nil {
		return nil
	}
	return d.client.Close()
}
