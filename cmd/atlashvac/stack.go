package main

import (
	"context"
	"database/sql"

	"github.com/atlasgrowth23/atlashvac/internal/config"
	"github.com/atlasgrowth23/atlashvac/internal/database"
	"github.com/atlasgrowth23/atlashvac/internal/domain"
	"github.com/atlasgrowth23/atlashvac/internal/repository"
	"github.com/atlasgrowth23/atlashvac/internal/service"
	"github.com/atlasgrowth23/atlashvac/internal/store"
	"github.com/atlasgrowth23/atlashvac/internal/tenant"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// stack is every long-lived component the commands share.
type stack struct {
	companies repository.CompaniesRepository
	lookup    *tenant.CachedLookup
	resolver  *tenant.Resolver
	pages     *service.PageService

	db          *sql.DB
	redisClient *redis.Client
}

// buildStack never fails: a misconfigured or unreachable store degrades to passthrough so the
// server still serves non-tenant routes.
func buildStack(ctx context.Context, cfg *config.Config, logger *zap.Logger) *stack {
	s := &stack{}

	if err := cfg.Validate(); err != nil {
		logger.Error("Tenant store misconfigured, host resolution disabled", zap.Error(err))
		s.companies = repository.NewUnavailableCompaniesRepository(err)
	} else {
		switch cfg.Store.Driver {
		case config.DriverPostgres:
			db, err := database.NewPostgresDB(ctx, &cfg.Database)
			if err != nil {
				logger.Warn("DB connection failed, host resolution disabled", zap.Error(err))
				s.companies = repository.NewUnavailableCompaniesRepository(err)
				break
			}
			s.db = db
			s.companies = repository.NewPostgresCompaniesRepository(db, logger)
			logger.Info("Tenant store: postgres", zap.String("host", cfg.Database.Host))
		case config.DriverREST:
			s.companies = repository.NewRestCompaniesRepository(cfg.Store.Endpoint, cfg.Store.Credential, cfg.Store.Timeout, logger)
			logger.Info("Tenant store: rest", zap.String("endpoint", cfg.Store.Endpoint))
		case config.DriverMemory:
			mem := repository.NewMemoryCompaniesRepository(logger)
			seedDemo(mem)
			s.companies = mem
			logger.Info("Tenant store: memory (demo data)")
		}
	}

	var shared store.KV
	if cfg.Redis.Enabled {
		client := store.NewRedisClient(&cfg.Redis)
		kv := store.NewRedisKV(client, cfg.Redis.Timeout)
		if err := kv.Ping(ctx); err != nil {
			logger.Warn("Redis unreachable, shared tenant cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = client.Close()
		} else {
			s.redisClient = client
			shared = kv
		}
	}

	s.lookup = tenant.NewCachedLookup(s.companies, tenant.CachedLookupOptions{
		Size:        cfg.Cache.Size,
		TTL:         cfg.Cache.TTL,
		NegativeTTL: cfg.Cache.NegativeTTL,
		Shared:      shared,
		KeyPrefix:   cfg.Cache.KeyPrefix,
	}, logger)
	s.resolver = tenant.NewResolver(s.lookup, tenant.Options{
		BaseDomain:     cfg.BaseDomain,
		BypassPrefixes: cfg.BypassPathPrefixes,
	}, logger)
	s.pages = service.NewPageService(s.companies, logger)
	return s
}

func (s *stack) Close() {
	if s.redisClient != nil {
		_ = s.redisClient.Close()
	}
	_ = database.Close(s.db)
}

// seedDemo gives STORE_DRIVER=memory one tenant, reachable at demo.{BASE_DOMAIN}, demo.local and /demo-hvac.
func seedDemo(repo *repository.MemoryCompaniesRepository) {
	founded := 2008
	rating := 4.9
	reviews := 128
	repo.AddCompany(domain.Company{
		Name:         "Demo Heating & Air",
		Slug:         "demo-hvac",
		Phone:        "(555) 010-0199",
		City:         "Springfield",
		State:        "IL",
		FullAddress:  "100 Main St, Springfield, IL 62701",
		WorkingHours: "Mon-Fri 7am-6pm",
		Rating:       &rating,
		ReviewCount:  &reviews,
		FoundedYear:  &founded,
		Description:  "Heating, cooling and indoor air quality for Springfield homes.",
		BizID:        "1",
	}, "demo.local", "demo")
	repo.AddReview(domain.ReviewLink{Column: "biz_id", Value: "1"}, domain.Review{
		ReviewID:     "demo-1",
		ReviewerName: "Jordan P.",
		Text:         "Showed up the same day and had our AC running within an hour.",
		Stars:        5,
	})
}
