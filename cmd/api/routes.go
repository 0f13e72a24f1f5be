package main

import (
	"context"
	"log/slog"
	"time"

	"call-screening/internal/agent"
	"call-screening/internal/audit"
	"call-screening/internal/auth"
	"call-screening/internal/config"
	"call-screening/internal/handoff"
	"call-screening/internal/httpapi"
	"call-screening/internal/reporting"
	"call-screening/internal/screening"
	"call-screening/internal/server"
	"call-screening/internal/urls"
	"call-screening/pkg/utils"
)

// buildServer wires services, agents and routes.
// Keep this file free of business logic.
func buildServer(ctx context.Context, cfg config.Config, log *slog.Logger, deps dependencies) (*server.Server, error) {
	tokens, err := auth.NewTokenManager(cfg.Tokens)
	if err != nil {
		return nil, err
	}

	repo, err := deps.auditRepo(ctx)
	if err != nil {
		return nil, err
	}
	auditSvc := audit.NewService(repo)
	handoffs := handoff.NewService(deps.handoffStore(cfg), auditSvc, log)

	resolver := resolverFor(cfg)

	checks := map[string]server.Check{}
	if deps.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return deps.redis.Ping(ctx).Err() }
	}
	if deps.db != nil {
		checks["postgres"] = func(ctx context.Context) error { return utils.HealthCheck(ctx, deps.db, 2*time.Second) }
	}

	srv, err := server.New(server.Options{
		Logger:            log,
		URLs:              resolver,
		Tokens:            tokens,
		BasicAuthUser:     cfg.SWML.BasicAuthUser,
		BasicAuthPassword: cfg.SWML.BasicAuthPassword,
		WebDir:            cfg.Screening.WebDir,
		CORSOrigins:       cfg.CORS.AllowOrigins,
		Admin: &httpapi.Handlers{
			Handoffs:  handoffs,
			Audit:     auditSvc,
			Reporting: reporting.NewService(handoffs),
		},
		ReadyChecks: checks,
	})
	if err != nil {
		return nil, err
	}

	opts := screening.Options{
		ToNumber:    cfg.Screening.ToNumber,
		FromNumber:  cfg.Screening.FromNumber,
		Voice:       cfg.Screening.Voice,
		HoldTimeout: cfg.Screening.HoldTimeout,
		URLs:        resolver,
		Handoffs:    handoffs,
		Logger:      log,
	}
	hold, err := screening.NewHoldAgent(opts)
	if err != nil {
		return nil, err
	}
	call, err := screening.NewCallAgent(opts)
	if err != nil {
		return nil, err
	}
	for _, a := range []*agent.Agent{hold, call} {
		if err := srv.Register(a); err != nil {
			return nil, err
		}
	}
	return srv, nil
}

func resolverFor(cfg config.Config) urls.Resolver {
	return urls.Resolver{
		ProxyBase: cfg.SWML.ProxyURLBase,
		Fallback:  cfg.LocalBaseURL(),
		User:      cfg.SWML.BasicAuthUser,
		Password:  cfg.SWML.BasicAuthPassword,
	}
}

// logBanner prints where the platform should point and what it will dial.
// Credentials in URLs are masked.
func logBanner(log *slog.Logger, cfg config.Config) {
	r := resolverFor(cfg)
	attrs := []any{
		"server", cfg.LocalBaseURL(),
		"hold_agent", urls.Redact(r.URL(nil, screening.HoldAgentRoute, true)),
		"call_agent", urls.Redact(r.URL(nil, screening.CallAgentRoute, true)),
		"hold_music", r.URL(nil, screening.HoldMusicPath, false),
		"web_ui", r.URL(nil, "/", false),
		"to_number", cfg.Screening.ToNumber,
		"from_number", cfg.Screening.FromNumber,
	}
	if cfg.SWML.ProxyURLBase != "" {
		attrs = append(attrs, "public_url", cfg.SWML.ProxyURLBase)
	}
	log.Info("call screening agents ready", attrs...)

	if cfg.SWML.PasswordGenerated {
		// printed once so the operator can configure the platform
		log.Warn("SWML_BASIC_AUTH_PASSWORD not set; generated for this process",
			"user", cfg.SWML.BasicAuthUser, "password", cfg.SWML.BasicAuthPassword)
	}
	if cfg.Tokens.Generated {
		log.Warn("SWAIG_TOKEN_SECRET not set; tool tokens will not survive a restart")
	}
}
