package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/sbfportal/internal/acl"
	"github.com/dropDatabas3/sbfportal/internal/cache"
	"github.com/dropDatabas3/sbfportal/internal/config"
	"github.com/dropDatabas3/sbfportal/internal/email"
	httpserver "github.com/dropDatabas3/sbfportal/internal/http"
	admctrl "github.com/dropDatabas3/sbfportal/internal/http/controllers/admin"
	authctrl "github.com/dropDatabas3/sbfportal/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/sbfportal/internal/http/controllers/health"
	memctrl "github.com/dropDatabas3/sbfportal/internal/http/controllers/member"
	socctrl "github.com/dropDatabas3/sbfportal/internal/http/controllers/social"
	mw "github.com/dropDatabas3/sbfportal/internal/http/middlewares"
	"github.com/dropDatabas3/sbfportal/internal/http/router"
	authsvc "github.com/dropDatabas3/sbfportal/internal/http/services/auth"
	wfsvc "github.com/dropDatabas3/sbfportal/internal/http/services/workflow"
	jwtx "github.com/dropDatabas3/sbfportal/internal/jwt"
	"github.com/dropDatabas3/sbfportal/internal/metrics"
	"github.com/dropDatabas3/sbfportal/internal/oauth/google"
	"github.com/dropDatabas3/sbfportal/internal/observability/logger"
	"github.com/dropDatabas3/sbfportal/internal/otp"
	"github.com/dropDatabas3/sbfportal/internal/rate"
	"github.com/dropDatabas3/sbfportal/internal/session"
	"github.com/dropDatabas3/sbfportal/internal/store"
	"github.com/dropDatabas3/sbfportal/internal/store/memory"
	"github.com/dropDatabas3/sbfportal/internal/store/pg"
)

func main() {
	configPath := flag.String("config", "configs/config.example.yaml", "ruta al YAML de configuración")
	flag.Parse()

	// .env es opcional; las variables pisan al YAML.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.App.LogLevel,
		ServiceName: "sbfportal",
	})
	defer logger.Sync()

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.L().Warn("metrics register", logger.Err(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Persistencia ----
	var repo store.Repository
	switch cfg.Storage.Driver {
	case "pg":
		repo, err = pg.New(ctx, cfg.Storage.DSN, pg.Config{
			MaxConns:        int32(cfg.Storage.Postgres.MaxOpenConns),
			MinConns:        int32(cfg.Storage.Postgres.MaxIdleConns),
			ConnMaxLifetime: config.Dur(cfg.Storage.Postgres.ConnMaxLifetime, time.Hour),
		})
		if err != nil {
			logger.L().Fatal("postgres connect failed", logger.Err(err))
		}
	default:
		ms := memory.New()
		// Sin migraciones ni seed en este driver: el rol Member y el
		// catálogo de permisos se cargan acá o no existen.
		ms.SeedDefaults()
		repo = ms
		logger.L().Warn("using in-memory store, data will not survive restarts")
	}
	defer repo.Close()

	// ---- Cache ----
	cc, err := cache.New(cache.Config{
		Kind:       cfg.Cache.Kind,
		Addr:       cfg.Cache.Redis.Addr,
		Password:   os.Getenv("REDIS_PASSWORD"),
		DB:         cfg.Cache.Redis.DB,
		Prefix:     cfg.Cache.Redis.Prefix,
		DefaultTTL: config.Dur(cfg.Cache.Memory.DefaultTTL, time.Hour),
	})
	if err != nil {
		logger.L().Fatal("cache connect failed", logger.Err(err))
	}
	defer cc.Close()

	// ---- Email ----
	var sender email.Sender = email.NoopSender{}
	if cfg.SMTP.Host != "" {
		s := email.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.User, cfg.SMTP.Pass)
		s.FromName = cfg.SMTP.FromName
		s.TLSMode = cfg.SMTP.TLS
		sender = s
	} else {
		logger.L().Warn("smtp not configured, otp codes only reach the log")
	}

	// ---- Núcleo de auth ----
	issuer := jwtx.NewIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, config.Dur(cfg.JWT.AccessTTL, 15*time.Minute))
	otpMgr := otp.NewManager(repo, sender, config.Dur(cfg.Auth.OTP.TTL, 5*time.Minute))
	resolver := acl.NewResolver(repo, cc, 30*time.Second)
	sessions := session.NewManager(cc, config.Dur(cfg.Auth.Session.TTL, 12*time.Hour))

	core := authsvc.NewService(authsvc.Deps{
		Repo:       repo,
		OTP:        otpMgr,
		Issuer:     issuer,
		Resolver:   resolver,
		RefreshTTL: config.Dur(cfg.JWT.RefreshTTL, 720*time.Hour),
	})
	social := authsvc.NewSocialService(authsvc.SocialDeps{
		Google: google.New(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL),
		Repo:   repo,
		Core:   core,
	})
	workflow := wfsvc.NewService(wfsvc.Deps{Repo: repo})

	// ---- Cookies ----
	sessionCookie := session.CookieConfig{
		Name:     cfg.Auth.Session.CookieName,
		Domain:   cfg.Auth.Session.Domain,
		SameSite: cfg.Auth.Session.SameSite,
		Secure:   cfg.Auth.Session.Secure,
	}
	refreshCookie := session.CookieConfig{
		Name:     cfg.Auth.Refresh.CookieName,
		Path:     cfg.Auth.Refresh.CookiePath,
		Domain:   cfg.Auth.Session.Domain,
		SameSite: cfg.Auth.Session.SameSite,
		Secure:   cfg.Auth.Session.Secure,
	}

	// ---- Rate limiting ----
	var loginLimiter, otpLimiter rate.Limiter = rate.NoopLimiter{}, rate.NoopLimiter{}
	if cfg.Rate.Enabled {
		loginWindow := config.Dur(cfg.Rate.Login.Window, time.Minute)
		otpWindow := config.Dur(cfg.Rate.OTP.Window, 10*time.Minute)
		if cfg.Cache.Kind == "redis" {
			rc := rdb.NewClient(&rdb.Options{
				Addr:     cfg.Cache.Redis.Addr,
				Password: os.Getenv("REDIS_PASSWORD"),
				DB:       cfg.Cache.Redis.DB,
			})
			loginLimiter = rate.NewRedisLimiter(rc, "rl:login", cfg.Rate.Login.Limit, loginWindow)
			otpLimiter = rate.NewRedisLimiter(rc, "rl:otp", cfg.Rate.OTP.Limit, otpWindow)
		} else {
			loginLimiter = rate.NewMemoryLimiter(cfg.Rate.Login.Limit, loginWindow)
			otpLimiter = rate.NewMemoryLimiter(cfg.Rate.OTP.Limit, otpWindow)
		}
	}

	// ---- Controllers y router ----
	health := healthctrl.New(repo, cc)
	handler := router.New(router.Deps{
		Auth: authctrl.New(authctrl.Deps{
			Service:       core,
			Sessions:      sessions,
			SessionCookie: sessionCookie,
			RefreshCookie: refreshCookie,
		}),
		Social: socctrl.New(socctrl.Deps{
			Social:        social,
			Sessions:      sessions,
			SessionCookie: sessionCookie,
			RefreshCookie: refreshCookie,
			FrontendURL:   cfg.Server.FrontendURL,
		}),
		Member: memctrl.New(workflow),
		Admin: admctrl.New(admctrl.Deps{
			Repo:     repo,
			Workflow: workflow,
			Resolver: resolver,
		}),
		Guard: mw.GuardDeps{
			Sessions:      sessions,
			SessionCookie: sessionCookie.Name,
			Issuer:        issuer,
			Repo:          repo,
		},
		Resolver:     resolver,
		LoginLimiter: loginLimiter,
		OTPLimiter:   otpLimiter,
		CORSOrigins:  cfg.Server.CORSAllowedOrigins,
		Healthz:      health.Healthz,
	})

	logger.L().Info("sbfportal listening", logger.String("addr", cfg.Server.Addr))
	if err := httpserver.NewServer(cfg.Server.Addr, handler).Run(ctx); err != nil {
		logger.L().Fatal("server exited", logger.Err(err))
	}
}
