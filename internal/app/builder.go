package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kakarotoncloud/Filetolink/internal/config"
	"github.com/kakarotoncloud/Filetolink/internal/domain"
	"github.com/kakarotoncloud/Filetolink/internal/gateway"
	redisx "github.com/kakarotoncloud/Filetolink/internal/infra/cache/redis"
	"github.com/kakarotoncloud/Filetolink/internal/infra/database/postgres"
	"github.com/kakarotoncloud/Filetolink/internal/infra/telegram/botapi"
	"github.com/kakarotoncloud/Filetolink/internal/infra/telegram/mtproto"
	"github.com/kakarotoncloud/Filetolink/internal/transport/web"
)

type App struct {
	config  *config.Config
	server  *web.Server
	log     *log.Logger
	gateway *gateway.Gateway
	mtproto *mtproto.Client // nil when bulk transfer is disabled
	cache   domain.Cache
	repo    *postgres.PGRepo
}

func Build(ctx context.Context) (*App, error) {
	base := log.New(os.Stdout, "[app] ", log.LstdFlags)

	serverLog := log.New(base.Writer(), base.Prefix()+"[server] ", base.Flags())
	pgLog := log.New(base.Writer(), base.Prefix()+"[postgres] ", base.Flags())
	redisLog := log.New(base.Writer(), base.Prefix()+"[redis] ", base.Flags())
	botLog := log.New(base.Writer(), base.Prefix()+"[botapi] ", base.Flags())
	mtLog := log.New(base.Writer(), base.Prefix()+"[mtproto] ", base.Flags())
	gwLog := log.New(base.Writer(), base.Prefix()+"[gateway] ", base.Flags())

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed load config: %w", err)
	}
	base.Printf("\n  configuration: %s-------------------", cfg)

	base.Println("init PostgreSQL")
	pgRepo, err := postgres.NewPGRepo(ctx, pgLog, postgres.Options{
		DSN:      cfg.GetDSN(),
		Schema:   cfg.DBScheme,
		MaxConns: cfg.DBMaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed init postgres: %w", err)
	}
	base.Println("PostgreSQL is initialized")

	base.Println("init Redis")
	rc := redisx.New(redisx.Config{
		Addr:     cfg.RedisAddr,
		DB:       cfg.RedisDB,
		Password: cfg.RedisPassword,
		Prefix:   "filetolink:",
	}, redisLog)
	if err := rc.Ping(ctx); err != nil {
		pgRepo.Close()
		return nil, fmt.Errorf("failed init redis: %w", err)
	}
	base.Println("Redis is initialized")

	records := &redisx.Records{Repo: pgRepo, Cache: rc, TTL: cfg.RecordCacheTTL, Logger: redisLog}

	base.Println("init Bot API client")
	botOpts := botapi.DefaultOptions()
	botOpts.BaseURL = cfg.BotAPIBaseURL
	botOpts.Token = cfg.BotToken
	botOpts.RetryAttempts = cfg.BotAPIRetryAttempts
	botOpts.RetryBackoff = cfg.BotAPIRetryBackoff
	botOpts.PathTTL = cfg.FilePathCacheTTL
	bot := botapi.NewClient(botOpts, rc, botLog)

	var botInfo domain.BotInfo
	if info, err := bot.GetMe(ctx); err != nil {
		// links keep working without the bot name
		base.Printf("failed to read bot account: %v", err)
	} else {
		botInfo = info
		base.Printf("bot account is @%s", botInfo.Username)
	}

	var (
		mt   *mtproto.Client
		bulk *gateway.Chunked
	)
	if cfg.MTProtoEnabled() {
		base.Println("init MTProto client")
		mt = mtproto.New(mtproto.Config{
			AppID:            cfg.APIID,
			AppHash:          cfg.APIHash,
			BotToken:         cfg.BotToken,
			Workers:          cfg.MTProtoWorkers,
			ResolveTimeout:   cfg.ResolveTimeout,
			FloodWaitPad:     cfg.MTProtoFloodWaitPad,
			FloodWaitDefault: cfg.MTProtoFloodWaitDefault,
		}, &mtproto.SettingsSession{Repo: pgRepo, Log: mtLog}, mtLog)
		bulk = &gateway.Chunked{
			Source:         mt,
			BlockSize:      cfg.MTProtoBlockSize,
			Workers:        cfg.MTProtoWorkers,
			ResolveTimeout: cfg.ResolveTimeout,
			Log:            gwLog,
		}
	} else {
		base.Println("API_ID/API_HASH not set, large file downloads disabled")
	}

	gw := &gateway.Gateway{
		Files:          records,
		Bulk:           bulk,
		Direct:         &gateway.Direct{Source: bot, ResolveTimeout: cfg.ResolveTimeout, Log: gwLog},
		Log:            gwLog,
		CounterTimeout: cfg.CounterTimeout,
		WriteStall:     cfg.WriteStallTimeout,
	}

	base.Println("init Server")
	deps := web.Deps{
		Gateway: gw,
		Files:   records,
		Stats:   pgRepo,
		Bot:     botInfo,
		DB:      pgRepo,
		Cache:   rc,
	}
	if mt != nil {
		deps.Bulk = mt
	}
	server := web.New(serverLog, cfg, deps)
	base.Println("Server is initialized")

	base.Println("build ended")
	return &App{
		config:  cfg,
		server:  server,
		log:     base,
		gateway: gw,
		mtproto: mt,
		cache:   rc,
		repo:    pgRepo,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Println("start application...")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(a.server.Run)
	if a.mtproto != nil {
		g.Go(func() error { return a.mtproto.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		a.log.Println("stop application...")

		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.server.Close(stopCtx)
		return nil
	})

	err := g.Wait()
	a.gateway.Wait()
	a.repo.Close()
	a.cache.Close()
	return err
}
