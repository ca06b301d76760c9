package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/shirkavand/imperator/internal/bot"
	"github.com/shirkavand/imperator/internal/config"
	"github.com/shirkavand/imperator/internal/db/sqlite"
	"github.com/shirkavand/imperator/internal/handlers"
	"github.com/shirkavand/imperator/internal/infra"
	"github.com/shirkavand/imperator/internal/lifecycle"
	"github.com/shirkavand/imperator/internal/moderation"
	"github.com/shirkavand/imperator/internal/observability"
	"github.com/shirkavand/imperator/internal/roles"
)

func main() {
	log.SetFormatter(&config.ImpFormatter{})
	log.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatalln("cant load config")
	}
	log.SetLevel(log.Level(cfg.LogLevel))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dbClient, err := sqlite.NewSQLiteClient(ctx, infra.GetWorkDir(), "imperator.db")
	if err != nil {
		log.WithError(err).Fatalln("cant initialize storage")
	}

	observability.Init(cfg.MetricsAddr)

	tgbot, err := api.NewBotAPI(cfg.TelegramAPIToken)
	if err != nil {
		log.WithError(err).Fatalln("cant initialize bot api")
	}
	log.WithField("username", tgbot.Self.UserName).Info("authorized")

	service := bot.NewService(tgbot, dbClient)
	platform := bot.NewTelegram(tgbot)
	resolver := roles.NewResolver(dbClient, platform)
	engine := moderation.NewEngine(dbClient, platform, resolver, cfg.Tribunal)

	bot.RegisterUpdateHandler("admin", handlers.NewAdmin(service))
	bot.RegisterUpdateHandler("gatekeeper", handlers.NewGatekeeper(service, platform, cfg.Admission))
	bot.RegisterUpdateHandler("sentry", handlers.NewSentry(service, engine, platform, cfg.Antispam))
	bot.RegisterUpdateHandler("tribunal", handlers.NewTribunal(service, engine, platform))
	processor := bot.NewUpdateProcessor(service)

	runtime := lifecycle.NewRuntime(&lifecycle.Func{
		ComponentName: "storage",
		OnStop: func(context.Context) error {
			return dbClient.Close()
		},
	})
	if err := runtime.Start(ctx); err != nil {
		log.WithError(err).Fatalln("cant start runtime")
	}
	defer func() {
		if err := runtime.Stop(context.Background()); err != nil {
			log.WithError(err).Error("shutdown errors")
		}
	}()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		infra.GoRecoverable(-1, "update_loop", func() {
			updateConfig := api.NewUpdate(0)
			updateConfig.Timeout = 60
			updates := tgbot.GetUpdatesChan(updateConfig)
			for {
				select {
				case <-ctx.Done():
					return
				case update, ok := <-updates:
					if !ok {
						return
					}
					done := observability.StartUpdateProcessing()
					if err := processor.Process(ctx, &update); err != nil {
						log.WithError(err).Errorln("cant process update")
						done("error")
						continue
					}
					done("ok")
				}
			}
		})
		return ctx.Err()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatalln("exiting")
	}
	log.Info("no more updates")
}
