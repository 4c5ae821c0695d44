package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"group-gatekeeper/internal/bot"
	"group-gatekeeper/internal/config"
	"group-gatekeeper/internal/logger"
	"group-gatekeeper/internal/repository"
	"group-gatekeeper/internal/service"
	"group-gatekeeper/internal/signing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Init("gatekeeper", false)
		log.Fatal().Err(err).Msg("config")
	}
	logger.Init("gatekeeper", cfg.Debug)

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db")
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	chatRepo := repository.NewChatSettingRepository(db)

	codec, err := signing.NewCodec(cfg.CallbackSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("callback codec")
	}

	api, err := bot.NewAPI(cfg.TelegramToken, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("bot api")
	}
	chat := bot.NewChatActions(api)

	drafts := service.NewMemoryDraftStore()
	validator := service.NewValidator(cfg.PhonePrefix)
	regSvc := service.NewRegistrationService(userRepo, drafts, chat, codec, validator, log.Logger)
	modSvc := service.NewModerationService(userRepo, adminRepo, auditRepo, chatRepo, chat, cfg.RootID, cfg.MuteDuration, log.Logger)

	telegramBot := bot.New(api, regSvc, modSvc, &cfg, log.Logger)

	scheduler := service.NewSchedulerService(time.Local)
	if _, err := scheduler.ScheduleInterval(cfg.SweepInterval, func() {
		if removed := drafts.Sweep(cfg.DraftTTL); removed > 0 {
			log.Info().Int("removed", removed).Msg("stale drafts swept")
		}
	}); err != nil {
		log.Fatal().Err(err).Msg("schedule draft sweep")
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.Info().Msg("gatekeeper bot started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("bot stopped with error")
	}
	log.Info().Msg("shutdown complete")
}
