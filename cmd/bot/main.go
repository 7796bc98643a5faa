package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/otp-relay/internal/application/broadcast"
	"github.com/otp-relay/internal/application/cleanup"
	"github.com/otp-relay/internal/application/dedup"
	"github.com/otp-relay/internal/application/dispatch"
	"github.com/otp-relay/internal/application/inventory"
	"github.com/otp-relay/internal/application/poll"
	"github.com/otp-relay/internal/application/stats"
	"github.com/otp-relay/internal/application/subscription"
	"github.com/otp-relay/internal/application/verify"
	"github.com/otp-relay/internal/bot"
	"github.com/otp-relay/internal/config"
	"github.com/otp-relay/internal/infrastructure/dynamo"
	jwtinfra "github.com/otp-relay/internal/infrastructure/jwt"
	"github.com/otp-relay/internal/infrastructure/provider"
	s3infra "github.com/otp-relay/internal/infrastructure/s3"
	"github.com/otp-relay/internal/infrastructure/telegram"
	"github.com/otp-relay/internal/pkg/country"
	transporthttp "github.com/otp-relay/internal/transport/http"
)

// memberChecker adapts the Telegram client to the verifier's boolean view
// of channel membership.
type memberChecker struct {
	tg *telegram.Client
}

func (m memberChecker) GetChatMember(ctx context.Context, chatID, userID int64) (bool, error) {
	member, err := m.tg.GetChatMember(ctx, chatID, userID)
	if err != nil {
		return false, err
	}
	return member.IsMember(), nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	otpRepo := dynamo.NewOTPRepo(dynamoClient, cfg.DynamoTables.OTPRecords)
	deliveryRepo := dynamo.NewDeliveryRepo(dynamoClient, cfg.DynamoTables.Deliveries)
	subscriptionRepo := dynamo.NewSubscriptionRepo(dynamoClient, cfg.DynamoTables.Subscriptions)
	rangeRepo := dynamo.NewRangeRepo(dynamoClient, cfg.DynamoTables.Ranges)
	documentRepo := dynamo.NewDocumentRepo(dynamoClient, cfg.DynamoTables.Documents)

	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName)

	tg := telegram.NewClient(cfg.BotToken)
	me, err := tg.GetMe(context.Background())
	if err != nil {
		log.Fatalf("telegram: %v", err)
	}
	log.Printf("Bot authorized as @%s", me.Username)

	providerClient := provider.NewClient(cfg.ProviderURL, cfg.ProviderAPIKey, cfg.ProviderTimeout)

	// JWT provider (optional — admin API login is disabled without it).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	countries := country.Default()
	verifier := verify.NewService(documentRepo, memberChecker{tg: tg})
	subscriptions := subscription.NewService(subscriptionRepo)
	traffic := stats.NewService(documentRepo, otpRepo)
	stock := inventory.NewService(rangeRepo, s3Store)
	announcer := broadcast.NewService(tg, documentRepo, verifier)
	sweeper := cleanup.NewSweeper(documentRepo, deliveryRepo, tg, cfg.SweepInterval)
	ledger := dedup.NewLedger(documentRepo)

	dispatcher := dispatch.NewService(tg, documentRepo, subscriptionRepo, deliveryRepo, countries, dispatch.Links{
		Owner:   cfg.OwnerLink,
		Channel: cfg.ChannelLink,
		Bot:     "https://t.me/" + me.Username,
	})
	poller := poll.NewPoller(providerClient, ledger, dispatcher, otpRepo, traffic, countries, cfg.PollInterval, cfg.PollErrorBackoff)

	relayBot := bot.New(bot.Deps{
		Telegram:      tg,
		Documents:     documentRepo,
		Subscriptions: subscriptions,
		Verifier:      verifier,
		Traffic:       traffic,
		Sweeper:       sweeper,
		Stock:         stock,
		Announcer:     announcer,
		OwnerID:       cfg.OwnerID,
		Links: bot.Links{
			Owner:   cfg.OwnerLink,
			Channel: cfg.ChannelLink,
			Support: cfg.SupportLink,
			Group:   cfg.OTPGroup,
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go poller.Run(ctx)
	go relayBot.Run(ctx)
	go sweeper.Run(ctx)

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		Traffic:     traffic,
		Inventory:   stock,
		AutoDelete:  sweeper,
		JWTProvider: jwtProvider,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Admin API starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Stopped")
}
