package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	fb "firebase.google.com/go"
	"github.com/TeddyKahwaji/spice-modlog/internal/config"
	"github.com/TeddyKahwaji/spice-modlog/internal/firebase"
	"github.com/TeddyKahwaji/spice-modlog/internal/invites"
	"github.com/TeddyKahwaji/spice-modlog/internal/logger"
	"github.com/TeddyKahwaji/spice-modlog/internal/metrics"
	"github.com/TeddyKahwaji/spice-modlog/internal/modlog"
	"github.com/TeddyKahwaji/spice-modlog/internal/settings"
	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// stateMessagesPerChannel is how many messages the session state keeps per
// channel as a fallback for the modlog's own cache.
const stateMessagesPerChannel = 100

func newDiscordBotClient(token string, httpClient *http.Client) (*discordgo.Session, error) {
	bot, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating bot: %w", err)
	}

	bot.Client = httpClient

	return bot, nil
}

func newFirestoreClient(ctx context.Context, cfg config.GCPConfig) (*firebase.Client, error) {
	creds, err := cfg.Credentials()
	if err != nil {
		return nil, fmt.Errorf("building gcp credentials: %w", err)
	}

	app, err := fb.NewApp(ctx, nil, option.WithCredentialsJSON(creds))
	if err != nil {
		return nil, fmt.Errorf("creating firebase app: %w", err)
	}

	firestoreClient, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return firebase.NewClient(firestoreClient), nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg.Env)

	defer func() {
		if err := log.Sync(); err != nil {
			log.Warn("could not sync logger", zap.Error(err))
		}
	}()

	httpClient := http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	bot, err := newDiscordBotClient(cfg.DiscordToken, &httpClient)
	if err != nil {
		log.Fatal("bot could not be booted", zap.Error(err))
	}

	bot.Identify.Intents = discordgo.IntentsAllWithoutPrivileged | discordgo.IntentsGuildMembers | discordgo.IntentsMessageContent
	bot.StateEnabled = true
	bot.State.MaxMessageCount = stateMessagesPerChannel
	bot.Identify.Presence = discordgo.GatewayStatusUpdate{
		Game: discordgo.Activity{
			Name: "/modlog",
			Type: discordgo.ActivityTypeWatching,
		},
	}

	ctx := context.Background()

	docs, err := newFirestoreClient(ctx, cfg.GCP)
	if err != nil {
		log.Fatal("unable to connect to firestore", zap.Error(err))
	}

	defer func() {
		if err := docs.Close(); err != nil {
			log.Warn("couldn't close firestore client", zap.Error(err))
		}
	}()

	modlogMetrics := metrics.New(prometheus.DefaultRegisterer)

	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metrics.NewRouter(prometheus.DefaultGatherer),
		ReadHeaderTimeout: cfg.HTTPTimeout,
	}

	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()

	cog, err := modlog.NewCog(&modlog.CogConfig{
		Discord:  bot,
		State:    bot.State,
		Logger:   log,
		Settings: settings.NewStore(docs),
		Invites:  invites.NewTracker(docs),
		Metrics:  modlogMetrics,
		Modlog:   cfg.Modlog,
	})
	if err != nil {
		log.Fatal("unable to instantiate modlog cog", zap.Error(err))
	}

	// Handlers are subscribed before the gateway opens so guilds arriving
	// right after Ready are seeded.
	cog.Start(bot)

	var once sync.Once

	// Ready fires again on every reconnect; commands are only registered once.
	bot.AddHandler(func(session *discordgo.Session, _ *discordgo.Ready) {
		once.Do(func() {
			if err := cog.RegisterCommands(session); err != nil {
				log.Fatal("unable to register modlog commands", zap.Error(err))
			}
		})

		log.Info("Bot has connected")
	})

	if err := bot.Open(); err != nil {
		log.Fatal("error opening connection", zap.Error(err))
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	cog.Close()

	if err := bot.Close(); err != nil {
		log.Warn("couldn't close bot", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("couldn't stop metrics server", zap.Error(err))
	}
}
