package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"boardbot/pkg/channel"
	"boardbot/pkg/channel/discord"
	"boardbot/pkg/channel/telegram"
	"boardbot/pkg/config"
	"boardbot/pkg/gateway"
	"boardbot/pkg/logger"

	"github.com/spf13/cobra"
)

const (
	telegramChannelName = "telegram"
	discordChannelName  = "discord"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run the bot on chat channels",
	Long:  "Connects boardbot to every enabled chat channel and serves health, readiness and status endpoints.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.gateway")

		adapters, err := enabledAdapters(cfg, log)
		if err != nil {
			log.Error("Gateway configuration invalid", "error", err)
			return
		}

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		bot, err := newApp(runCtx, cfg, log)
		if err != nil {
			log.Error("Failed to initialize bot", "error", err)
			return
		}
		defer bot.Close()

		svc, err := gateway.NewService(gateway.ServiceConfig{
			Gateway:    cfg.Gateway,
			Bus:        bot.bus,
			Dispatcher: bot.router,
			Adapters:   adapters,
			Pending:    bot.coordinator.Pending,
			Log:        log,
		})
		if err != nil {
			log.Error("Failed to initialize gateway service", "error", err)
			return
		}

		log.Info("Gateway started", "channels", enabledChannelNames(adapters), "prefix", cfg.Bot.Prefix, "board", cfg.Board.APIKey != "")
		if err := svc.Run(runCtx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("Gateway runtime failed", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(gatewayCmd)
}

func enabledAdapters(cfg *config.Config, log *slog.Logger) ([]channel.Adapter, error) {
	adapters := make([]channel.Adapter, 0, 2)

	if cfg.Channels.Telegram.Enabled {
		adapter, err := telegram.NewAdapter(cfg.Channels.Telegram, log)
		if err != nil {
			return nil, fmt.Errorf("configure %s channel: %w", telegramChannelName, err)
		}
		adapters = append(adapters, adapter)
	}

	if cfg.Channels.Discord.Enabled {
		adapter, err := discord.NewAdapter(cfg.Channels.Discord, log)
		if err != nil {
			return nil, fmt.Errorf("configure %s channel: %w", discordChannelName, err)
		}
		adapters = append(adapters, adapter)
	}

	if len(adapters) == 0 {
		return nil, errNoChannels
	}

	return adapters, nil
}

func enabledChannelNames(adapters []channel.Adapter) string {
	names := make([]string, 0, len(adapters))
	for _, adapter := range adapters {
		names = append(names, adapter.Name())
	}

	return strings.Join(names, ",")
}
