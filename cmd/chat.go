package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"boardbot/pkg/channel"
	"boardbot/pkg/channel/console"
	"boardbot/pkg/config"
	"boardbot/pkg/gateway"
	"boardbot/pkg/logger"
	"boardbot/pkg/ui/chat"

	"github.com/spf13/cobra"
)

const chatLogFile = "chat.log"

var chatLogPath string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the bot from this terminal",
	Long:  "Runs boardbot against a local console channel. Every line you type is a direct message to the bot.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		logPath := resolveChatLogPath(cfg, chatLogPath)
		appLogger, closeLog, err := logger.NewFile(cfg.Logging, logPath)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		defer closeLog()
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.chat")

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := runChat(runCtx, cfg, log); err != nil {
			log.Error("Chat session failed", "error", err)
			fmt.Printf("chat failed: %v (details in %s)\n", err, logPath)
		}
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatLogPath, "log-file", "", "Write logs here instead of next to the settings database")
	rootCmd.AddCommand(chatCmd)
}

func runChat(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	bot, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer bot.Close()

	adapter := console.NewAdapter(cfg.Channels.Console, 0, log)
	svc, err := gateway.NewService(gateway.ServiceConfig{
		Gateway:    config.GatewayConfig{Port: -1},
		Bus:        bot.bus,
		Dispatcher: bot.router,
		Adapters:   []channel.Adapter{adapter},
		Pending:    bot.coordinator.Pending,
		Log:        log,
	})
	if err != nil {
		return err
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- svc.Run(sessionCtx)
	}()

	info := chat.Info{Username: adapter.Username(), Prefix: cfg.Bot.Prefix}
	uiErr := chat.Run(sessionCtx, adapter, info)
	cancel()

	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return errors.Join(uiErr, err)
	}
	return uiErr
}

func resolveChatLogPath(cfg *config.Config, override string) string {
	if override != "" {
		return override
	}
	return filepath.Join(filepath.Dir(cfg.Store.Path), chatLogFile)
}
