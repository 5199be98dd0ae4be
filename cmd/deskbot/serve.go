package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/zulandar/deskbot/internal/config"
	"github.com/zulandar/deskbot/internal/server"
	"github.com/zulandar/deskbot/internal/telegraph"
	"github.com/zulandar/deskbot/internal/telegraph/botframework"
	"github.com/zulandar/deskbot/internal/telegraph/console"
	discordadapter "github.com/zulandar/deskbot/internal/telegraph/discord"
	slackadapter "github.com/zulandar/deskbot/internal/telegraph/slack"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot on the configured platform",
		Long: `Connects to the configured chat platform and answers users until interrupted.

For the botframework platform an HTTP server hosts the messaging endpoint.
With a SQL storage driver the same server also exposes conversation
transcripts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to deskbot config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	out := cmd.OutOrStdout()

	ctx, cancel := signalContext(out)
	defer cancel()

	s, err := buildStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	fmt.Fprintf(out, "Storage: %s, recognizer: %s\n", cfg.Storage.Driver, cfg.Recognizer.Provider)

	adapter, messages, err := createAdapter(cfg, cmd.InOrStdin(), out)
	if err != nil {
		return err
	}

	daemon, err := telegraph.NewDaemon(telegraph.DaemonOpts{
		Adapter:     adapter,
		Bot:         s.engine,
		Accounts:    s.engine,
		BotName:     cfg.Branding.Name,
		Transcripts: s.transcripts,
		Purgers:     s.purgers,
		PurgeCron:   cfg.Storage.PurgeCron,
		Retention:   retention(cfg),
		Out:         out,
	})
	if err != nil {
		return err
	}

	opts := server.StartOpts{
		Port:     cfg.Server.Port,
		Messages: messages,
		Platform: cfg.Platform,
		Out:      out,
	}
	if s.transcripts != nil {
		opts.Transcripts = s.transcripts
	}
	if messages != nil && cfg.BotFramework.AppID != "" {
		auth, err := botframework.NewAuthenticator(botframework.AuthOpts{
			AppID:          cfg.BotFramework.AppID,
			OpenIDMetadata: cfg.BotFramework.OpenIDMetadata,
			Issuer:         cfg.BotFramework.Issuer,
		})
		if err != nil {
			return err
		}
		opts.Auth = auth.Middleware()
	}
	if opts.Messages == nil && opts.Transcripts == nil {
		return daemon.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		err := server.Start(ctx, opts)
		if err != nil {
			cancel()
		}
		errCh <- err
	}()

	runErr := daemon.Run(ctx)
	cancel()
	if err := <-errCh; err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// createAdapter builds the platform adapter. For the Bot Framework it also
// returns the handler for the messaging endpoint.
func createAdapter(cfg *config.Config, in io.Reader, out io.Writer) (telegraph.Adapter, gin.HandlerFunc, error) {
	switch cfg.Platform {
	case config.PlatformBotFramework:
		bf, err := botframework.New(botframework.AdapterOpts{
			AppID:       cfg.BotFramework.AppID,
			AppPassword: cfg.BotFramework.AppPassword,
			TokenURL:    cfg.BotFramework.TokenURL,
			Scope:       cfg.BotFramework.Scope,
		})
		if err != nil {
			return nil, nil, err
		}
		return bf, bf.Handler(), nil
	case config.PlatformSlack:
		a, err := slackadapter.New(slackadapter.AdapterOpts{
			AppToken:  cfg.Slack.AppToken,
			BotToken:  cfg.Slack.BotToken,
			ChannelID: cfg.Slack.ChannelID,
		})
		return a, nil, err
	case config.PlatformDiscord:
		a, err := discordadapter.New(discordadapter.AdapterOpts{
			BotToken:  cfg.Discord.BotToken,
			ChannelID: cfg.Discord.ChannelID,
		})
		return a, nil, err
	case config.PlatformConsole:
		return console.New(console.AdapterOpts{In: in, Out: out}), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported platform %q", cfg.Platform)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(out io.Writer) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
