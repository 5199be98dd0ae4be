package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/deskbot/internal/config"
	"github.com/zulandar/deskbot/internal/telegraph"
	"github.com/zulandar/deskbot/internal/telegraph/console"
)

func newChatCmd() *cobra.Command {
	var (
		configPath string
		userName   string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the bot from the terminal",
		Long: `Runs the bot against stdin and stdout with in-memory state.

The configured ServiceNow instance and recognizer are used as-is, so
tickets created here are real. Type "cancel" to leave a dialog and
Ctrl-D to quit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, configPath, userName)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to deskbot config file")
	cmd.Flags().StringVarP(&userName, "name", "n", "", "display name to chat as (default $USER)")
	return cmd
}

func runChat(cmd *cobra.Command, configPath, userName string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Platform = config.PlatformConsole
	cfg.Storage.Driver = config.StorageMemory

	ctx, cancel := signalContext(cmd.ErrOrStderr())
	defer cancel()

	s, err := buildStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	adapter := console.New(console.AdapterOpts{
		In:       cmd.InOrStdin(),
		Out:      cmd.OutOrStdout(),
		UserName: userName,
	})
	daemon, err := telegraph.NewDaemon(telegraph.DaemonOpts{
		Adapter:  adapter,
		Bot:      s.engine,
		Accounts: s.engine,
		BotName:  cfg.Branding.Name,
		Out:      cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	return daemon.Run(ctx)
}
