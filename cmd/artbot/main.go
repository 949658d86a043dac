package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/artbot/cmd/artbot/internal"
	"github.com/tinyland-inc/artbot/cmd/artbot/internal/chat"
	"github.com/tinyland-inc/artbot/cmd/artbot/internal/gateway"
	"github.com/tinyland-inc/artbot/cmd/artbot/internal/version"
)

func NewArtbotCommand() *cobra.Command {
	short := fmt.Sprintf("%s artbot - art-therapy dialogue bot v%s\n\n", internal.Logo, internal.GetVersion())

	cmd := &cobra.Command{
		Use:     "artbot",
		Short:   short,
		Example: "artbot gateway",
	}

	cmd.AddCommand(
		gateway.NewGatewayCommand(),
		chat.NewChatCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewArtbotCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
