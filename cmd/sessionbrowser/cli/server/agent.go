package server

import (
	"context"
	"fmt"

	"github.com/mwantia/sessionbrowser/internal/agent"
	"github.com/spf13/cobra"

	config "github.com/mwantia/sessionbrowser/internal/config/server"
)

func NewAgentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Start the session browser agent",
		Long: `Start the session browser agent.

The agent lists recordings on start, loads the auxiliary metadata and
refreshes both every agent.refresh_interval until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServerConfig()
			if err != nil {
				return fmt.Errorf("failed to load server configuration: %w", err)
			}

			return agent.NewAgent(cfg).Serve(context.Background())
		},
	}

	return cmd
}
