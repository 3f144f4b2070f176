package main

import (
	"github.com/spf13/cobra"

	"github.com/1ureka/blockgame/internal/app"
)

func newServerCmd(root *rootOptions) *cobra.Command {
	var bind, observerAddr, broadcast string

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the authoritative game server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			// Flags win over the file.
			if cmd.Flags().Changed("bind") {
				cfg.Server.Bind = bind
			}
			if cmd.Flags().Changed("observer") {
				cfg.Server.Observer = observerAddr
			}
			if cmd.Flags().Changed("broadcast") {
				cfg.Server.Broadcast = broadcast
			}

			return app.RunServer(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&bind, "bind", "b", "", "UDP listen address (default from config, 0.0.0.0:25566)")
	cmd.Flags().StringVar(&observerAddr, "observer", "", "WebSocket observer feed address, e.g. 127.0.0.1:8080")
	cmd.Flags().StringVar(&broadcast, "broadcast", "", "Position broadcast mode: self or all")
	return cmd
}
