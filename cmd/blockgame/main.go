// Blockgame CLI entry point.
//
// Runs either the authoritative game server or a headless client that holds
// a fixed input, over the UDP transport in internal/transport.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/1ureka/blockgame/internal/config"
	"github.com/1ureka/blockgame/internal/util"
)

var version = "dev"

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	debug      bool
}

func main() {
	// Root context, cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "blockgame",
		Short: "Blockgame multiplayer server and client",
		Long: `Blockgame replicates player movement between one authoritative server
and any number of clients over UDP.

Use 'blockgame server' to host and 'blockgame client' to join.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := util.SetLevel(opts.logLevel); err != nil {
				return err
			}
			if opts.debug {
				util.EnableDebug()
			}
			pterm.Info.Println(fmt.Sprintf("Blockgame v%s", version))
			pterm.Println()
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file (defaults apply when omitted)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Minimum log level: debug, info, warn or error")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging (same as --log-level debug)")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(newServerCmd(opts), newClientCmd(opts))
	return root
}

// loadConfig reads the --config file, or the defaults.
func (o *rootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}
	if o.configPath != "" {
		util.LogDebug("loaded config from %s", o.configPath)
	}
	return cfg, nil
}
