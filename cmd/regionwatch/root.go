package regionwatch

import (
	"context"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sjzar/regionwatch/internal/regionwatch"
)

var (
	configPath string
	headless   bool
	httpAddr   string
)

func init() {
	// windows only
	cobra.MousetrapHelpText = ""

	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "debug")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config dir")
	rootCmd.PersistentFlags().StringVar(&LogFile, "log-file", "", "write logs to this file instead of stderr")
	rootCmd.Flags().BoolVar(&headless, "headless", false, "start monitoring without waiting for the frontend")
	rootCmd.Flags().StringVarP(&httpAddr, "http-addr", "a", "", "http listen address")
	rootCmd.PersistentPreRun = initLog
}

func Execute() {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("panic: %v\n%s", r, debug.Stack())
			os.Exit(1)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		log.Err(err).Msg("command execution failed")
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "regionwatch",
	Short:   "regionwatch",
	Long:    `regionwatch watches a game client process and reports the server region it is connected to`,
	Example: `regionwatch --headless`,
	Args:    cobra.MinimumNArgs(0),
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	Run: Root,
}

func Root(cmd *cobra.Command, args []string) {
	cmdConf := map[string]any{}
	if cmd.Flags().Changed("headless") {
		cmdConf["headless"] = headless
	}
	if httpAddr != "" {
		cmdConf["http_addr"] = httpAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := regionwatch.New()
	if err := m.Run(ctx, configPath, cmdConf); err != nil {
		log.Err(err).Msg("failed to run regionwatch")
	}
}
