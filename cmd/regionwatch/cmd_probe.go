package regionwatch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sjzar/regionwatch/internal/iprange"
	"github.com/sjzar/regionwatch/internal/regionwatch/conf"
	"github.com/sjzar/regionwatch/internal/watcher"
)

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().StringVarP(&probeName, "name", "n", "", "process name, overrides sniffer.process_name")
	probeCmd.Flags().IntVarP(&probePort, "port", "p", 0, "remote port, overrides sniffer.port")
}

var (
	probeName string
	probePort int
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Run one detection pass and print the process state",
	Run: func(cmd *cobra.Command, args []string) {
		cmdConf := map[string]any{}
		if probeName != "" {
			cmdConf["sniffer.process_name"] = probeName
		}
		if probePort > 0 {
			cmdConf["sniffer.port"] = probePort
		}
		c, _, err := conf.Load(configPath, cmdConf)
		if err != nil {
			log.Err(err).Msg("load config failed")
			return
		}

		source, err := iprange.NewSource(c.Region.Source, c.Region.URL, c.GetCacheFile())
		if err != nil {
			log.Err(err).Msg("create region source failed")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		w := watcher.New(watcher.Config{
			ProcessName: c.Sniffer.ProcessName,
			Port:        uint32(c.Sniffer.Port),
		}, source)
		state, err := w.Probe(ctx)
		if err != nil {
			log.Err(err).Msg("probe failed")
			return
		}
		fmt.Printf("%s:%d %s\n", c.Sniffer.ProcessName, c.Sniffer.Port, state)
	},
}
