package regionwatch

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sjzar/regionwatch/internal/iprange"
	"github.com/sjzar/regionwatch/internal/regionwatch/conf"
)

func init() {
	rootCmd.AddCommand(regionCmd)
}

var regionCmd = &cobra.Command{
	Use:   "region <ip>...",
	Short: "Resolve addresses against the region table",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, _, err := conf.Load(configPath, nil)
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
		ranges, err := source.Get(ctx)
		if err != nil {
			log.Err(err).Msg("load region table failed")
			return
		}

		for _, arg := range args {
			ip := net.ParseIP(arg)
			if ip == nil {
				fmt.Printf("%s\tinvalid address\n", arg)
				continue
			}
			region, ok, err := ranges.Match(ip)
			switch {
			case err != nil:
				log.Err(err).Msg("match failed")
				return
			case ok:
				fmt.Printf("%s\t%s\n", arg, region)
			default:
				fmt.Printf("%s\t-\n", arg)
			}
		}
	},
}
