package regionwatch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sjzar/regionwatch/internal/regionwatch/conf"
	"github.com/sjzar/regionwatch/internal/updater"
	"github.com/sjzar/regionwatch/pkg/version"
)

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.AddCommand(updateCheckCmd)
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update commands",
}

var updateCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the update endpoint once",
	Run: func(cmd *cobra.Command, args []string) {
		c, _, err := conf.Load(configPath, nil)
		if err != nil {
			log.Err(err).Msg("load config failed")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		source := updater.NewHTTPSource(c.Updater.Endpoint, version.Version, c.Updater.Target)
		release, err := source.Check(ctx)
		switch {
		case err != nil:
			log.Err(err).Msg("update check failed")
		case release == nil:
			fmt.Printf("regionwatch %s: no update\n", version.Version)
		default:
			fmt.Printf("regionwatch %s: %s available\n%s\n", version.Version, release.Version, release.URL)
		}
	},
}
