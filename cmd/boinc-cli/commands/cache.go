package commands

import (
	"fmt"

	"boincstats/lib/diskcache"
	"boincstats/lib/serviceutil"

	"github.com/spf13/cobra"
)

var cachePreserve *bool

func init() {
	cachePreserve = cacheCmd.Flags().Bool("preserve", false, "Only index fresh files, do not delete stale ones.")
	rootCmd.AddCommand(cacheCmd)
}

var cacheCmd = &cobra.Command{
	Use:   "cache [--preserve]",
	Short: "Evicts stale pages from the cache directory and prints how many entries are left.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		cache, err := diskcache.New(diskcache.Options{
			Dir:      cfg.cacheDir(),
			Preserve: *cachePreserve,
		})
		if err != nil {
			serviceutil.Fatal("failed to open cache", err)
		}
		indexed := cache.Refresh(cmd.Context())
		fmt.Printf("%d fresh entries in %s\n", indexed, cache.Dir())
	},
}
