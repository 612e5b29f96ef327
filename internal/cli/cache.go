package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sitecraft/internal/config"
	"github.com/matzehuels/sitecraft/pkg/cache"
	"github.com/matzehuels/sitecraft/pkg/errors"
)

func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the local snapshot cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the file cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := c.cacheDir()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, dir)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every cached snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.cfg.Cache.Backend == config.CacheRedis {
				return errors.New(errors.ErrCodeUnsupported, "redis snapshots expire after %s; flush the database to drop them early", c.cfg.Cache.TTL)
			}
			dir, err := c.cacheDir()
			if err != nil {
				return err
			}
			fc, err := cache.NewFileCache(dir)
			if err != nil {
				return errors.Wrap(errors.ErrCodeStorage, err, "open cache %s", dir)
			}
			n, err := fc.Clear()
			if err != nil {
				return errors.Wrap(errors.ErrCodeStorage, err, "clear cache %s", dir)
			}
			if n == 0 {
				printInfo("Cache is empty")
				return nil
			}
			printSuccess("Cleared %d cached snapshots", n)
			printDetail("Directory: %s", dir)
			return nil
		},
	})
	return cmd
}

// cacheDir is cache.dir from the config, else the per-user default.
func (c *CLI) cacheDir() (string, error) {
	if dir := c.cfg.Cache.Dir; dir != "" {
		return dir, nil
	}
	dir, err := cache.DefaultDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "locate user cache directory")
	}
	return dir, nil
}
