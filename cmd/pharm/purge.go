package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/pharm/internal/config"
)

func newPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete stored phars that no project uses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			lock, err := a.lock(ctx)
			if err != nil {
				return err
			}
			defer lock.Release()

			reg, err := a.openRegistry()
			if err != nil {
				return err
			}
			// Purge never reads the project config.
			cfg := config.NewStore(a.configPath())

			purged, err := a.removeService(reg, cfg).Purge(ctx)
			if err != nil {
				return err
			}
			if len(purged) == 0 {
				fmt.Fprintln(a.out, "Nothing to purge.")
				return nil
			}
			for _, e := range purged {
				fmt.Fprintf(a.out, "%s Purged %s %s\n", SuccessStyle.Render("✓"), e.Name, e.Version)
			}
			return nil
		},
	}
}
