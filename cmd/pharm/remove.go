package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove NAME...",
		Aliases: []string{"rm"},
		Short:   "Remove phars from the project",
		Args:    cobra.MinimumNArgs(1),
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
			cfg, err := a.openConfig(ctx)
			if err != nil {
				return err
			}
			svc := a.removeService(reg, cfg)

			unused := false
			for _, name := range args {
				result, err := svc.Remove(ctx, name)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s Removed %s %s\n",
					SuccessStyle.Render("✓"),
					result.Phar.Name,
					SubtitleStyle.Render("("+result.Destination+")"))
				unused = unused || result.Unused
			}

			if unused {
				fmt.Fprintln(a.out)
				fmt.Fprintln(a.out, "Stored phars are no longer used. Reclaim the space with:")
				fmt.Fprintln(a.out, "  "+CmdStyle.Render("pharm purge"))
			}
			return nil
		},
	}
}
