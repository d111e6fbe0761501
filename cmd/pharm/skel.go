package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/pharm/internal/config"
)

func newSkelCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "skel",
		Short: "Create a commented pharm.lua in the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}

			path, err := config.WriteSkeleton(a.projectDir, force)
			if errors.Is(err, config.ErrConfigExists) {
				return &ExitError{Code: ExitFailure, Err: fmt.Errorf("%s already exists, use --force to overwrite it", path)}
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "%s Created %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing pharm.lua")
	return cmd
}
