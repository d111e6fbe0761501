package main

import (
	"errors"

	"github.com/spf13/cobra"
)

var (
	verbose      bool
	settingsFile string
	homeDir      string
	projectDir   string
	assumeYes    bool
	assumeNo     bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pharm",
		Short: "Install and verify PHP archives for a project",
		Long: TitleStyle.Render("pharm") + ` installs phar tools into a project.

Every phar is downloaded once into a shared store, verified against its
OpenPGP signature and checked against the PHP runtime before it is linked
or copied into the project. Installed tools are declared in pharm.lua.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if assumeYes && assumeNo {
				return &ExitError{Code: ExitUsage, Err: errors.New("--yes and --no cannot be combined")}
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	flags.StringVar(&settingsFile, "config", "", "settings file (default $XDG_CONFIG_HOME/pharm/config.toml)")
	flags.StringVar(&homeDir, "home", "", "state directory (default ~/.pharm)")
	flags.StringVarP(&projectDir, "dir", "C", "", "project directory (default current directory)")
	flags.BoolVarP(&assumeYes, "yes", "y", false, "import unknown keys without asking")
	flags.BoolVar(&assumeNo, "no", false, "decline every key import")

	root.AddCommand(
		newInstallCmd(),
		newRemoveCmd(),
		newListCmd(),
		newStatusCmd(),
		newPurgeCmd(),
		newSkelCmd(),
		newVersionCmd(),
	)
	return root
}
