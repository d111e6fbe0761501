package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/pharm/internal/config"
	"github.com/ZebulonRouseFrantzich/pharm/internal/service"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the phars declared in pharm.lua",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			reg, err := a.openRegistry()
			if err != nil {
				return err
			}
			cfg, err := a.openConfig(ctx)
			if err != nil {
				return err
			}

			items, err := a.listService(reg, cfg).List(ctx)
			if err != nil {
				return err
			}
			printPharList(a.out, items)
			return nil
		},
	}
}

func printPharList(out io.Writer, items []service.ListItem) {
	if len(items) == 0 {
		fmt.Fprintln(out, "No phars are declared in "+config.FileName+".")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "To install one:")
		fmt.Fprintln(out, "  "+CmdStyle.Render("pharm install phpunit"))
		return
	}

	fmt.Fprintln(out, TitleStyle.Render("Declared phars:"))
	fmt.Fprintln(out)

	width := 0
	for _, item := range items {
		width = max(width, len(item.Phar.Name))
	}
	for _, item := range items {
		line := fmt.Sprintf("  %s %-*s %s", statusSymbol(item.Status), width, item.Phar.Name, item.Phar.Version.String())
		if opts := formatPharOptions(item.Phar); opts != "" {
			line += " " + SubtitleStyle.Render(opts)
		}
		fmt.Fprintln(out, line)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, SubtitleStyle.Render("Legend: ✓ installed, ✗ missing, ? partial"))
}

func statusSymbol(s config.PharStatus) string {
	switch s {
	case config.StatusInstalled:
		return SuccessStyle.Render(s.Symbol())
	case config.StatusMissing:
		return ErrorStyle.Render(s.Symbol())
	default:
		return WarningStyle.Render(s.Symbol())
	}
}

// formatPharOptions renders the constraint, location and copy mode of a
// declared phar, e.g. "(^10.5, ./tools/phpunit, copy)".
func formatPharOptions(p config.InstalledPhar) string {
	var opts []string
	if c := p.Constraint.String(); c != "" {
		opts = append(opts, c)
	}
	if p.Location != "" {
		opts = append(opts, p.Location)
	}
	if p.Copy {
		opts = append(opts, "copy")
	}

	if len(opts) == 0 {
		return ""
	}
	return "(" + strings.Join(opts, ", ") + ")"
}
