package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/pharm/internal/service"
	"github.com/ZebulonRouseFrantzich/pharm/internal/transaction"
)

func newStatusCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show declared phars, unused stored phars and unfinished operations",
		Args:  cobra.NoArgs,
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

			report, err := a.listService(reg, cfg).Status(ctx)
			if err != nil {
				return err
			}
			printStatus(a.out, report)

			if strict && !report.Consistent() {
				return &ExitError{Code: ExitFailure}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero unless everything is installed and consistent")
	return cmd
}

func printStatus(out io.Writer, report *service.StatusReport) {
	printPharList(out, report.Phars)

	if len(report.Unused) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, TitleStyle.Render("Unused stored phars:"))
		for _, e := range report.Unused {
			fmt.Fprintf(out, "  %s %s %s\n", e.Name, e.Version, SubtitleStyle.Render(e.File))
		}
		fmt.Fprintln(out, "Run "+CmdStyle.Render("pharm purge")+" to delete them.")
	}

	if len(report.Incomplete) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, WarningStyle.Render("Unfinished operations:"))
		for _, j := range report.Incomplete {
			fmt.Fprintln(out, "  "+describeJournal(j))
		}
	}
}

// describeJournal summarises an unfinished operation, e.g.
// "install phpunit 10.5.0: failed at configure (disk full); completed install, register".
func describeJournal(j *transaction.Journal) string {
	var b strings.Builder
	b.WriteString(string(j.Operation))
	if j.Phar != "" {
		b.WriteString(" " + j.Phar)
	}
	if j.PharVersion != "" {
		b.WriteString(" " + j.PharVersion)
	}

	if failed, ok := j.FailedStep(); ok {
		fmt.Fprintf(&b, ": failed at %s", failed.Step)
		if failed.LastError != "" {
			fmt.Fprintf(&b, " (%s)", failed.LastError)
		}
	} else {
		b.WriteString(": interrupted")
	}

	if done := j.CompletedSteps(); len(done) > 0 {
		names := make([]string, len(done))
		for i, s := range done {
			names[i] = string(s)
		}
		b.WriteString("; completed " + strings.Join(names, ", "))
	}
	return b.String()
}
