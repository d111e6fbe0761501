package main

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/pharm/internal/config"
	"github.com/ZebulonRouseFrantzich/pharm/internal/service"
)

// DefaultTargetDir is where phars are installed unless --target is given.
const DefaultTargetDir = "tools"

// pharRequest is one NAME[@CONSTRAINT] argument.
type pharRequest struct {
	Name       string
	Constraint string
}

// parsePharRequest splits "phpunit@^10.5" into name and constraint. Names
// may be "owner/repo" GitHub references.
func parsePharRequest(arg string) (pharRequest, error) {
	name, constraint, _ := strings.Cut(strings.TrimSpace(arg), "@")
	name = strings.TrimSpace(name)
	if name == "" {
		return pharRequest{}, fmt.Errorf("invalid phar %q: missing name", arg)
	}
	if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") || strings.Count(name, "/") > 1 {
		return pharRequest{}, fmt.Errorf("invalid phar %q: expected NAME or OWNER/REPO", arg)
	}
	return pharRequest{Name: name, Constraint: strings.TrimSpace(constraint)}, nil
}

// ToolName is the file name the phar is installed under.
func (r pharRequest) ToolName() string {
	return path.Base(r.Name)
}

func newInstallCmd() *cobra.Command {
	var (
		target   string
		makeCopy bool
		noIgnore bool
	)

	cmd := &cobra.Command{
		Use:   "install [NAME[@CONSTRAINT]...]",
		Short: "Install phars into the project",
		Long: `Install phars into the project and declare them in pharm.lua.

Without arguments every phar declared in pharm.lua is installed at its
pinned version. With arguments each phar is resolved against its
constraint (any version when omitted) and installed into --target.`,
		Example: `  pharm install phpunit
  pharm install phpstan@^1.10 --copy
  pharm install sebastianbergmann/phpcov@~9.0 --target bin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			requests := make([]pharRequest, 0, len(args))
			for _, arg := range args {
				r, err := parsePharRequest(arg)
				if err != nil {
					return &ExitError{Code: ExitUsage, Err: err}
				}
				requests = append(requests, r)
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			return runInstall(cmd.Context(), a, requests, target, makeCopy, !noIgnore)
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", DefaultTargetDir, "directory to install into, relative to the project")
	cmd.Flags().BoolVar(&makeCopy, "copy", false, "copy the phar instead of linking it")
	cmd.Flags().BoolVar(&noIgnore, "no-gitignore", false, "do not add linked phars to .gitignore")
	return cmd
}

func runInstall(ctx context.Context, a *app, requests []pharRequest, target string, makeCopy, ignoreLinked bool) error {
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
	svc, err := a.installService(reg, cfg)
	if err != nil {
		return err
	}

	var linked []string
	defer func() {
		if ignoreLinked {
			a.ignore(ctx, linked)
		}
	}()

	if len(requests) == 0 {
		return installDeclared(ctx, a.out, svc, cfg.Phars(), &linked)
	}

	if !filepath.IsAbs(target) {
		target = filepath.Join(a.projectDir, target)
	}

	var failed []error
	for _, r := range requests {
		dest := filepath.Join(target, r.ToolName())
		result, err := svc.InstallRequest(ctx, r.Name, r.Constraint, dest, makeCopy)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			printInstallFailure(a.out, r.Name, err)
			failed = append(failed, err)
			continue
		}
		printInstalled(a.out, result)
		if !makeCopy {
			linked = append(linked, result.Destination)
		}
	}
	return joinFailures(failed)
}

func installDeclared(ctx context.Context, out io.Writer, svc *service.InstallService, declared []config.InstalledPhar, linked *[]string) error {
	if len(declared) == 0 {
		fmt.Fprintln(out, "No phars are declared in "+config.FileName+".")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "To install one:")
		fmt.Fprintln(out, "  "+CmdStyle.Render("pharm install phpunit"))
		return nil
	}

	var failed []error
	for _, p := range declared {
		result, err := svc.Restore(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			printInstallFailure(out, p.Name, err)
			failed = append(failed, err)
			continue
		}
		printInstalled(out, result)
		if !p.Copy {
			*linked = append(*linked, result.Destination)
		}
	}
	return joinFailures(failed)
}

func printInstalled(out io.Writer, r *service.InstallResult) {
	fmt.Fprintf(out, "%s %s %s %s\n",
		SuccessStyle.Render("✓"),
		r.Artifact.Name,
		r.Artifact.Version.String(),
		SubtitleStyle.Render("→ "+r.Destination))
}

func printInstallFailure(out io.Writer, name string, err error) {
	fmt.Fprintf(out, "%s %s: %s\n", ErrorStyle.Render("✗"), name, err)
}

// joinFailures keeps the exit code of the first failure.
func joinFailures(failed []error) error {
	switch len(failed) {
	case 0:
		return nil
	case 1:
		return &ExitError{Code: exitCode(failed[0])}
	default:
		return &ExitError{Code: exitCode(failed[0]), Err: fmt.Errorf("%d phars failed to install", len(failed))}
	}
}
