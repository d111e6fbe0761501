package platform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"sort"
	"strings"

	"github.com/ZebulonRouseFrantzich/pharm/internal/version"
)

// ErrRuntimeNotFound is returned when no PHP interpreter can be located.
var ErrRuntimeNotFound = errors.New("php runtime not found")

// DefaultPHPBinary is looked up on PATH when no binary is configured.
const DefaultPHPBinary = "php"

// probeScript prints the version on the first line and the loaded extensions,
// comma separated, on the second.
const probeScript = `echo PHP_VERSION, PHP_EOL, implode(",", get_loaded_extensions()), PHP_EOL;`

var (
	phpVersionRegex    = regexp.MustCompile(`^(\d+\.\d+\.\d+)(.*)$`)
	phpPreReleaseRegex = regexp.MustCompile(`(?i)^-?(dev|alpha\d*|beta\d*|rc\d*)$`)
)

// PHPProber implements RuntimeProber by executing the PHP CLI.
type PHPProber struct {
	binary string
}

// NewPHPProber creates a prober for the given binary. An empty binary means
// "php" from PATH.
func NewPHPProber(binary string) *PHPProber {
	if binary == "" {
		binary = DefaultPHPBinary
	}
	return &PHPProber{binary: binary}
}

// Probe runs the interpreter and parses its version and extensions.
func (p *PHPProber) Probe(ctx context.Context) (*Runtime, error) {
	path, err := exec.LookPath(p.binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRuntimeNotFound, p.binary)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "-r", probeScript)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("run %s: %w (stderr: %s)", path, err, strings.TrimSpace(stderr.String()))
	}

	rt, err := parseProbeOutput(stdout.String())
	if err != nil {
		return nil, err
	}
	rt.Binary = path

	return rt, nil
}

// parseProbeOutput parses the two-line output of probeScript.
func parseProbeOutput(out string) (*Runtime, error) {
	lines := strings.Split(strings.ReplaceAll(out, "\r\n", "\n"), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, fmt.Errorf("empty runtime probe output")
	}

	v, err := parsePHPVersion(strings.TrimSpace(lines[0]))
	if err != nil {
		return nil, fmt.Errorf("parse runtime version: %w", err)
	}

	rt := &Runtime{Version: v}
	if len(lines) > 1 {
		for _, ext := range strings.Split(lines[1], ",") {
			if ext = normalizeExtension(ext); ext != "" {
				rt.Extensions = append(rt.Extensions, ext)
			}
		}
		sort.Strings(rt.Extensions)
	}

	return rt, nil
}

// parsePHPVersion reads a PHP_VERSION string. PHP's own pre-release tags
// ("8.3.0-dev", "8.4.0RC1") are kept; any other suffix is a distro package
// revision ("8.1.2-1ubuntu2.14", "8.2.7-1~deb12u1") and is dropped.
func parsePHPVersion(raw string) (version.Version, error) {
	m := phpVersionRegex.FindStringSubmatch(raw)
	if m == nil {
		return version.Parse(raw)
	}

	s := m[1]
	if pre := phpPreReleaseRegex.FindStringSubmatch(m[2]); pre != nil {
		s += "-" + pre[1]
	}

	return version.Parse(s)
}
