package platform

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// RealDetector implements Detector using actual platform detection.
type RealDetector struct{}

// NewDetector creates a new platform detector.
func NewDetector() Detector {
	return &RealDetector{}
}

// Detect uses runtime.GOOS and runtime.GOARCH for OS and architecture and
// gopsutil for Linux distribution details.
//
// When gopsutil cannot determine the distribution the distro fields stay
// empty; phar compatibility only depends on the OS family.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	info := &Info{
		OS:       runtime.GOOS,
		OSFamily: osFamily(runtime.GOOS),
		Arch:     normalizeArch(runtime.GOARCH),
	}

	if runtime.GOOS != "linux" {
		return info, nil
	}

	distro, family, ver, err := host.PlatformInformationWithContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
		}
		return info, nil
	}

	if distro = normalizeID(distro); distro != "" {
		info.Distro = distro
		info.DistroFamily = mapDistroFamily(family)
		info.DistroVersion = normalizeID(ver)
	}

	return info, nil
}

// EnvironmentDetector combines host detection and runtime probing into an
// Environment snapshot.
type EnvironmentDetector struct {
	detector Detector
	prober   RuntimeProber
}

// NewEnvironmentDetector creates an EnvironmentDetector.
func NewEnvironmentDetector(detector Detector, prober RuntimeProber) *EnvironmentDetector {
	return &EnvironmentDetector{detector: detector, prober: prober}
}

// Environment detects the host and probes the runtime. A missing runtime is
// not an error: the snapshot simply has no Runtime.
func (d *EnvironmentDetector) Environment(ctx context.Context) (Environment, error) {
	info, err := d.detector.Detect(ctx)
	if err != nil {
		return Environment{}, fmt.Errorf("detect host: %w", err)
	}

	env := Environment{Info: *info}
	if d.prober == nil {
		return env, nil
	}

	rt, err := d.prober.Probe(ctx)
	if err != nil {
		if errors.Is(err, ErrRuntimeNotFound) {
			return env, nil
		}
		return Environment{}, fmt.Errorf("probe runtime: %w", err)
	}
	env.Runtime = rt

	return env, nil
}
