/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package version resolves the application version for the CLI, the User-Agent header and metrics.
package version

import (
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// AppName is used as the User-Agent product token and the Prometheus namespace.
const AppName = "predictdash"

// Version may be set at build time with -ldflags "-X github.com/predictdash/predictdash/internal/version.Version=v1.2.3".
var Version string

var (
	resolved     string
	resolvedOnce sync.Once
)

// Get returns the linked version, the main module version from build info or "v0.0.0".
func Get() string {
	resolvedOnce.Do(func() {
		resolved = Version
		if resolved == "" {
			if bi, ok := debug.ReadBuildInfo(); ok {
				resolved = mainModuleVersion(bi)
			}
		}
		if resolved == "" {
			resolved = "v0.0.0"
		}
	})
	return resolved
}

func mainModuleVersion(bi *debug.BuildInfo) string {
	if bi == nil || bi.Main.Version == "(devel)" {
		return ""
	}
	return bi.Main.Version
}

// UserAgent returns "predictdash/<version>".
func UserAgent() string {
	return AppName + "/" + Get()
}

// NewBuildInfoCollector returns a constant gauge labelled with the version.
func NewBuildInfoCollector() prometheus.Collector {
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   AppName,
		Name:        "build_info",
		Help:        "Build information about the running binary.",
		ConstLabels: prometheus.Labels{"version": Get()},
	})
	g.Set(1)
	return g
}
