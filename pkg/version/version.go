// Package version reports the build version of the binaries.
package version

import (
	"os"
	"runtime/debug"

	"golang.org/x/mod/semver"
)

// Version is set at build time:
//
//	go build -ldflags "-X github.com/alucardeht/may-la-specs/pkg/version.Version=1.2.0"
var Version = ""

const EnvVersion = "MAYLA_SPECS_VERSION"

const fallback = "dev"

// Resolve returns the linker-set version, then the MAYLA_SPECS_VERSION
// environment value, then the module version stamped by the go tool, then
// "dev". It never fails.
func Resolve() string {
	if Version != "" {
		return Version
	}
	if v := os.Getenv(EnvVersion); v != "" {
		return v
	}
	if v := moduleVersion(); v != "" {
		return v
	}
	return fallback
}

// moduleVersion reads the main module version from the build info. Builds
// without a release version record "(devel)", which is ignored.
var moduleVersion = func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	return release(info.Main.Version)
}

func release(v string) string {
	if !semver.IsValid(v) {
		return ""
	}
	return v
}
