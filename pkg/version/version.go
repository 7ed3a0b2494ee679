package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"golang.org/x/mod/semver"
)

var (
	// Version is overridden at link time with -X for release builds
	Version   = "(dev)"
	buildInfo = debug.BuildInfo{}
)

func init() {
	if bi, ok := debug.ReadBuildInfo(); ok {
		buildInfo = *bi
		if len(bi.Main.Version) > 0 && bi.Main.Version != "(devel)" && Version == "(dev)" {
			Version = bi.Main.Version
		}
	}
}

// IsRelease reports whether Version is a semantic version, with or without the leading "v".
func IsRelease() bool {
	return semver.IsValid(Canonical(Version))
}

// Canonical adds the "v" prefix semver expects.
func Canonical(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

func GetMore(mod bool) string {
	if mod {
		mod := buildInfo.String()
		if len(mod) > 0 {
			return fmt.Sprintf("\t%s\n", strings.ReplaceAll(mod[:len(mod)-1], "\n", "\n\t"))
		}
	}
	release := "dev"
	if IsRelease() {
		release = "release"
	}
	return fmt.Sprintf("version %s (%s) %s %s/%s\n", Version, release, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
