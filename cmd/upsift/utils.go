package upsift

import (
	"runtime/debug"

	semver3 "github.com/blang/semver"
	semver "github.com/blang/semver/v4"
	"github.com/rhysd/go-github-selfupdate/selfupdate"

	"github.com/upsift/upsift/internal/engine"
)

const releaseRepo = "upsift/upsift"

// currentVersion parses the build version, falling back to 0.0.0 for dev
// builds so the self-updater always has something to compare against.
func currentVersion() semver.Version {
	v := version
	if info, ok := debug.ReadBuildInfo(); ok && v == "" {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				v = s.Value
			}
		}
	}
	ver, err := semver.ParseTolerant(v)
	if err != nil {
		return semver.MustParse("0.0.0")
	}
	return ver
}

// selfUpdate replaces the running binary with the latest GitHub release and
// returns the version now installed.
func selfUpdate() (string, error) {
	latest, err := selfupdate.UpdateSelf(semver3.MustParse(currentVersion().String()), releaseRepo)
	if err != nil {
		return "", err
	}
	return latest.Version.String(), nil
}

func pickString(cli string, local, global *string) string {
	if cli != "" {
		return cli
	}
	if local != nil && *local != "" {
		return *local
	}
	if global != nil && *global != "" {
		return *global
	}
	return ""
}

func pickInt(cli int, local, global *int) int {
	if cli != 0 {
		return cli
	}
	if local != nil && *local != 0 {
		return *local
	}
	if global != nil && *global != 0 {
		return *global
	}
	return 0
}

func pickBool(cli bool, local, global *bool) bool {
	if cli {
		return true
	}
	if local != nil {
		return *local
	}
	if global != nil {
		return *global
	}
	return false
}

// pickList resolves an id list; the CLI value is comma-separated.
func pickList(cli string, local, global []string) []string {
	if ids := engine.ParseIDList(cli); len(ids) > 0 {
		return ids
	}
	if local != nil {
		return local
	}
	return global
}
