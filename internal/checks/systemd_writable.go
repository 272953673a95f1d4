package checks

import (
	"context"
	"errors"
	"io/fs"
	"strings"

	"github.com/upsift/upsift/internal/types"
)

var systemdUnitDirs = []string{"/etc/systemd/system", "/lib/systemd/system", "/usr/lib/systemd/system"}

type systemdWritable struct{ Meta }

func init() {
	Register(func() Check {
		return &systemdWritable{Meta{
			CheckID:   "systemd_writable",
			CheckName: "Writable systemd service files",
			Sev:       types.SevHigh,
			Desc:      "Writable unit files allow command hijack to escalate privileges on service restart.",
		}}
	})
}

func (c *systemdWritable) Run(ctx context.Context, env Env) ([]types.Finding, error) {
	var risky []string
	for _, dir := range systemdUnitDirs {
		err := env.Host.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
			// Masked units are symlinks to /dev/null, which is always 0666.
			if !d.Type().IsRegular() || !strings.HasSuffix(p, ".service") || env.Ignore.Match(p) {
				return nil
			}
			info, ierr := env.Host.Stat(p)
			if ierr == nil && info.Mode().IsRegular() && worldWritable(info.Mode()) {
				risky = append(risky, "World-writable: "+p)
			}
			return nil
		})
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	if len(risky) == 0 {
		return nil, nil
	}
	f := c.Finding(types.SevHigh, "Writable systemd units detected", c.Desc)
	f.Evidence = types.Str(capLines(risky))
	f.Remediation = types.Str("Set permissions to 0644 and owner root:root for service files.")
	f.References = []string{"https://www.freedesktop.org/software/systemd/man/systemd.unit.html"}
	return []types.Finding{f}, nil
}
