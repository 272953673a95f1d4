package checks

import (
	"context"
	"errors"
	"io/fs"

	"github.com/upsift/upsift/internal/types"
)

var cronPaths = []string{
	"/etc/crontab",
	"/etc/cron.d",
	"/var/spool/cron",
	"/var/spool/cron/crontabs",
}

type cronWritable struct{ Meta }

func init() {
	Register(func() Check {
		return &cronWritable{Meta{
			CheckID:   "cron_writable",
			CheckName: "Writable cron jobs",
			Sev:       types.SevHigh,
			Desc:      "Writable cron job files or directories can allow privilege escalation or persistence.",
		}}
	})
}

func (c *cronWritable) Run(ctx context.Context, env Env) ([]types.Finding, error) {
	var risky []string
	seen := map[string]bool{}
	for _, root := range cronPaths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := env.Host.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || seen[p] || env.Ignore.Match(p) {
				return nil
			}
			info, ierr := env.Host.Stat(p)
			if ierr != nil {
				return nil
			}
			seen[p] = true
			if worldWritable(info.Mode()) {
				risky = append(risky, "World-writable file: "+p)
			}
			return nil
		})
		if err != nil && !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, fs.ErrPermission) {
			return nil, err
		}
	}
	if len(risky) == 0 {
		return nil, nil
	}
	f := c.Finding(types.SevHigh, "Writable cron entries detected", c.Desc)
	f.Evidence = types.Str(capLines(risky))
	f.Remediation = types.Str("Set correct permissions and ownership on cron files and directories.")
	f.References = []string{"https://wiki.archlinux.org/title/Cron"}
	return []types.Finding{f}, nil
}
