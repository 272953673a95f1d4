package checks

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/upsift/upsift/internal/host"
	"github.com/upsift/upsift/internal/types"
)

// containerGroups grant root-equivalent access through the container daemon.
var containerGroups = []struct {
	name string
	ref  string
}{
	{"docker", "https://docs.docker.com/engine/security/"},
	{"lxd", "https://documentation.ubuntu.com/lxd/en/latest/security/"},
}

type dockerGroup struct{ Meta }

func init() {
	Register(func() Check {
		return &dockerGroup{Meta{
			CheckID:   "docker_group",
			CheckName: "User in docker group",
			Sev:       types.SevHigh,
			Desc:      "Users in the 'docker' group can gain root on the host by mounting the filesystem via containers.",
		}}
	})
}

type groupEntry struct {
	name    string
	gid     string
	members []string
}

func parseGroups(b []byte) map[string]groupEntry {
	out := map[string]groupEntry{}
	for _, l := range host.Lines(b) {
		parts := strings.Split(l, ":")
		if len(parts) < 4 || strings.HasPrefix(l, "#") {
			continue
		}
		g := groupEntry{name: parts[0], gid: parts[2]}
		for _, m := range strings.Split(parts[3], ",") {
			if m = strings.TrimSpace(m); m != "" {
				g.members = append(g.members, m)
			}
		}
		out[g.name] = g
	}
	return out
}

// primaryGID returns the user's primary gid from /etc/passwd, or "".
func primaryGID(h host.Host, user string) string {
	b, err := h.ReadFile("/etc/passwd")
	if err != nil {
		return ""
	}
	for _, l := range host.Lines(b) {
		parts := strings.Split(l, ":")
		if len(parts) >= 4 && parts[0] == user {
			return parts[3]
		}
	}
	return ""
}

func (c *dockerGroup) Run(ctx context.Context, env Env) ([]types.Finding, error) {
	user, err := env.Host.Username()
	if err != nil {
		return nil, err
	}
	b, err := env.Host.ReadFile("/etc/group")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read /etc/group: %w", err)
	}
	groups := parseGroups(b)
	gid := primaryGID(env.Host, user)

	var out []types.Finding
	for _, cg := range containerGroups {
		g, ok := groups[cg.name]
		if !ok {
			continue
		}
		if !slices.Contains(g.members, user) && (gid == "" || gid != g.gid) {
			continue
		}
		f := c.Finding(types.SevHigh, fmt.Sprintf("User '%s' is in %s group", user, cg.name), c.Desc)
		f.Evidence = types.Str("Group members: " + strings.Join(g.members, ", "))
		f.Remediation = types.Str(fmt.Sprintf("Remove non-admins from the %s group or use rootless mode with strict controls.", cg.name))
		f.References = []string{cg.ref}
		out = append(out, f)
	}
	return out, ctx.Err()
}
