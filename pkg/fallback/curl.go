package fallback

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/codeGROOVE-dev/sockpuppet/pkg/htmlutil"
)

// Curl shells out to the curl binary and parses its output.
type Curl struct {
	path      string
	base      string
	userAgent string
}

// NewCurl returns the curl strategy. An empty path means "curl" on PATH and an
// empty ua sends UserAgent.
func NewCurl(path, base, ua string) *Curl {
	if path == "" {
		path = "curl"
	}
	return &Curl{path: path, base: base, userAgent: agentOrDefault(ua)}
}

// Name implements Strategy.
func (*Curl) Name() string { return "curl" }

// BioLength implements Strategy.
func (c *Curl) BioLength(ctx context.Context, username string) (int, error) {
	cmd := exec.CommandContext(ctx, c.path, "-sL", ProfileURL(c.base, username), "-A", c.userAgent) //nolint:gosec // fixed argv
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", c.path, err)
	}

	desc, ok := htmlutil.MetaContent(bytes.NewReader(out), "description")
	if !ok {
		if htmlutil.IsUnavailable(string(out)) {
			return 0, errUnavailable
		}
		return 0, nil
	}
	return htmlutil.BioLength(desc), nil
}
