package envcompose

import (
	"context"
	"strings"

	"github.com/leapstack-labs/pithos/internal/toolchain"
)

// SDKRootVar is the variable clang consults for the macOS SDK.
const SDKRootVar = "SDKROOT"

// SDKLocator queries the active platform SDK path. Only darwin has one.
type SDKLocator struct {
	GOOS   string
	Runner toolchain.Runner
}

// Locate returns the SDK path reported by `xcrun --show-sdk-path`.
// Any failure yields ("", false); callers branch on presence.
func (l SDKLocator) Locate(ctx context.Context) (string, bool) {
	if l.GOOS != "darwin" || l.Runner == nil {
		return "", false
	}
	out, err := l.Runner.Output(ctx, toolchain.Command{Name: "xcrun", Args: []string{"--show-sdk-path"}})
	if err != nil {
		return "", false
	}
	path := strings.TrimSpace(string(out))
	if path == "" {
		return "", false
	}
	return path, true
}
