package contracts

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/rinze/analisis-mesas-2011/pkg/contracts/domain"
)

// Version is the release of the analyser. Report and API layouts change only
// with a minor bump.
const Version = "0.3.0"

// Set with -ldflags "-X github.com/rinze/analisis-mesas-2011/pkg/contracts.Commit=...".
var (
	Commit    = ""
	BuildTime = ""
)

// BuildInfo describes the running binary and what it can analyse.
type BuildInfo struct {
	Version   string        `json:"version"`
	Commit    string        `json:"commit,omitempty"`
	BuildTime string        `json:"build_time,omitempty"`
	GoVersion string        `json:"go_version"`
	Rules     []domain.Rule `json:"rules"`
	Layouts   []string      `json:"layouts"`
}

// Build returns the build information. Without ldflags the commit is taken
// from the VCS stamp the go tool embeds.
func Build() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Rules:     []domain.Rule{domain.RuleRelativeRatio, domain.RuleAbsoluteFraction},
		Layouts:   []string{string(domain.LayoutV1), string(domain.LayoutV2)},
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.BuildTime == "" {
					info.BuildTime = s.Value
				}
			}
		}
	}
	return info
}

// String renders the version for reports and logs.
func (b BuildInfo) String() string {
	if len(b.Commit) >= 7 {
		return fmt.Sprintf("analisis-mesas v%s (%s)", b.Version, b.Commit[:7])
	}
	return "analisis-mesas v" + b.Version
}
