// Package version reports how the graphask binary was built.
//
// Release builds set Version, GitCommit and BuildTime with -ldflags. Builds
// made with `go install` or `go build` fall back to the VCS stamps the Go
// toolchain records in the binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// backendModules names the modules whose versions matter when reporting a
// query-generation problem.
var backendModules = map[string]string{
	"github.com/neo4j/neo4j-go-driver/v5": "neo4j",
	"github.com/tmc/langchaingo":          "langchaingo",
	"go.starlark.net":                     "starlark",
	"github.com/nats-io/nats.go":          "nats",
}

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`

	// Backends maps a short backend name to the linked module version.
	Backends map[string]string `json:"backends,omitempty"`
}

var readBuildInfo = debug.ReadBuildInfo

// Info returns the build information of the running binary.
func Info() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		Commit:    GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if bi, ok := readBuildInfo(); ok {
		info = merge(info, bi)
	}
	return info
}

// merge fills what ldflags left unset from the toolchain's build info.
func merge(info BuildInfo, bi *debug.BuildInfo) BuildInfo {
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
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
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	for _, dep := range bi.Deps {
		name, ok := backendModules[dep.Path]
		if !ok {
			continue
		}
		if info.Backends == nil {
			info.Backends = make(map[string]string)
		}
		v := dep.Version
		if dep.Replace != nil {
			v = dep.Replace.Version
		}
		info.Backends[name] = v
	}
	return info
}

// String returns a one-line banner such as
// "graphask v0.3.1 (abc1234def56, 2026-10-01T12:00:00Z) go1.24.2 linux/amd64".
func String() string {
	info := Info()
	commit := info.Commit
	switch {
	case commit == "":
		commit = "unknown commit"
	case len(commit) > 12:
		commit = commit[:12]
	}
	if info.Modified {
		commit += "+dirty"
	}
	built := info.BuildTime
	if built == "" {
		built = "unknown build time"
	}
	return fmt.Sprintf("graphask %s (%s, %s) %s %s", info.Version, commit, built, info.GoVersion, info.Platform)
}
