package app

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/phillarmonic/figlet/figletlib"

	"github.com/ansible/ansible-risk-insight-sub000/internal/index"
)

// Domain: Version Display
// This file contains logic for displaying version information

const unknownBuild = "unknown"

// BuildInfo describes the running binary
type BuildInfo struct {
	Version   string
	Commit    string
	Date      string
	GoVersion string
	Platform  string
	Modified  bool
	Builtins  int
}

// NewBuildInfo merges the values injected at link time with the VCS stamps of
// the Go build, which fill in whatever the linker left unknown
func NewBuildInfo(version, commit, date string) BuildInfo {
	info := BuildInfo{
		Version:   version,
		Commit:    commit,
		Date:      date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Builtins:  len(index.BuiltinModuleNames()),
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == unknownBuild && len(s.Value) >= 12 {
				info.Commit = s.Value[:12]
			}
		case "vcs.time":
			if info.Date == unknownBuild {
				info.Date = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

// WriteDetails prints the plain version lines without the banner
func (b BuildInfo) WriteDetails(out io.Writer) {
	_, _ = fmt.Fprintf(out, "Version %s\n", b.Version)
	if b.Commit != unknownBuild {
		commit := b.Commit
		if b.Modified {
			commit += " (modified)"
		}
		_, _ = fmt.Fprintf(out, "commit: %s\n", commit)
	}
	if b.Date != unknownBuild {
		_, _ = fmt.Fprintf(out, "built: %s\n", b.Date)
	}
	_, _ = fmt.Fprintf(out, "go: %s %s\n", b.GoVersion, b.Platform)
	_, _ = fmt.Fprintf(out, "builtin modules: %d\n", b.Builtins)
}

// ShowVersion displays the banner followed by the build details
func ShowVersion(out io.Writer, info BuildInfo) error {
	font, err := figletlib.NewEmbededLoader().GetFontByName("standard")
	if err != nil {
		return err
	}

	startColor, _ := figletlib.ParseColor("#EE0000")
	endColor, _ := figletlib.ParseColor("#FFB000")
	banner := figletlib.ColorConfig{
		Mode:       figletlib.ColorModeGradient,
		StartColor: startColor,
		EndColor:   endColor,
	}

	_, _ = fmt.Fprintln(out)
	figletlib.FPrintColoredMsg(out, "ARI", font, 80, font.Settings(), "left", banner)
	_, _ = fmt.Fprintln(out, "Ansible Risk Insight: call trees and variable flow for Ansible content")
	_, _ = fmt.Fprintln(out)
	info.WriteDetails(out)
	return nil
}
