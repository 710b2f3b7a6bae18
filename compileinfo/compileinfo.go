// Package compileinfo reports the VCS state a binary was built from.
package compileinfo

import (
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"
)

type CompileInfo struct {
	Package    string
	GoVersion  string
	Commit     string
	CommitTime string
	Modified   bool
}

func (c CompileInfo) String() string {
	mod := ""
	if c.Modified {
		mod = " (modified)"
	}

	return fmt.Sprintf("%s built with %s at commit %v (%v)%s", c.Package, c.GoVersion, c.Commit, c.CommitTime, mod)
}

// Fields are the build details as structured log fields.
func (c CompileInfo) Fields() logrus.Fields {
	return logrus.Fields{
		"package":     c.Package,
		"go_version":  c.GoVersion,
		"commit":      c.Commit,
		"commit_time": c.CommitTime,
		"modified":    c.Modified,
	}
}

func Get() CompileInfo {
	return fromBuildInfo(debug.ReadBuildInfo())
}

func fromBuildInfo(z *debug.BuildInfo, ok bool) CompileInfo {
	out := CompileInfo{}
	if !ok || z == nil {
		return out
	}

	out.GoVersion = z.GoVersion
	out.Package = z.Path
	for _, s := range z.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
		case "vcs.time":
			out.CommitTime = s.Value
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}

	return out
}

// Log writes the build details of the running binary at info level.
func Log(log logrus.FieldLogger) {
	log.WithFields(Get().Fields()).Infoln("Build")
}
