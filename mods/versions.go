package mods

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// set by -ldflags "-X github.com/machbase/neo-fusion/mods.versionString=v1.2.3 ..."
var (
	versionString   = ""
	versionGitSHA   = ""
	buildTimestamp  = ""
	goVersionString = ""
)

type Version struct {
	Major      int    `json:"major"`
	Minor      int    `json:"minor"`
	Patch      int    `json:"patch"`
	Prerelease string `json:"prerelease,omitempty"`
	GitSHA     string `json:"git"`
}

// GetVersion returns the zero version for builds without a version string.
func GetVersion() *Version {
	v, err := semver.NewVersion(versionString)
	if err != nil {
		return &Version{GitSHA: versionGitSHA}
	}
	return &Version{
		Major:      int(v.Major()),
		Minor:      int(v.Minor()),
		Patch:      int(v.Patch()),
		Prerelease: v.Prerelease(),
		GitSHA:     versionGitSHA,
	}
}

func DisplayVersion() string {
	if versionString == "" {
		return "DEVEL"
	}
	return strings.ToUpper(versionString)
}

func VersionString() string {
	return fmt.Sprintf("%s (%v %v)", DisplayVersion(), versionGitSHA, buildTimestamp)
}

func BuildCompiler() string {
	return goVersionString
}

func BuildTimestamp() string {
	return buildTimestamp
}

// Satisfies checks the version constraint of a filter configuration,
// e.g. ">= 1.2, < 2". An empty constraint and development builds
// always pass.
func Satisfies(constraint string) error {
	if strings.TrimSpace(constraint) == "" {
		return nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("requires %q: %w", constraint, err)
	}
	if versionString == "" {
		return nil
	}
	v, err := semver.NewVersion(versionString)
	if err != nil {
		return fmt.Errorf("build version %q: %w", versionString, err)
	}
	if ok, errs := c.Validate(v); !ok {
		return fmt.Errorf("requires %q: %w", constraint, errs[0])
	}
	return nil
}
