package mods

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func setVersion(t *testing.T, v string) {
	t.Helper()
	saved := versionString
	versionString = v
	t.Cleanup(func() { versionString = saved })
}

func TestVersion(t *testing.T) {
	setVersion(t, "v1.2.3-rc1")
	versionGitSHA = "11f32f31"
	buildTimestamp = "2023/08/23T11:22"
	goVersionString = "1.20.2"

	ver := GetVersion()
	require.NotNil(t, ver)
	require.Equal(t, 1, ver.Major)
	require.Equal(t, 2, ver.Minor)
	require.Equal(t, 3, ver.Patch)
	require.Equal(t, "rc1", ver.Prerelease)
	require.Equal(t, "11f32f31", ver.GitSHA)
	require.Equal(t, "V1.2.3-RC1", DisplayVersion())
	require.Equal(t, "V1.2.3-RC1 (11f32f31 2023/08/23T11:22)", VersionString())
	require.Equal(t, "1.20.2", BuildCompiler())
	require.Equal(t, "2023/08/23T11:22", BuildTimestamp())
}

func TestDevelVersion(t *testing.T) {
	setVersion(t, "")
	require.Equal(t, "DEVEL", DisplayVersion())
	require.Equal(t, 0, GetVersion().Major)
	require.NoError(t, Satisfies(">= 9"))
	require.Error(t, Satisfies("not a constraint"))
}

func TestSatisfies(t *testing.T) {
	setVersion(t, "v1.4.0")
	require.NoError(t, Satisfies(""))
	require.NoError(t, Satisfies(">= 1.2, < 2"))
	require.NoError(t, Satisfies("~1.4"))
	require.Error(t, Satisfies(">= 2"))
	require.Error(t, Satisfies("1.3.x"))
}
