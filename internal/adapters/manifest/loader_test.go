package manifest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sawolford/onsub/internal/adapters/manifest"
	"github.com/sawolford/onsub/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoader_Load_YAML(t *testing.T) {
	path := writeManifest(t, "repos.yaml", `
hg:
  - tools
  - [vendor/lib, "ssh://hg@example.com/lib", default]
git:
  - [src/app, "https://example.com/app.git"]
  - docs
`)

	got, err := manifest.NewLoader().Load([]string{path})
	require.NoError(t, err)

	assert.Equal(t, []domain.Candidate{
		{Path: "tools", Section: "hg", Args: []string{}},
		{Path: "vendor/lib", Section: "hg", Args: []string{"ssh://hg@example.com/lib", "default"}},
		{Path: "src/app", Section: "git", Args: []string{"https://example.com/app.git"}},
		{Path: "docs", Section: "git", Args: []string{}},
	}, got)
}

func TestLoader_Load_TOML(t *testing.T) {
	path := writeManifest(t, "repos.toml", `
svn = ["trunk", ["branches/rel", "https://svn.example.com/rel", 42]]
git = [["app", "https://example.com/app.git"]]
`)

	got, err := manifest.NewLoader().Load([]string{path})
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, "svn", got[0].Section)
	assert.Equal(t, "trunk", got[0].Path)
	assert.Equal(t, []string{"https://svn.example.com/rel", "42"}, got[1].Args)
	assert.Equal(t, domain.Candidate{Path: "app", Section: "git", Args: []string{"https://example.com/app.git"}}, got[2])
}

func TestLoader_Load_GroupsSectionsAcrossFiles(t *testing.T) {
	first := writeManifest(t, "a.yaml", "git: [one]\nhg: [two]\n")
	second := writeManifest(t, "b.toml", "svn = [\"three\"]\ngit = [\"four\"]\n")

	got, err := manifest.NewLoader().Load([]string{first, second})
	require.NoError(t, err)

	var order []string
	for _, c := range got {
		order = append(order, c.Section+":"+c.Path)
	}
	assert.Equal(t, []string{"git:one", "git:four", "hg:two", "svn:three"}, order)
	for _, c := range got {
		assert.True(t, c.Assigned())
	}
}

func TestLoader_Load_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr error
	}{
		{name: "not a mapping", file: "m.yaml", content: "- a\n- b\n", wantErr: domain.ErrManifestParseFailed},
		{name: "bad entry", file: "m.yaml", content: "git:\n  - {path: a}\n", wantErr: domain.ErrManifestParseFailed},
		{name: "empty path", file: "m.yaml", content: "git:\n  - []\n", wantErr: domain.ErrManifestParseFailed},
		{name: "bad toml", file: "m.toml", content: "git = [\n", wantErr: domain.ErrManifestParseFailed},
		{name: "unsupported", file: "m.ini", content: "git=a", wantErr: domain.ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, tt.file, tt.content)
			_, err := manifest.NewLoader().Load([]string{path})
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, domain.ExitMissingFile, domain.ExitCode(err))
		})
	}
}

func TestLoader_Load_MissingFile(t *testing.T) {
	_, err := manifest.NewLoader().Load([]string{filepath.Join(t.TempDir(), "absent.yaml")})
	require.ErrorIs(t, err, domain.ErrManifestNotFound)
	assert.Equal(t, domain.ExitMissingFile, domain.ExitCode(err))
}

func TestLoader_Load_Empty(t *testing.T) {
	path := writeManifest(t, "empty.yaml", "")

	got, err := manifest.NewLoader().Load([]string{path})
	require.NoError(t, err)
	assert.Empty(t, got)
}
