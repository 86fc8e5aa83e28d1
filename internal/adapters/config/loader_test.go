package config_test

import (
	"context"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/sawolford/onsub/internal/adapters/config"
	"github.com/sawolford/onsub/internal/core/domain"
	"github.com/sawolford/onsub/internal/core/ports/mocks"
	"github.com/sawolford/onsub/internal/engine/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const yamlConfig = `
settings:
  workers: 4
colors:
  path: "33"
defaults:
  vars:
    sep: ";"
  platform:
    windows:
      sep: "&"
profiles:
  git:
    enabled: true
    priority: { score: 4, exists: [".git"] }
    construct:
      command: "git clone {1} {path}"
      args: 1
      unless_exists: ["{path}/.git"]
    vars:
      cmd: git
      token: { env: ONSUB_TEST_TOKEN, value: none }
    commands:
      get: "{cmd} pull"
      run: "{cmd} status --short"
    functions:
      check: gitcheck
  hg:
    priority: { score: 3, dirs: [".hg"] }
    vars: { cmd: hg }
  all:
    enabled: true
    priority: { score: 1, always: true }
    construct: { function: makedirs }
`

const tomlConfig = `
[settings]
verbose = 3

[profiles.svn]
enabled = true
[profiles.svn.priority]
score = 2
dirs = [".svn"]
[profiles.svn.vars]
cmd = "svn"
retries = 3

[profiles.git]
enabled = true
[profiles.git.priority]
score = 4
exists = [".git"]
[profiles.git.vars]
cmd = "git"
home = { env = "ONSUB_TEST_HOME" }

[profiles.all]
priority = { score = 1, always = true }
construct = { function = "makedirs" }
`

func newLoader(t *testing.T, files fstest.MapFS, goos string) *config.Loader {
	t.Helper()
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Debug(gomock.Any()).AnyTimes()
	return config.NewLoaderWithFS(mockLogger, config.NewMapFSAdapter("/", files), goos)
}

func profileNames(cfg *domain.Config) []string {
	var names []string
	for _, p := range cfg.Profiles.All() {
		names = append(names, p.Name)
	}
	return names
}

func TestLoader_Load_YAML(t *testing.T) {
	t.Setenv("ONSUB_TEST_TOKEN", "")
	loader := newLoader(t, fstest.MapFS{
		"home/.onsub.yaml": {Data: []byte(yamlConfig)},
	}, "linux")

	cfg, err := loader.Load("/home/.onsub.yaml")
	require.NoError(t, err)

	assert.Equal(t, "/home/.onsub.yaml", cfg.Path)
	assert.Equal(t, []string{"git", "hg", "all"}, profileNames(cfg))
	assert.Equal(t, map[string]string{"path": "33"}, cfg.Colors)
	assert.EqualValues(t, 4, cfg.Settings["workers"])

	git, ok := cfg.Profiles.Get("git")
	require.True(t, ok)
	assert.True(t, git.Enabled)
	require.NotNil(t, git.Construct)
	assert.NotNil(t, git.Construct.Builder)
	assert.Equal(t, map[string]string{"check": "gitcheck"}, git.Functions)

	vars := git.Snapshot(domain.NewVisitContext("/src", "./repo", "git"))
	assert.Equal(t, "git", vars["cmd"])
	assert.Equal(t, ";", vars["sep"])
	assert.Equal(t, "none", vars["token"])
	assert.Equal(t, "{cmd} pull", vars["get"])
	assert.Equal(t, "./repo", vars["path"])

	hg, ok := cfg.Profiles.Get("hg")
	require.True(t, ok)
	assert.False(t, hg.Enabled)
	assert.Nil(t, hg.Construct)

	all, ok := cfg.Profiles.Get("all")
	require.True(t, ok)
	require.NotNil(t, all.Construct)
	assert.Equal(t, "makedirs", all.Construct.Function)
}

func TestLoader_Load_PlatformOverlay(t *testing.T) {
	loader := newLoader(t, fstest.MapFS{
		"home/.onsub.yaml": {Data: []byte(yamlConfig)},
	}, "windows")

	cfg, err := loader.Load("/home/.onsub.yaml")
	require.NoError(t, err)

	git, _ := cfg.Profiles.Get("git")
	vars := git.Snapshot(domain.NewVisitContext("/src", ".", ""))
	assert.Equal(t, "&", vars["sep"])
}

func TestLoader_Load_EnvVariable(t *testing.T) {
	t.Setenv("ONSUB_TEST_TOKEN", "secret")
	loader := newLoader(t, fstest.MapFS{
		"home/.onsub.yml": {Data: []byte(yamlConfig)},
	}, "linux")

	cfg, err := loader.Load("/home/.onsub.yml")
	require.NoError(t, err)

	git, _ := cfg.Profiles.Get("git")
	assert.Equal(t, "secret", git.Snapshot(domain.VisitContext{})["token"])
}

func TestLoader_Load_TOML(t *testing.T) {
	t.Setenv("ONSUB_TEST_HOME", "/home/me")
	loader := newLoader(t, fstest.MapFS{
		"home/onsub.toml": {Data: []byte(tomlConfig)},
	}, "linux")

	cfg, err := loader.Load("/home/onsub.toml")
	require.NoError(t, err)

	assert.Equal(t, []string{"svn", "git", "all"}, profileNames(cfg))
	assert.EqualValues(t, 3, cfg.Settings["verbose"])

	svn, _ := cfg.Profiles.Get("svn")
	vars := svn.Snapshot(domain.VisitContext{})
	assert.Equal(t, "svn", vars["cmd"])
	assert.Equal(t, "3", vars["retries"])

	git, _ := cfg.Profiles.Get("git")
	assert.Equal(t, "/home/me", git.Snapshot(domain.VisitContext{})["home"])

	all, _ := cfg.Profiles.Get("all")
	assert.False(t, all.Enabled)
	require.NotNil(t, all.Construct)
	assert.Equal(t, "makedirs", all.Construct.Function)
}

func TestLoader_Load_Errors(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		content string
		wantErr error
	}{
		{
			name:    "missing file",
			path:    "/home/absent.yaml",
			wantErr: domain.ErrConfigNotFound,
		},
		{
			name:    "unsupported extension",
			path:    "/home/onsub.json",
			content: "{}",
			wantErr: domain.ErrUnsupportedFormat,
		},
		{
			name:    "invalid yaml",
			path:    "/home/bad.yaml",
			content: "profiles: [unterminated",
			wantErr: domain.ErrConfigParseFailed,
		},
		{
			name:    "invalid toml",
			path:    "/home/bad.toml",
			content: "[profiles\n",
			wantErr: domain.ErrConfigParseFailed,
		},
		{
			name:    "construct with command and function",
			path:    "/home/both.yaml",
			content: "profiles:\n  x:\n    construct: { command: mkdir, function: makedirs }\n",
			wantErr: domain.ErrConfigInvalid,
		},
		{
			name:    "empty construct",
			path:    "/home/empty.yaml",
			content: "profiles:\n  x:\n    construct: {}\n",
			wantErr: domain.ErrConfigInvalid,
		},
		{
			name:    "negative score",
			path:    "/home/neg.yaml",
			content: "profiles:\n  x:\n    priority: { score: -1, always: true }\n",
			wantErr: domain.ErrConfigInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := fstest.MapFS{}
			if tt.content != "" {
				files[tt.path[1:]] = &fstest.MapFile{Data: []byte(tt.content)}
			}
			loader := newLoader(t, files, "linux")

			_, err := loader.Load(tt.path)
			require.Error(t, err)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, domain.ExitMissingFile, domain.ExitCode(err))
		})
	}
}

func TestLoader_Load_EmptyFile(t *testing.T) {
	loader := newLoader(t, fstest.MapFS{
		"home/.onsub.yaml": {Data: nil},
	}, "linux")

	cfg, err := loader.Load("/home/.onsub.yaml")
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Profiles.Len())
}

func TestMarkerPriority(t *testing.T) {
	files := fstest.MapFS{
		"home/.onsub.yaml":         {Data: []byte(yamlConfig)},
		"src/gitrepo/.git":         {Mode: fs.ModeDir},
		"src/gitfile/.git":         {Data: []byte("gitdir: ../x")},
		"src/hgrepo/.hg":           {Mode: fs.ModeDir},
		"src/hgfile/.hg":           {Data: []byte("not a dir")},
		"src/plain/README.md":      {Data: []byte("readme")},
		"src/gitrepo/sub/file.txt": {Data: []byte("x")},
	}
	loader := newLoader(t, files, "linux")
	cfg, err := loader.Load("/home/.onsub.yaml")
	require.NoError(t, err)

	git, _ := cfg.Profiles.Get("git")
	hg, _ := cfg.Profiles.Get("hg")
	all, _ := cfg.Profiles.Get("all")

	tests := []struct {
		dir              string
		git, hg, allPrio int
	}{
		{dir: "gitrepo", git: 4, hg: 0, allPrio: 1},
		{dir: "gitfile", git: 4, hg: 0, allPrio: 1},
		{dir: "hgrepo", git: 0, hg: 3, allPrio: 1},
		{dir: "hgfile", git: 0, hg: 0, allPrio: 1},
		{dir: "plain", git: 0, hg: 0, allPrio: 1},
		{dir: "gitrepo/sub", git: 0, hg: 0, allPrio: 1},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.dir, func(t *testing.T) {
			vc := domain.NewVisitContext("/src", "./"+tt.dir, "")
			assert.Equal(t, tt.git, git.Priority.Priority(ctx, vc))
			assert.Equal(t, tt.hg, hg.Priority.Priority(ctx, vc))
			assert.Equal(t, tt.allPrio, all.Priority.Priority(ctx, vc))
		})
	}
}

func TestTemplateBuilder_BuildCommand(t *testing.T) {
	files := fstest.MapFS{
		"src/cloned/.git": {Mode: fs.ModeDir},
	}
	fsys := config.NewMapFSAdapter("/", files)
	exp := template.NewExpander()
	vars := map[string]string{"path": "./repo"}

	tests := []struct {
		name    string
		builder *config.TemplateBuilder
		vc      domain.VisitContext
		args    []string
		want    string
		wantOK  bool
	}{
		{
			name:    "binds positional arguments",
			builder: config.NewTemplateBuilder("git clone {1} {path}", 1, nil, fsys),
			vc:      domain.NewVisitContext("/src", "./repo", "git"),
			args:    []string{"https://example.com/repo.git"},
			want:    "git clone https://example.com/repo.git ./repo",
			wantOK:  true,
		},
		{
			name:    "binds all arguments",
			builder: config.NewTemplateBuilder("hg clone {args} {path}", 0, nil, fsys),
			vc:      domain.NewVisitContext("/src", "./repo", "hg"),
			args:    []string{"-r", "default", "ssh://host/repo"},
			want:    "hg clone -r default ssh://host/repo ./repo",
			wantOK:  true,
		},
		{
			name:    "too few arguments",
			builder: config.NewTemplateBuilder("git clone {1} {path}", 1, nil, fsys),
			vc:      domain.NewVisitContext("/src", "./repo", "git"),
		},
		{
			name:    "unless exists",
			builder: config.NewTemplateBuilder("git clone {1} {2}", 2, []string{"{2}/.git"}, fsys),
			vc:      domain.NewVisitContext("/src", "./repo", "git"),
			args:    []string{"url", "cloned"},
		},
		{
			name:    "unless exists absent",
			builder: config.NewTemplateBuilder("git clone {1} {2}", 2, []string{"{2}/.git"}, fsys),
			vc:      domain.NewVisitContext("/src", "./repo", "git"),
			args:    []string{"url", "fresh"},
			want:    "git clone url fresh",
			wantOK:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := tt.builder.BuildCommand(context.Background(), tt.vc, exp, vars, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTemplateBuilder_UnknownVariable(t *testing.T) {
	builder := config.NewTemplateBuilder("clone {nope}", 0, nil, config.NewOSFS())

	_, _, err := builder.BuildCommand(context.Background(), domain.VisitContext{}, template.NewExpander(), nil, nil)
	require.ErrorIs(t, err, domain.ErrUnknownVariable)
}
