package registry_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-appimages/internal/adapter"
	"github.com/feral-file/ff-appimages/internal/domain"
	"github.com/feral-file/ff-appimages/internal/mocks"
	"github.com/feral-file/ff-appimages/internal/registry"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
}

func TestLoadProfiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ManifoldJSImages.json", `[
  {"width": 48, "height": 48, "name": "icon48", "desc": "small", "folder": "images/"},
  {"width": 620, "height": 300, "name": "splash", "format": "jpg"}
]`)
	writeFile(t, dir, "Windows10Images.json", `[
  {"width": 44, "height": 44, "name": "Square44x44Logo.scale-100", "folder": "windows10/"}
]`)
	writeFile(t, dir, "README.md", "not a profile list")

	r, err := registry.LoadProfiles(adapter.NewFileSystem(), adapter.NewJSON(), dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"ManifoldJS", "Windows10"}, r.Platforms())

	tests := []struct {
		name     string
		platform string
		expected []domain.Profile
	}{
		{
			name:     "exact case",
			platform: "ManifoldJS",
			expected: []domain.Profile{
				{Width: 48, Height: 48, Name: "icon48", Desc: "small", Folder: "images/"},
				{Width: 620, Height: 300, Name: "splash", Format: "jpg"},
			},
		},
		{
			name:     "case-insensitive",
			platform: " windows10 ",
			expected: []domain.Profile{
				{Width: 44, Height: 44, Name: "Square44x44Logo.scale-100", Folder: "windows10/"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profiles, err := r.Profiles(tt.platform)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, profiles)
		})
	}

	_, err = r.Profiles("android")
	assert.ErrorIs(t, err, domain.ErrUnknownPlatform)
}

func TestLoadProfiles_ReturnsCopies(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "iOSImages.json", `[{"width": 180, "height": 180, "name": "touch-icon"}]`)

	r, err := registry.LoadProfiles(adapter.NewFileSystem(), adapter.NewJSON(), dir)
	require.NoError(t, err)

	first, err := r.Profiles("ios")
	require.NoError(t, err)
	first[0].Width = 1

	second, err := r.Profiles("ios")
	require.NoError(t, err)
	assert.Equal(t, 180, second[0].Width)
}

func TestLoadProfiles_Errors(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		contains string
	}{
		{
			name:     "no profile files",
			files:    map[string]string{},
			contains: "no profile files found",
		},
		{
			name:     "invalid json",
			files:    map[string]string{"WebImages.json": `{not json`},
			contains: "failed to parse profile file",
		},
		{
			name:     "zero size profile",
			files:    map[string]string{"WebImages.json": `[{"width": 0, "height": 10, "name": "x"}]`},
			contains: "invalid profile #0",
		},
		{
			name:     "missing name",
			files:    map[string]string{"WebImages.json": `[{"width": 10, "height": 10}]`},
			contains: "invalid profile #0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				writeFile(t, dir, name, content)
			}

			r, err := registry.LoadProfiles(adapter.NewFileSystem(), adapter.NewJSON(), dir)
			require.Error(t, err)
			assert.Nil(t, r)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestLoadProfiles_FileSystemErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockFS := mocks.NewMockFileSystem(ctrl)
	mockJSON := mocks.NewMockJSON(ctrl)

	mockFS.EXPECT().
		Glob(filepath.Join("profiles", "*Images.json")).
		Return([]string{"profiles/WebImages.json"}, nil)
	mockFS.EXPECT().
		ReadFile("profiles/WebImages.json").
		Return(nil, errors.New("permission denied"))

	r, err := registry.LoadProfiles(mockFS, mockJSON, "profiles")
	require.Error(t, err)
	assert.Nil(t, r)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestLoadProfiles_ShippedLists(t *testing.T) {
	r, err := registry.LoadProfiles(adapter.NewFileSystem(), adapter.NewJSON(), filepath.Join("..", "..", "config", "profiles"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Android", "ManifoldJS", "iOS", "windows10"}, r.Platforms())

	for _, platform := range r.Platforms() {
		profiles, err := r.Profiles(platform)
		require.NoError(t, err)
		assert.NotEmpty(t, profiles, platform)

		// archive paths must be unique within a platform
		paths := make(map[string]bool)
		for _, p := range profiles {
			assert.False(t, paths[p.ArchivePath()], "duplicate %s in %s", p.ArchivePath(), platform)
			paths[p.ArchivePath()] = true
		}
	}
}
