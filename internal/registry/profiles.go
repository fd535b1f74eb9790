package registry

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/feral-file/ff-appimages/internal/adapter"
	"github.com/feral-file/ff-appimages/internal/domain"
)

// profileFileSuffix is the suffix of platform profile lists, e.g. "Windows10Images.json"
const profileFileSuffix = "Images.json"

// ProfileRegistry defines the interface for platform profile lookups
//
//go:generate mockgen -source=profiles.go -destination=../mocks/profile_registry.go -package=mocks -mock_names=ProfileRegistry=MockProfileRegistry
type ProfileRegistry interface {
	// Profiles returns the profiles of a platform (case-insensitive)
	Profiles(platform string) ([]domain.Profile, error)

	// Platforms returns the known platform names, sorted
	Platforms() []string
}

// profileRegistry is the internal implementation of ProfileRegistry interface
type profileRegistry struct {
	// Fast lookup map: lowercased platform -> profiles
	profiles map[string][]domain.Profile
	names    []string
}

// LoadProfiles loads every <platform>Images.json file found in dir
func LoadProfiles(fs adapter.FileSystem, json adapter.JSON, dir string) (ProfileRegistry, error) {
	paths, err := fs.Glob(filepath.Join(dir, "*"+profileFileSuffix))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no profile files found in %s", dir)
	}

	r := &profileRegistry{
		profiles: make(map[string][]domain.Profile),
	}

	for _, path := range paths {
		platform := strings.TrimSuffix(filepath.Base(path), profileFileSuffix)
		if platform == "" {
			continue
		}

		data, err := fs.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read profile file %s: %w", path, err)
		}

		var profiles []domain.Profile
		if err := json.Unmarshal(data, &profiles); err != nil {
			return nil, fmt.Errorf("failed to parse profile file %s: %w", path, err)
		}

		for i, p := range profiles {
			if p.Width <= 0 || p.Height <= 0 || p.Name == "" {
				return nil, fmt.Errorf("invalid profile #%d in %s: name %q size %s", i, path, p.Name, p.Size())
			}
		}

		key := strings.ToLower(platform)
		if _, ok := r.profiles[key]; ok {
			return nil, fmt.Errorf("duplicate platform %s in %s", platform, dir)
		}
		r.profiles[key] = profiles
		r.names = append(r.names, platform)
	}

	sort.Strings(r.names)
	return r, nil
}

// Profiles returns the profiles of a platform (case-insensitive)
func (r *profileRegistry) Profiles(platform string) ([]domain.Profile, error) {
	profiles, ok := r.profiles[strings.ToLower(strings.TrimSpace(platform))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownPlatform, platform)
	}

	out := make([]domain.Profile, len(profiles))
	copy(out, profiles)
	return out, nil
}

// Platforms returns the known platform names, sorted
func (r *profileRegistry) Platforms() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}
