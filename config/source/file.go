package source

import (
	"context"
	"os"
	"path/filepath"

	"github.com/oleksandrmelnychenko/ecliptix-desktop-sub008/config"
	"gopkg.in/yaml.v3"
)

// FileSource loads configuration from YAML files on the filesystem.
//
// FileSource supports a base configuration file and an optional profile-specific
// overlay file. Both .yaml and .yml extensions are supported.
//
// File loading order:
//  1. Load application.yaml (or application.yml) from BasePath
//  2. If Profile is set, load application.{profile}.yaml as an overlay
//
// Profile values are deep-merged over the base values, so a profile file can
// override a single nested key without restating its whole section.
//
// Example directory structure:
//
//	configs/
//	  application.yaml      # Base configuration
//	  application.dev.yaml  # Development profile
//	  application.prod.yaml # Production profile
//
// Usage:
//
//	source := &FileSource{
//	    BasePath: "configs",
//	    Profile:  "prod",
//	}
type FileSource struct {
	// BasePath is the directory containing the configuration files.
	// The base file (application.yaml) must exist in this directory.
	BasePath string

	// Profile specifies an optional configuration profile.
	// If set, application.{Profile}.yaml will be loaded as an overlay.
	// If the profile file doesn't exist, it's silently ignored.
	Profile string
}

// Name returns the identifier for this source.
func (f *FileSource) Name() string { return "file" }

// Load reads YAML configuration files from the filesystem.
//
// Loads the base file (application.yaml or application.yml) and deep-merges a
// profile-specific overlay on top if Profile is set.
//
// The context is currently not used but is included for future support of
// cancellation and timeouts.
//
// Returns os.ErrNotExist if the base file is not found.
// Returns a YAML parsing error if the base or profile file is malformed.
func (f *FileSource) Load(ctx context.Context) (map[string]any, error) {
	// Try both .yaml and .yml extensions for the base file
	baseFile := findYAMLFile(f.BasePath, "application")
	if baseFile == "" {
		return nil, os.ErrNotExist
	}

	data := map[string]any{}
	if err := readYAML(baseFile, data); err != nil {
		return nil, err
	}

	// Overlay profile-specific config if a profile is set
	if f.Profile != "" {
		profileFile := findYAMLFile(f.BasePath, "application."+f.Profile)
		if profileFile != "" {
			overlay := map[string]any{}
			if err := readYAML(profileFile, overlay); err != nil {
				return nil, err
			}
			deepMerge(data, overlay)
		}
	}

	return data, nil
}

// findYAMLFile looks for a file with either .yaml or .yml extension
func findYAMLFile(dir, basename string) string {
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(dir, basename+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Watch is not implemented for FileSource.
// Returns nil immediately, indicating that file watching is not supported.
//
// To enable automatic reloading when files change, consider using a file
// watcher library like fsnotify and implementing Watch accordingly.
func (f *FileSource) Watch(ctx context.Context, ch chan<- config.Event) error { return nil }

func readYAML(path string, out map[string]any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, &out)
}

func deepMerge(dst, src map[string]any) {
	for k, v := range src {
		if sv, ok := v.(map[string]any); ok {
			if dv, ok := dst[k].(map[string]any); ok {
				deepMerge(dv, sv)
				continue
			}
		}
		dst[k] = v
	}
}
