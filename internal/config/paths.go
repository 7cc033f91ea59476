package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names a config file that takes precedence over the search
	EnvConfigPath = "TOPOLAB_CONFIG"
	// ConfigFileName is the file looked for in each search directory
	ConfigFileName = "topolab.yaml"

	configDirName = "topolab"
)

// SearchDirs returns the directories checked for topolab.yaml, most specific first
func SearchDirs() []string {
	dirs := []string{"."}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, configDirName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", configDirName))
	}
	return append(dirs, filepath.Join("/etc", configDirName))
}

// FindConfigPath returns the config file to load, or "" when there is none.
// A missing $TOPOLAB_CONFIG falls through to the directory search.
func FindConfigPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" && isFile(path) {
		return path
	}
	for _, dir := range SearchDirs() {
		if path := filepath.Join(dir, ConfigFileName); isFile(path) {
			return path
		}
	}
	return ""
}

// resolvePaths anchors relative file references at dir, the directory the
// config was loaded from, so a config works regardless of the caller's cwd.
func (c *Config) resolvePaths(dir string) {
	c.Rules.File = resolvePath(dir, c.Rules.File)
	for i, f := range c.Watch.Files {
		c.Watch.Files[i] = resolvePath(dir, f)
	}
}

func resolvePath(dir, path string) string {
	if path == "" || dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
