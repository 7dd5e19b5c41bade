package engine

import (
	"os"
	"path/filepath"
	"strings"
)

// isSwiftFile reports whether path is a Swift source. Package manifests
// (Package.swift, Package@swift-5.9.swift) are excluded.
func isSwiftFile(path string) bool {
	if !strings.HasSuffix(strings.ToLower(path), ".swift") {
		return false
	}
	base := filepath.Base(path)
	return base != "Package.swift" && !strings.HasPrefix(base, "Package@swift-")
}

// mentionsAttribute is a cheap pre-filter: files that never spell the
// attribute cannot contain an annotated declaration.
func mentionsAttribute(src, attribute string) bool {
	return strings.Contains(src, "@"+attribute)
}

// isSwiftProject reports whether the repository looks like a Swift package or
// an Xcode project, checking up to two levels deep.
func isSwiftProject(repoPath string) bool {
	if _, err := os.Stat(filepath.Join(repoPath, "Package.swift")); err == nil {
		return true
	}

	entries, err := os.ReadDir(repoPath)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if matchesXcodeProject(entry.Name()) {
			return true
		}
		if entry.IsDir() {
			subEntries, err := os.ReadDir(filepath.Join(repoPath, entry.Name()))
			if err != nil {
				continue
			}
			for _, sub := range subEntries {
				if matchesXcodeProject(sub.Name()) {
					return true
				}
			}
		}
	}
	return false
}

func matchesXcodeProject(name string) bool {
	return strings.HasSuffix(name, ".xcodeproj") || strings.HasSuffix(name, ".xcworkspace")
}
