// Package scan enumerates Claude Code session files under the projects
// root. It is the upstream collaborator of the ingestion core: it only
// reports paths with modification metadata, never file contents.
package scan

import (
	"os"
	"path/filepath"
	"strings"
)

// FileInfo identifies one session file. Mtime and Size drive the
// catalog's staleness check.
type FileInfo struct {
	Path    string
	Project string // project directory name, as encoded by the CLI
	Mtime   int64
	Size    int64
}

// Sessions walks the Claude projects root and returns every session
// file found. Unreadable directories are skipped, not fatal.
func Sessions(claudeRoot string) ([]FileInfo, error) {
	var files []FileInfo
	err := filepath.Walk(claudeRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable dirs
		}
		if info.IsDir() {
			if filepath.Base(path) == "subagents" {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".jsonl" {
			return nil
		}
		if strings.Contains(filepath.Base(path), "sessions-index") {
			return nil
		}
		files = append(files, FileInfo{
			Path:    path,
			Project: ProjectName(path),
			Mtime:   info.ModTime().Unix(),
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return files, nil
}

// ProjectName derives a readable project name from a session file
// path. The CLI encodes the workspace path into the parent directory
// name with separators replaced by dashes; the trailing segment is the
// most recognizable part.
func ProjectName(path string) string {
	dir := filepath.Base(filepath.Dir(path))
	if dir == "." || dir == string(filepath.Separator) {
		return "Unknown"
	}
	trimmed := strings.TrimPrefix(dir, "-")
	if idx := strings.LastIndex(trimmed, "-"); idx >= 0 && idx < len(trimmed)-1 {
		return trimmed[idx+1:]
	}
	return trimmed
}
