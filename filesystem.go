package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

type walkFunc func(string) (map[string]os.FileInfo, error)

// walkDirectory maps every regular file under dirPath to its FileInfo.
// Symlinks are followed: linked files report the target's FileInfo and
// linked directories are walked under the link's path. A dangling link keeps
// its own FileInfo so the upload reports it as skipped.
func walkDirectory(dirPath string) (map[string]os.FileInfo, error) {
	fileMap := make(map[string]os.FileInfo)
	walkErr := walkTree(dirPath, dirPath, fileMap, make(map[string]bool))

	return fileMap, walkErr
}

// walkTree walks realDir and records files under displayDir. visited holds
// resolved directories already entered through a link, which breaks cycles.
func walkTree(realDir, displayDir string, fileMap map[string]os.FileInfo, visited map[string]bool) error {
	if resolved, evalErr := filepath.EvalSymlinks(realDir); evalErr == nil {
		if visited[resolved] {
			return nil
		}
		visited[resolved] = true
		realDir = resolved
	}

	return filepath.Walk(realDir, func(path string, f os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(realDir, path)
		if relErr != nil {
			return relErr
		}
		shown := filepath.Join(displayDir, rel)

		if f.Mode()&os.ModeSymlink != 0 {
			target, statErr := os.Stat(path)
			if statErr != nil {
				fileMap[shown] = f
				return nil
			}
			if target.IsDir() {
				return walkTree(path, shown, fileMap, visited)
			}
			f = target
		}
		if !f.IsDir() {
			fileMap[shown] = f
		}
		return nil
	})
}

func dirExists(dirPath string) bool {
	info, err := os.Stat(dirPath)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// countFiles is best effort: unreadable subtrees are skipped, not reported.
func countFiles(dirPath string) int {
	fileCount := 0
	filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && !errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			fileCount++
		}
		return nil
	})

	return fileCount
}
