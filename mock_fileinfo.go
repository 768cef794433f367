package main

import (
	"io/fs"
	"path"
	"time"
)

type mockFileInfo struct {
	name      string
	timestamp time.Time
	isDir     bool
	size      int64
}

func (f mockFileInfo) Name() string {
	if f.name == "" {
		return "mockfile"
	}
	return path.Base(f.name)
}

func (f mockFileInfo) Size() int64        { return f.size }
func (f mockFileInfo) Mode() fs.FileMode  { return fs.ModePerm }
func (f mockFileInfo) ModTime() time.Time { return f.timestamp }
func (f mockFileInfo) IsDir() bool        { return f.isDir }
func (f mockFileInfo) Sys() any           { return nil }
