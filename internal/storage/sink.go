// SPDX-License-Identifier: MIT
//
// Package storage persists finished recordings.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "audiolink/internal/log"

	"github.com/spf13/afero"
)

var errEmptyName = errors.New("storage: empty file name")

// FileSink accepts a finished file image and a target name.
type FileSink interface {
	Save(name string, data []byte) (path string, err error)
}

// DirSink writes files into one directory on an afero filesystem.
type DirSink struct {
	fs  afero.Fs
	dir string
}

// NewDirSink creates dir if needed.
func NewDirSink(fs afero.Fs, dir string) (*DirSink, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if dir == "" {
		dir = "."
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating %s: %w", dir, err)
	}
	return &DirSink{fs: fs, dir: dir}, nil
}

// Dir returns the target directory.
func (s *DirSink) Dir() string { return s.dir }

// Save writes data to dir/name through a temporary file so a partially
// written recording never carries the final name.
func (s *DirSink) Save(name string, data []byte) (string, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", errEmptyName
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".part"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		_ = s.fs.Remove(tmp)
		return "", fmt.Errorf("storage: writing %s: %w", path, err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		_ = s.fs.Remove(tmp)
		return "", fmt.Errorf("storage: renaming %s: %w", path, err)
	}

	applog.Infof("Storage: Saved %s (%d bytes)", path, len(data))
	return path, nil
}

// List returns the names of saved recordings with the given extension,
// oldest first.
func (s *DirSink) List(ext string) ([]string, error) {
	infos, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, fi := range infos {
		if fi.IsDir() || !strings.EqualFold(filepath.Ext(fi.Name()), ext) {
			continue
		}
		names = append(names, fi.Name())
	}
	return names, nil
}

// RecordingName returns the file name for a recording finished at t, for
// example "Record from 3.04 PM, 19.10.26.wav".
func RecordingName(t time.Time) string {
	return "Record from " + t.Format("3.04 PM, 02.01.06") + ".wav"
}
