// Package paths locates input files that may live in more than one place.
package paths

import (
	"io"
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Find returns the first of dir/fileName, for each passed dir in order, that
// can be opened for reading. Without dirs fileName itself is tried. If
// nothing is found, Find returns an empty string.
func Find(fileName string, dirs ...string) string {
	for _, path := range candidates(fileName, dirs) {
		if f, err := os.Open(path); err == nil {
			st, err := f.Stat()
			f.Close()
			if err != nil || st.IsDir() {
				continue
			}
			glog.V(1).Infof("paths.Find(%q)=%s", fileName, path)
			return path
		}
	}
	return ""
}

// Open locates the passed file in the same locations that Find would look,
// and opens it. If Find returns an empty string, an error is returned.
func Open(fileName string, dirs ...string) (*os.File, string, error) {
	path := Find(fileName, dirs...)
	if path == "" {
		return nil, "", errors.Wrapf(os.ErrNotExist, "%s not found in %q", fileName, dirs)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", errors.Wrapf(err, "opening %s", path)
	}
	return f, path, nil
}

// ReadableDir reports an error unless path is a directory that can be listed.
func ReadableDir(path string) error {
	st, err := os.Stat(path)
	if err != nil {
		return errors.Wrap(err, "cannot open directory")
	}
	if !st.IsDir() {
		return errors.Errorf("cannot open directory %s: not a directory", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "cannot open directory")
	}
	defer f.Close()
	if _, err := f.Readdirnames(1); err != nil && err != io.EOF {
		return errors.Wrapf(err, "cannot read directory %s", path)
	}
	return nil
}

func candidates(fileName string, dirs []string) []string {
	if len(dirs) == 0 || filepath.IsAbs(fileName) {
		return []string{fileName}
	}
	out := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		out = append(out, filepath.Join(dir, fileName))
	}
	return out
}
