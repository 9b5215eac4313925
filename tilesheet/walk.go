package tilesheet

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"badc0de.net/pkg/go-tileset/spriteindex"
	"badc0de.net/pkg/go-tileset/tileentry"
)

// Walk registers every sprite of the sheet's directory tree and reads its
// tile entry files. Directories are visited sorted by path and files sorted
// by name within each directory, so indices only depend on the tree's
// contents. Walk returns early with the tracker's abort error in fail-fast
// mode.
func (s *Sheet) Walk() error {
	s.FirstIndex = s.cfg.Index.Last() + 1
	s.MaxIndex = s.cfg.Index.Last()

	if _, err := os.Stat(s.Dir); err != nil {
		s.cfg.Diag.Warningf("tilesheet", "%s: no source directory: %v", s.Name, err)
		return nil
	}

	dirs, err := s.sortedDirs()
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		names, err := fileNames(dir)
		if err != nil {
			s.cfg.Diag.Errorf("tilesheet", "listing %s: %v", dir, err)
			if err := s.cfg.Diag.Abort(); err != nil {
				return err
			}
			continue
		}
		if s.cfg.Progress != nil {
			s.cfg.Progress("  %s (%d files)", dir, len(names))
		}
		for _, name := range names {
			path := filepath.Join(dir, name)
			if stem, ok := singleSuffix(name, ".png"); ok {
				s.addSprite(stem, path)
			} else if _, ok := singleSuffix(name, ".json"); ok {
				s.addEntryFile(path)
			}
			if err := s.cfg.Diag.Abort(); err != nil {
				return err
			}
		}
	}
	return nil
}

// singleSuffix reports whether name ends in ext and has no other extension,
// and returns the name without ext. Leading dots do not count.
func singleSuffix(name, ext string) (string, bool) {
	trimmed := strings.TrimLeft(name, ".")
	if !strings.HasSuffix(trimmed, ext) || len(trimmed) == len(ext) {
		return "", false
	}
	if strings.Count(trimmed, ".") != 1 {
		return "", false
	}
	return strings.TrimSuffix(name, ext), true
}

// addSprite registers name for the sheet. A name registered before is an
// error in a main sheet; filler sheets skip it, warning only with
// ObsoleteFillers.
func (s *Sheet) addSprite(name, path string) {
	d := s.cfg.Diag
	next := s.cfg.Index.Last() + 1
	i, err := s.cfg.Index.Register(name, s.Namespace())

	var dup *spriteindex.DuplicateSpriteError
	switch {
	case errors.As(err, &dup) && s.Category == Filler:
		if s.cfg.ObsoleteFillers {
			d.Warningf("tilesheet", "root name %s is already present in a non-filler sheet: %s", name, path)
		}
		return
	case err != nil:
		d.Errorf("tilesheet", "duplicate root name %s: %s: %v", name, path, err)
		return
	case i != next:
		if s.Category != Filler {
			d.Errorf("tilesheet", "duplicate root name %s: %s", name, path)
		} else if s.cfg.ObsoleteFillers {
			d.Warningf("tilesheet", "root name %s is already present in another filler sheet: %s", name, path)
		}
		return
	}
	s.sprites = append(s.sprites, sprite{name: name, path: path, index: i})
}

func (s *Sheet) addEntryFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		s.cfg.Diag.Errorf("tilesheet", "error loading %s: %v", path, err)
		return
	}
	defer f.Close()

	entries, entryErrs, err := tileentry.Decode(f)
	if err != nil {
		s.cfg.Diag.Errorf("tilesheet", "error loading %s: %v", path, err)
		return
	}
	for _, e := range entryErrs {
		s.cfg.Diag.Errorf("tilesheet", "skipping malformed entry in %s: %v", path, e)
	}
	s.files = append(s.files, EntryFile{Path: path, Entries: entries})
}

// sortedDirs lists the sheet directory and every subdirectory not excluded,
// following symlinks, sorted by path.
func (s *Sheet) sortedDirs() ([]string, error) {
	ignoreFile := s.cfg.IgnoreFile
	if ignoreFile == "" {
		ignoreFile = DefaultIgnoreFile
	}
	excluded := map[string]bool{}
	for _, e := range s.Exclude {
		excluded[filepath.Join(s.Dir, e)] = true
	}

	var (
		out     []string
		visited = map[string]bool{}
		visit   func(dir string) error
	)
	visit = func(dir string) error {
		resolved, err := filepath.EvalSymlinks(dir)
		if err != nil {
			return errors.Wrapf(err, "resolving %s", dir)
		}
		if visited[resolved] {
			s.cfg.Diag.Warningf("tilesheet", "%s: directory visited twice, skipping", dir)
			return nil
		}
		visited[resolved] = true
		out = append(out, dir)

		entries, err := os.ReadDir(dir)
		if err != nil {
			s.cfg.Diag.Errorf("tilesheet", "listing %s: %v", dir, err)
			return nil
		}
		for _, e := range entries {
			sub := filepath.Join(dir, e.Name())
			st, err := os.Stat(sub)
			if err != nil || !st.IsDir() {
				continue
			}
			if excluded[sub] {
				continue
			}
			if _, err := os.Stat(filepath.Join(sub, ignoreFile)); err == nil {
				continue
			}
			if err := visit(sub); err != nil {
				return err
			}
		}
		return nil
	}
	if err := visit(s.Dir); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// fileNames returns the sorted names of the non-directory entries of dir.
func fileNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		st, err := os.Stat(filepath.Join(dir, e.Name()))
		if err != nil || st.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
