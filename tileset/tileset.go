// Package tileset composes a tileset source directory into sprite sheets and
// the tile configuration document the game loads.
//
// A run reads tile_info.json and tileset.txt from the source directory,
// builds every declared sheet (main sheets first, then filler sheets), and
// resolves the tile entries of all sheets against one shared sprite index.
// Diagnostics go to a diag.Tracker; only structural problems make New or
// Compose return an error before the document is written.
package tileset

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"

	"badc0de.net/pkg/go-tileset/codec"
	"badc0de.net/pkg/go-tileset/diag"
	"badc0de.net/pkg/go-tileset/docfmt"
	"badc0de.net/pkg/go-tileset/paths"
	"badc0de.net/pkg/go-tileset/spriteindex"
	"badc0de.net/pkg/go-tileset/tileconfig"
	"badc0de.net/pkg/go-tileset/tileentry"
	"badc0de.net/pkg/go-tileset/tilesheet"
)

const (
	// InfoFile declares the global tile metadata and the sheets.
	InfoFile = "tile_info.json"
	// PropertiesFile names the configuration document under its JSON key.
	PropertiesFile = "tileset.txt"
)

// StructuralError is returned when the inputs of a run are missing or
// malformed. Nothing is written when it occurs.
type StructuralError struct {
	Err error
}

func (e *StructuralError) Error() string {
	return e.Err.Error()
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

func structural(err error, format string, args ...interface{}) error {
	return &StructuralError{Err: errors.Wrapf(err, format, args...)}
}

// Feedback selects how much progress is printed.
type Feedback int

const (
	Silent Feedback = iota
	Concise
	Verbose
)

func (f Feedback) String() string {
	switch f {
	case Concise:
		return "CONCISE"
	case Verbose:
		return "VERBOSE"
	default:
		return "SILENT"
	}
}

func ParseFeedback(s string) (Feedback, error) {
	switch strings.ToUpper(s) {
	case "SILENT":
		return Silent, nil
	case "CONCISE":
		return Concise, nil
	case "VERBOSE":
		return Verbose, nil
	}
	return Silent, errors.Errorf("unknown feedback mode %q", s)
}

// Options control a run. The zero value composes with the PNG codec and the
// built-in formatter, reporting warnings and errors through glog.
type Options struct {
	// UseAll generates an entry for every sprite no entry mentions.
	UseAll bool
	// ObsoleteFillers warns about filler sprites and entries shadowed by
	// main ones.
	ObsoleteFillers bool
	Palette         bool
	PaletteCopies   bool
	FormatJSON      bool
	OnlyJSON        bool

	IgnoreFile string
	Workers    int

	Feedback Feedback
	// Progress receives progress lines; defaults to os.Stdout.
	Progress io.Writer

	Codec     codec.ImageCodec
	Formatter docfmt.DocumentFormatter
	Diag      *diag.Tracker
}

// Tileset is one composition run.
type Tileset struct {
	SourceDir string
	OutputDir string

	Info tileconfig.Info
	// ConfigFile is the document name read from tileset.txt.
	ConfigFile string

	opts      Options
	diag      *diag.Tracker
	index     *spriteindex.Index
	processed *tileentry.IDSet

	// sheets holds the main sheets followed by the filler sheets.
	sheets   []*tilesheet.Sheet
	fallback *tilesheet.Sheet
}

// New reads the run's inputs from sourceDir. An empty outputDir selects
// sourceDir. Every sheet declaration is checked before anything is written.
func New(sourceDir, outputDir string, opts Options) (*Tileset, error) {
	if err := paths.ReadableDir(sourceDir); err != nil {
		return nil, &StructuralError{Err: err}
	}
	if outputDir == "" {
		outputDir = sourceDir
	}
	if opts.Codec == nil {
		opts.Codec = &codec.PNG{}
	}
	if opts.Diag == nil {
		opts.Diag = diag.New(diag.Warning, false)
	}
	if opts.Formatter == nil {
		opts.Formatter = docfmt.Builtin{}
	}
	if opts.Progress == nil {
		opts.Progress = os.Stdout
	}

	ts := &Tileset{
		SourceDir: sourceDir,
		OutputDir: outputDir,
		opts:      opts,
		diag:      opts.Diag,
		index:     spriteindex.New(false),
		processed: tileentry.NewIDSet(),
	}

	f, path, err := paths.Open(InfoFile, sourceDir)
	if err != nil {
		return nil, structural(err, "cannot open %s", InfoFile)
	}
	info, specs, err := tileconfig.ReadInfo(f)
	f.Close()
	if err != nil {
		return nil, structural(err, "reading %s", path)
	}
	ts.Info = info

	if ts.ConfigFile, err = readConfigFile(sourceDir, outputDir); err != nil {
		return nil, &StructuralError{Err: err}
	}

	if err := ts.declareSheets(specs); err != nil {
		return nil, err
	}
	return ts, nil
}

// readConfigFile returns the JSON value of the first non-empty tileset.txt
// found in the source directory, then in the output directory.
func readConfigFile(dirs ...string) (string, error) {
	var props *ini.Section
	for _, dir := range dirs {
		path := paths.Find(PropertiesFile, dir)
		if path == "" {
			continue
		}
		f, err := ini.LoadSources(ini.LoadOptions{
			KeyValueDelimiters:  ":",
			IgnoreInlineComment: true,
		}, path)
		if err != nil {
			return "", errors.Wrapf(err, "reading %s", path)
		}
		if s := f.Section(ini.DefaultSection); len(s.Keys()) > 0 {
			props = s
			break
		}
	}
	if props == nil {
		return "", errors.Errorf("no valid %s found", PropertiesFile)
	}
	name := strings.TrimSpace(props.Key("JSON").String())
	if name == "" {
		return "", errors.Errorf("no JSON key found in %s", PropertiesFile)
	}
	return name, nil
}

func (ts *Tileset) declareSheets(specs []tileconfig.SheetSpec) error {
	cfg := &tilesheet.Config{
		SourceDir:       ts.SourceDir,
		OutputDir:       ts.OutputDir,
		Info:            ts.Info,
		Index:           ts.index,
		Diag:            ts.diag,
		Codec:           ts.opts.Codec,
		ObsoleteFillers: ts.opts.ObsoleteFillers,
		OnlyJSON:        ts.opts.OnlyJSON,
		Palette:         ts.opts.Palette,
		PaletteCopies:   ts.opts.PaletteCopies,
		IgnoreFile:      ts.opts.IgnoreFile,
		Workers:         ts.opts.Workers,
	}
	if ts.opts.Feedback == Verbose {
		cfg.Progress = func(format string, args ...interface{}) {
			fmt.Fprintf(ts.opts.Progress, format+"\n", args...)
		}
	}

	var fillers []*tilesheet.Sheet
	for _, spec := range specs {
		s, err := tilesheet.New(spec, cfg)
		if err != nil {
			return structural(err, "sheet declaration in %s", InfoFile)
		}
		switch s.Category {
		case tilesheet.Fallback:
			if ts.fallback != nil {
				ts.diag.Warningf("tileset", "%s: only one fallback sheet is used, keeping %s", s.Name, ts.fallback.Name)
				continue
			}
			ts.fallback = s
		case tilesheet.Filler:
			fillers = append(fillers, s)
		default:
			ts.sheets = append(ts.sheets, s)
		}
	}
	ts.sheets = append(ts.sheets, fillers...)
	if len(ts.sheets) > 0 {
		ts.sheets[0].AddNull()
	}
	return nil
}

func (ts *Tileset) progressf(format string, args ...interface{}) {
	if ts.opts.Feedback == Silent {
		return
	}
	fmt.Fprintf(ts.opts.Progress, format, args...)
}
