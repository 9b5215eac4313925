// compose merges a tileset source directory, made of individual sprite
// images and tile entry files, into sprite sheets and a tile configuration
// document.
//
// Usage:
//
//	compose [flags] <source_dir> [output_dir]
//
// Output goes to the source directory unless an output directory is passed;
// it is created if missing.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"badc0de.net/pkg/flagutil/v1"
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"badc0de.net/pkg/go-tileset/codec"
	"badc0de.net/pkg/go-tileset/diag"
	"badc0de.net/pkg/go-tileset/docfmt"
	"badc0de.net/pkg/go-tileset/imageprint"
	"badc0de.net/pkg/go-tileset/tileset"
	"badc0de.net/pkg/go-tileset/tilesheet"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var (
	useAll          = flag.Bool("use_all", false, "add unused images with id being their basename")
	obsoleteFillers = flag.Bool("obsolete_fillers", false, "warn about obsoleted fillers")
	paletteCopies   = flag.Bool("palette_copies", false, "produce copies of tilesheets quantized to 8bpp colormaps")
	palette         = flag.Bool("palette", false, "quantize all tilesheets to 8bpp colormaps")
	quantizer       = flag.String("quantizer", "gogif", "palette quantizer: gogif or mediancut")
	formatJSON      = flag.Bool("format_json", false, "pretty-print the configuration document, through -json_formatter when present")
	onlyJSON        = flag.Bool("only_json", false, "only write the configuration document")
	failFast        = flag.Bool("fail_fast", false, "stop immediately after an error has occurred")
	logLevel        = flag.String("loglevel", "WARNING", "lowest diagnostic level printed: INFO, WARNING or ERROR")
	feedback        = flag.String("feedback", "SILENT", "progress output: SILENT, CONCISE or VERBOSE")
	workers         = flag.Int("workers", 4, "sprite images decoded concurrently per sheet")
	jsonFormatter   = flag.String("json_formatter", docfmt.DefaultFormatter, "formatter binary used with -format_json")
	ignoreFile      = flag.String("ignore_file", tilesheet.DefaultIgnoreFile, "directories holding a file of this name are skipped")
	preview         = flag.String("preview", "", "print composed sheets to the terminal: auto, raster, iterm, 24bit, 256 or none")
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <source_dir> [output_dir]\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flagutil.Parse()
	flag.Set("logtostderr", "true")
	defer glog.Flush()

	os.Exit(run(flag.Args(), os.Stdout))
}

// run composes the tileset named by args and returns the exit status.
func run(args []string, stdout io.Writer) int {
	if len(args) < 1 || len(args) > 2 {
		usage()
		return exitUsage
	}
	source, output := args[0], ""
	if len(args) == 2 {
		output = args[1]
	}

	level, err := diag.ParseLevel(*logLevel)
	if err != nil {
		glog.Errorln(err)
		return exitUsage
	}
	fb, err := tileset.ParseFeedback(*feedback)
	if err != nil {
		glog.Errorln(err)
		return exitUsage
	}
	q, ok := codec.QuantizerByName(*quantizer)
	if !ok {
		glog.Errorf("unknown quantizer %q", *quantizer)
		return exitUsage
	}
	var printer *imageprint.Printer
	if *preview != "" {
		mode, err := imageprint.ParseMode(*preview)
		if err != nil {
			glog.Errorln(err)
			return exitUsage
		}
		printer = &imageprint.Printer{W: stdout, Mode: mode, Blanks: true, Downsize: true}
	}

	tracker := diag.New(level, *failFast)
	ts, err := tileset.New(source, output, tileset.Options{
		UseAll:          *useAll,
		ObsoleteFillers: *obsoleteFillers,
		Palette:         *palette,
		PaletteCopies:   *paletteCopies,
		FormatJSON:      *formatJSON,
		OnlyJSON:        *onlyJSON,
		IgnoreFile:      *ignoreFile,
		Workers:         *workers,
		Feedback:        fb,
		Progress:        stdout,
		Codec:           &codec.PNG{Quantizer: q},
		Formatter:       &docfmt.External{Binary: *jsonFormatter, Diag: tracker},
		Diag:            tracker,
	})
	if err != nil {
		glog.Errorf("Error: %v", err)
		return exitError
	}

	res, err := ts.Compose()
	if err != nil {
		if errors.Cause(err) == diag.ErrFailFast {
			glog.Errorf("aborted: %v", err)
		} else {
			glog.Errorf("Error: %v", err)
		}
		return exitError
	}

	if printer != nil {
		for _, s := range res.Sheets {
			if img := s.Image(); img != nil {
				if err := printer.Print(img, s.Name); err != nil {
					glog.Warningf("preview of %s: %v", s.Name, err)
				}
			}
		}
	}

	if tracker.Failed() {
		return exitError
	}
	return exitOK
}
