// Package docfmt writes the tile configuration document to disk.
package docfmt

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"os/exec"

	"github.com/pkg/errors"

	"badc0de.net/pkg/go-tileset/diag"
	"badc0de.net/pkg/go-tileset/paths"
)

// DefaultFormatter is the formatter binary shipped with the game sources,
// relative to the working directory.
const DefaultFormatter = "tools/format/json_formatter.cgi"

// DocumentFormatter serializes doc to path. With pretty set the output is
// meant for humans.
type DocumentFormatter interface {
	Write(path string, doc interface{}, pretty bool) error
}

// Marshal encodes doc without escaping HTML characters, indented by two
// spaces when pretty is set.
func Marshal(doc interface{}, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(doc); err != nil {
		return nil, errors.Wrap(err, "encoding document")
	}
	return buf.Bytes(), nil
}

// Builtin formats with encoding/json alone.
type Builtin struct{}

func (Builtin) Write(path string, doc interface{}, pretty bool) error {
	b, err := Marshal(doc, pretty)
	if err != nil {
		return err
	}
	return errors.Wrapf(ioutil.WriteFile(path, b, 0644), "writing %s", path)
}

// External writes like Builtin and then, for pretty output, runs Binary on
// the written file to reformat it in place. A missing binary leaves the
// built-in indentation and is reported as a warning.
type External struct {
	Binary string
	Diag   *diag.Tracker
}

func (e *External) Write(path string, doc interface{}, pretty bool) error {
	if err := (Builtin{}).Write(path, doc, pretty); err != nil {
		return err
	}
	if !pretty {
		return nil
	}
	bin := e.Binary
	if bin == "" {
		bin = DefaultFormatter
	}
	found := paths.Find(bin)
	if found == "" {
		e.Diag.Warningf("docfmt", "%s not found, built-in formatter was used", bin)
		return nil
	}
	out, err := exec.Command(found, path).CombinedOutput()
	if err != nil {
		e.Diag.Warningf("docfmt", "%s %s: %v: %s", found, path, err, bytes.TrimSpace(out))
	}
	return nil
}
