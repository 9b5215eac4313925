// Package diag collects leveled diagnostics produced while composing a
// tileset and decides, from the highest level seen, whether the run failed.
//
// Every record is also written out through glog.
package diag

import (
	"fmt"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

type Level int

const (
	Info Level = iota
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Info:
		return "INFO"
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// ParseLevel accepts the level names printed by Level.String, in any case.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(s) {
	case "INFO":
		return Info, nil
	case "WARNING", "WARN":
		return Warning, nil
	case "ERROR":
		return Error, nil
	}
	return Info, errors.Errorf("unknown log level %q", s)
}

// ErrFailFast is returned by Tracker.Abort once an error was recorded by a
// tracker in fail-fast mode.
var ErrFailFast = errors.New("stopping after the first error")

type Record struct {
	Level   Level
	Op      string
	Message string
}

func (r Record) String() string {
	return r.Level.String() + " " + r.Op + ": " + r.Message
}

// Tracker records diagnostics. The zero value is not usable; use New.
type Tracker struct {
	emitLevel Level
	failFast  bool

	seen    bool
	highest Level
	counts  [Error + 1]int
	records []Record
	abort   error

	// emit writes an accepted record out. Tests swap it to keep output quiet.
	emit func(r Record, depth int)
}

// New returns a tracker that emits records at emitLevel or above through
// glog. All records are tracked regardless of emitLevel.
func New(emitLevel Level, failFast bool) *Tracker {
	return &Tracker{
		emitLevel: emitLevel,
		failFast:  failFast,
		emit:      glogEmit,
	}
}

// NewQuiet returns a tracker that keeps records without writing them anywhere.
func NewQuiet(failFast bool) *Tracker {
	t := New(Info, failFast)
	t.emit = func(Record, int) {}
	return t
}

func glogEmit(r Record, depth int) {
	msg := r.Op + ": " + r.Message
	switch r.Level {
	case Error:
		glog.ErrorDepth(depth+1, msg)
	case Warning:
		glog.WarningDepth(depth+1, msg)
	default:
		glog.InfoDepth(depth+1, msg)
	}
}

func (t *Tracker) record(depth int, l Level, op, format string, args ...interface{}) {
	r := Record{Level: l, Op: op, Message: fmt.Sprintf(format, args...)}
	t.records = append(t.records, r)
	t.counts[l]++
	if !t.seen || l > t.highest {
		t.highest = l
		t.seen = true
	}
	if l >= Error && t.failFast && t.abort == nil {
		t.abort = errors.Wrap(ErrFailFast, r.Op)
	}
	if l >= t.emitLevel {
		t.emit(r, depth+1)
	}
}

func (t *Tracker) Infof(op, format string, args ...interface{}) {
	t.record(2, Info, op, format, args...)
}

func (t *Tracker) Warningf(op, format string, args ...interface{}) {
	t.record(2, Warning, op, format, args...)
}

func (t *Tracker) Errorf(op, format string, args ...interface{}) {
	t.record(2, Error, op, format, args...)
}

// Abort returns a non-nil error once the run has to stop: in fail-fast mode,
// after the first error-level record.
func (t *Tracker) Abort() error {
	return t.abort
}

// Highest returns the highest level recorded so far and false if nothing
// was recorded yet.
func (t *Tracker) Highest() (Level, bool) {
	return t.highest, t.seen
}

// Failed reports whether at least one error-level record was made.
func (t *Tracker) Failed() bool {
	return t.seen && t.highest >= Error
}

func (t *Tracker) Count(l Level) int {
	if l < Info || l > Error {
		return 0
	}
	return t.counts[l]
}

// Records returns a copy of everything recorded, in order.
func (t *Tracker) Records() []Record {
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}
