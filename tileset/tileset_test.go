package tileset

import (
	"bytes"
	"encoding/json"
	"image/color"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"badc0de.net/pkg/go-tileset/codec/codectest"
	"badc0de.net/pkg/go-tileset/diag"
	"badc0de.net/pkg/go-tileset/ttesting"
)

const testProperties = `# test tileset
NAME: test
VIEW: Test Tileset
JSON: tile_config.json
TILESET: tiles.png
`

type fixture struct {
	t    *testing.T
	src  string
	out  string
	fake *codectest.Fake
}

func newFixture(t *testing.T, info string) *fixture {
	t.Helper()
	f := &fixture{t: t, src: t.TempDir(), out: t.TempDir(), fake: codectest.NewFake()}
	codectest.WriteFile(t, f.src, InfoFile, info)
	codectest.WriteFile(t, f.src, PropertiesFile, testProperties)
	return f
}

func (f *fixture) sprite(rel string) {
	f.t.Helper()
	codectest.WriteSprite(f.t, f.src, rel, 16, 16)
}

func (f *fixture) file(rel, content string) {
	f.t.Helper()
	codectest.WriteFile(f.t, f.src, rel, content)
}

func (f *fixture) compose(opts Options) (*Result, *diag.Tracker, error) {
	f.t.Helper()
	if opts.Diag == nil {
		opts.Diag = diag.NewQuiet(false)
	}
	opts.Codec = f.fake
	opts.Progress = ioutil.Discard
	ts, err := New(f.src, f.out, opts)
	if err != nil {
		f.t.Fatalf("New: %v", err)
	}
	res, err := ts.Compose()
	return res, opts.Diag, err
}

func mustMarshal(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func hasRecord(d *diag.Tracker, l diag.Level, substr string) bool {
	for _, r := range d.Records() {
		if r.Level == l && strings.Contains(r.Message, substr) {
			return true
		}
	}
	return false
}

func TestComposeUnusedSprite(t *testing.T) {
	f := newFixture(t, `[{"width": 16, "height": 16}, {"a.png": {}}]`)
	f.sprite("pngs_a_16x16/1/t_grass.png")
	f.sprite("pngs_a_16x16/2/t_dirt.png")
	f.file("pngs_a_16x16/1/grass.json", `{"id": "t_grass", "fg": "t_grass"}`)

	res, d, err := f.compose(Options{})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	ttesting.AssertEqualInt(t, "sheets", len(res.Document.TilesNew), 2)
	main := res.Document.TilesNew[0]
	ttesting.AssertEqualString(t, "file", main.File, "a.png")
	ttesting.AssertEqualString(t, "range", main.Comment, "range 1 to 15")
	ttesting.AssertEqualString(t, "tiles", mustMarshal(t, main.Tiles), `[{"id":"t_grass","fg":1}]`)
	ttesting.AssertEqualString(t, "fallback", res.Document.TilesNew[1].File, "fallback.png")
	ttesting.AssertEqualBool(t, "t_dirt reported", hasRecord(d, diag.Warning, "t_dirt"), true)
	ttesting.AssertEqualBool(t, "failed", d.Failed(), false)

	if _, err := os.Stat(filepath.Join(f.out, "tile_config.json")); err != nil {
		t.Errorf("document not written: %v", err)
	}
	if _, ok := f.fake.Written(filepath.Join(f.out, "a.png")); !ok {
		t.Errorf("sheet image not written")
	}
}

func TestComposeUndecodableSprite(t *testing.T) {
	f := newFixture(t, `[{"width": 16, "height": 16}, {"a.png": {}}]`)
	f.sprite("pngs_a_16x16/t_good.png")
	f.file("pngs_a_16x16/t_bad.png", "garbage")
	f.file("pngs_a_16x16/good.json", `{"id": "t_good", "fg": "t_good"}`)

	res, d, err := f.compose(Options{})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	ttesting.AssertEqualInt(t, "one error", d.Count(diag.Error), 1)
	ttesting.AssertEqualBool(t, "decode reported", hasRecord(d, diag.Error, "cannot load"), true)
	if _, err := os.Stat(res.Path); err != nil {
		t.Errorf("document not written: %v", err)
	}
	// t_bad keeps index 1, t_good follows it.
	ttesting.AssertEqualString(t, "tiles", mustMarshal(t, res.Document.TilesNew[0].Tiles), `[{"id":"t_good","fg":2}]`)

	w, ok := f.fake.Written(filepath.Join(f.out, "a.png"))
	if !ok {
		t.Fatalf("sheet image not written")
	}
	ttesting.AssertDeepEqual(t, "bad cell transparent", color.NRGBAModel.Convert(w.Image.At(17, 1)), color.NRGBA{})
	ttesting.AssertDeepEqual(t, "good cell drawn", color.NRGBAModel.Convert(w.Image.At(33, 1)), color.NRGBA{255, 255, 255, 255})
}

func TestComposeDocument(t *testing.T) {
	f := newFixture(t, `[{"width": 16, "height": 16, "iso": true}, {"a.png": {}}]`)
	f.sprite("pngs_a_16x16/t_grass.png")
	f.file("pngs_a_16x16/grass.json", `{"id": "t_grass", "fg": "t_grass"}`)

	res, _, err := f.compose(Options{})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	b, err := ioutil.ReadFile(res.Path)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"tile_info":[{"pixelscale":1,"width":16,"height":16,"iso":true,"retract_dist_min":-1,"retract_dist_max":1}],` +
		`"tiles-new":[{"file":"a.png","//":"range 1 to 15","tiles":[{"id":"t_grass","fg":1}]},` +
		`{"file":"fallback.png","tiles":[],"ascii":[`
	if !strings.HasPrefix(string(b), want) {
		t.Errorf("document=%s; want prefix %s", b, want)
	}
}

func TestComposeFillerOverride(t *testing.T) {
	for _, obsolete := range []bool{false, true} {
		f := newFixture(t, `[{}, {"main.png": {}}, {"fill.png": {"filler": true}}]`)
		f.sprite("pngs_main_16x16/f_chair.png")
		f.file("pngs_main_16x16/chair.json", `{"id": "f_chair", "fg": "f_chair"}`)
		f.sprite("pngs_fill_16x16/f_chair.png")
		f.sprite("pngs_fill_16x16/f_table.png")
		f.file("pngs_fill_16x16/chair.json", `[{"id": "f_chair", "fg": "f_chair"}, {"id": "f_table", "fg": "f_table"}]`)

		res, d, err := f.compose(Options{ObsoleteFillers: obsolete})
		if err != nil {
			t.Fatalf("Compose: %v", err)
		}
		ttesting.AssertEqualBool(t, "failed", d.Failed(), false)
		ttesting.AssertEqualString(t, "main tiles", mustMarshal(t, res.Document.TilesNew[0].Tiles), `[{"id":"f_chair","fg":1}]`)
		ttesting.AssertEqualString(t, "filler tiles", mustMarshal(t, res.Document.TilesNew[1].Tiles), `[{"id":"f_table","fg":16}]`)
		ttesting.AssertEqualString(t, "filler range", res.Document.TilesNew[1].Comment, "range 16 to 31")
		ttesting.AssertEqualBool(t, "override warned", hasRecord(d, diag.Warning, "skipping filler for f_chair"), obsolete)
	}
}

func TestComposeMainCollision(t *testing.T) {
	f := newFixture(t, `[{}, {"a.png": {}}, {"b.png": {}}]`)
	f.sprite("pngs_a_16x16/f_chair.png")
	f.file("pngs_a_16x16/chair.json", `{"id": "f_chair", "fg": "f_chair"}`)
	f.sprite("pngs_b_16x16/f_chair.png")
	f.sprite("pngs_b_16x16/f_desk.png")
	f.file("pngs_b_16x16/chair.json", `[{"id": "f_chair", "fg": "f_chair"}, {"id": "f_desk", "fg": "f_desk"}]`)

	res, d, err := f.compose(Options{})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	ttesting.AssertEqualBool(t, "failed", d.Failed(), true)
	ttesting.AssertEqualInt(t, "errors", d.Count(diag.Error), 2)
	ttesting.AssertEqualString(t, "first sheet", mustMarshal(t, res.Document.TilesNew[0].Tiles), `[{"id":"f_chair","fg":1}]`)
	ttesting.AssertEqualString(t, "second sheet", mustMarshal(t, res.Document.TilesNew[1].Tiles), `[{"id":"f_desk","fg":16}]`)
}

func TestComposeFailFast(t *testing.T) {
	f := newFixture(t, `[{}, {"a.png": {}}, {"b.png": {}}]`)
	f.sprite("pngs_a_16x16/f_chair.png")
	f.sprite("pngs_b_16x16/f_chair.png")

	_, _, err := f.compose(Options{Diag: diag.NewQuiet(true)})
	if errors.Cause(err) != diag.ErrFailFast {
		t.Fatalf("Compose()=%v; want %v", err, diag.ErrFailFast)
	}
	if _, err := os.Stat(filepath.Join(f.out, "tile_config.json")); !os.IsNotExist(err) {
		t.Errorf("document written after fail-fast abort")
	}
	if _, ok := f.fake.Written(filepath.Join(f.out, "a.png")); !ok {
		t.Errorf("first sheet image missing; it is written before the abort")
	}
}

func TestComposeVariation(t *testing.T) {
	f := newFixture(t, `[{}, {"a.png": {}}]`)
	f.sprite("pngs_a_16x16/x1.png")
	f.file("pngs_a_16x16/v.json", `{"id": "t_v", "fg": [{"sprite": "x1", "weight": 1}, {"sprite": "missing", "weight": 1}]}`)

	res, d, err := f.compose(Options{})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	ttesting.AssertEqualString(t, "tiles", mustMarshal(t, res.Document.TilesNew[0].Tiles), `[{"id":"t_v","fg":{"sprite":1,"weight":1}}]`)
	ttesting.AssertEqualInt(t, "errors", d.Count(diag.Error), 0)
}

func TestComposeUseAll(t *testing.T) {
	f := newFixture(t, `[{}, {"main.png": {}}, {"fill.png": {"filler": true}}]`)
	f.sprite("pngs_main_16x16/t_a.png")
	f.sprite("pngs_main_16x16/t_b.png")
	f.sprite("pngs_main_16x16/t_c.png")
	f.file("pngs_main_16x16/a.json", `[{"id": "t_a", "fg": "t_a"}, {"id": "t_c", "fg": "t_a"}]`)
	f.sprite("pngs_fill_16x16/f_x.png")

	res, d, err := f.compose(Options{UseAll: true})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	ttesting.AssertEqualString(t, "main tiles", mustMarshal(t, res.Document.TilesNew[0].Tiles),
		`[{"id":"t_a","fg":1},{"id":"t_c","fg":1},{"id":"t_b","fg":2}]`)
	ttesting.AssertEqualString(t, "filler tiles", mustMarshal(t, res.Document.TilesNew[1].Tiles), `[{"id":"f_x","fg":16}]`)
	ttesting.AssertEqualBool(t, "t_c id clash warned", hasRecord(d, diag.Warning, "t_c sprite was not mentioned"), true)
	ttesting.AssertEqualBool(t, "failed", d.Failed(), false)
}

func TestComposeUnusedWithEntry(t *testing.T) {
	f := newFixture(t, `[{}, {"main.png": {}}]`)
	f.sprite("pngs_main_16x16/t_a.png")
	f.sprite("pngs_main_16x16/t_b.png")
	f.file("pngs_main_16x16/a.json", `{"id": "t_b", "fg": "t_a"}`)

	_, d, err := f.compose(Options{})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	ttesting.AssertEqualBool(t, "t_b error", hasRecord(d, diag.Error, "t_b.png not used"), true)
}

func TestComposeUnusedWithUnresolvedEntry(t *testing.T) {
	f := newFixture(t, `[{}, {"main.png": {}}]`)
	f.sprite("pngs_main_16x16/t_a.png")
	f.sprite("pngs_main_16x16/t_b.png")
	f.file("pngs_main_16x16/a.json", `[{"id": "t_a", "fg": "t_a"}, {"id": "t_b", "fg": "t_nope"}]`)

	res, d, err := f.compose(Options{})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	ttesting.AssertEqualString(t, "tiles", mustMarshal(t, res.Document.TilesNew[0].Tiles), `[{"id":"t_a","fg":1}]`)
	ttesting.AssertEqualBool(t, "t_nope error", hasRecord(d, diag.Error, "t_nope.png file"), true)
	ttesting.AssertEqualBool(t, "t_b error", hasRecord(d, diag.Error, "t_b.png not used"), true)
	ttesting.AssertEqualBool(t, "t_b not a warning", hasRecord(d, diag.Warning, "t_b"), false)
}

func TestComposeIndicesContiguous(t *testing.T) {
	f := newFixture(t, `[{}, {"a.png": {"sprites_across": 4}}, {"empty.png": {}}, {"b.png": {"sprites_across": 3}}, {"c.png": {"filler": true}}]`)
	for _, name := range []string{"a1", "a2", "a3", "a4", "a5"} {
		f.sprite("pngs_a_16x16/" + name + ".png")
	}
	f.sprite("pngs_b_16x16/b1.png")
	f.sprite("pngs_c_16x16/c1.png")
	f.sprite("pngs_c_16x16/c2.png")

	res, d, err := f.compose(Options{UseAll: true})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	ttesting.AssertEqualBool(t, "empty sheet warned", hasRecord(d, diag.Warning, "empty.png has no sprites"), true)

	var names []string
	next := 1
	for _, s := range res.Sheets {
		names = append(names, s.Name)
		ttesting.AssertEqualInt(t, s.Name+" first", s.FirstIndex, next)
		next = s.MaxIndex + 1
	}
	ttesting.AssertDeepEqual(t, "sheets", names, []string{"a.png", "b.png", "c.png"})
	// a: null + 5 -> 8 cells; b: 1 -> 3 cells; c: 2 -> 16 cells.
	ttesting.AssertDeepEqual(t, "ranges", []string{
		res.Document.TilesNew[0].Comment,
		res.Document.TilesNew[1].Comment,
		res.Document.TilesNew[2].Comment,
	}, []string{"range 1 to 7", "range 8 to 10", "range 11 to 26"})
	ttesting.AssertEqualString(t, "b tiles", mustMarshal(t, res.Document.TilesNew[1].Tiles), `[{"id":"b1","fg":8}]`)
	ttesting.AssertEqualInt(t, "last index", next-1, 26)
}

func TestComposeIdempotent(t *testing.T) {
	f := newFixture(t, `[{}, {"a.png": {}}, {"large.png": {"sprite_width": 32, "sprite_height": 32, "sprite_offset_x": -8}}]`)
	f.sprite("pngs_a_16x16/t_a.png")
	f.file("pngs_a_16x16/a.json", `{"id": ["t_a", "t_a2"], "fg": ["t_a", "t_a"], "rotates": true, "zzz": 1, "aaa": 2}`)
	codectest.WriteSprite(t, f.src, "pngs_large_32x32/t_big.png", 32, 32)
	f.file("pngs_large_32x32/big.json", `{"id": "t_big", "fg": "t_big", "bg": "t_a"}`)

	var docs [][]byte
	for i := 0; i < 2; i++ {
		f.out = t.TempDir()
		res, _, err := f.compose(Options{FormatJSON: true})
		if err != nil {
			t.Fatalf("Compose #%d: %v", i, err)
		}
		b, err := ioutil.ReadFile(res.Path)
		if err != nil {
			t.Fatal(err)
		}
		docs = append(docs, b)
	}
	if !bytes.Equal(docs[0], docs[1]) {
		t.Errorf("documents differ:\n%s\n%s", docs[0], docs[1])
	}
	if !bytes.Contains(docs[0], []byte(`"sprite_offset_x": -8`)) {
		t.Errorf("geometry of large.png missing:\n%s", docs[0])
	}
}

func TestComposeFallback(t *testing.T) {
	f := newFixture(t, `[{}, {"a.png": {}}, {"fb.png": {"fallback": true, "sprite_width": 32}}, {"fb2.png": {"fallback": true}}]`)
	f.sprite("pngs_a_16x16/t_a.png")

	res, d, err := f.compose(Options{})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	last := res.Document.TilesNew[len(res.Document.TilesNew)-1]
	ttesting.AssertEqualString(t, "file", last.File, "fb.png")
	if last.Geometry == nil {
		t.Fatalf("fallback geometry missing")
	}
	ttesting.AssertEqualInt(t, "width", last.SpriteWidth, 32)
	ttesting.AssertEqualInt(t, "ascii", len(last.ASCII), 16)
	ttesting.AssertEqualBool(t, "second fallback warned", hasRecord(d, diag.Warning, "fb2.png: only one fallback"), true)
	if _, ok := f.fake.Written(filepath.Join(f.out, "fb.png")); ok {
		t.Errorf("fallback sheet image written")
	}
}

func TestComposeOnlyJSON(t *testing.T) {
	f := newFixture(t, `[{}, {"a.png": {}}]`)
	f.sprite("pngs_a_16x16/t_a.png")

	res, _, err := f.compose(Options{OnlyJSON: true, UseAll: true})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	ttesting.AssertEqualInt(t, "images written", f.fake.WrittenPaths(), 0)
	ttesting.AssertEqualString(t, "tiles", mustMarshal(t, res.Document.TilesNew[0].Tiles), `[{"id":"t_a","fg":1}]`)
}

func TestComposeProgress(t *testing.T) {
	f := newFixture(t, `[{}, {"a.png": {}}]`)
	f.sprite("pngs_a_16x16/t_a.png")

	var buf bytes.Buffer
	ts, err := New(f.src, f.out, Options{Codec: f.fake, Diag: diag.NewQuiet(false), Feedback: Concise, Progress: &buf})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ts.Compose(); err != nil {
		t.Fatal(err)
	}
	want := "Composing [main] tilesheet [a.png]... done.\nWriting tile_config.json... done.\n"
	ttesting.AssertEqualString(t, "progress", buf.String(), want)
}

func TestNewStructuralErrors(t *testing.T) {
	for _, tc := range []struct {
		name  string
		setup func(src string)
	}{
		{"no tile info", func(src string) {
			os.Remove(filepath.Join(src, InfoFile))
		}},
		{"bad tile info", func(src string) {
			codectest.WriteFile(t, src, InfoFile, `{"width": 16}`)
		}},
		{"no properties", func(src string) {
			os.Remove(filepath.Join(src, PropertiesFile))
		}},
		{"no JSON key", func(src string) {
			codectest.WriteFile(t, src, PropertiesFile, "NAME: x\n")
		}},
		{"bad sheet", func(src string) {
			codectest.WriteFile(t, src, InfoFile, `[{}, {"a.png": {"sprites_across": 0}}]`)
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, `[{}, {"a.png": {}}]`)
			tc.setup(f.src)
			_, err := New(f.src, f.out, Options{Codec: f.fake, Diag: diag.NewQuiet(false)})
			var se *StructuralError
			if !errors.As(err, &se) {
				t.Errorf("New()=%v; want a StructuralError", err)
			}
		})
	}

	_, err := New(filepath.Join(t.TempDir(), "missing"), "", Options{})
	var se *StructuralError
	ttesting.AssertEqualBool(t, "missing source", errors.As(err, &se), true)
}

func TestNewPropertiesInOutputDir(t *testing.T) {
	f := newFixture(t, `[{"width": 24, "height": 24}]`)
	os.Remove(filepath.Join(f.src, PropertiesFile))
	codectest.WriteFile(t, f.out, PropertiesFile, "JSON: other.json\n")

	ts, err := New(f.src, f.out, Options{Codec: f.fake, Diag: diag.NewQuiet(false)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ttesting.AssertEqualString(t, "config file", ts.ConfigFile, "other.json")
	ttesting.AssertEqualInt(t, "width", ts.Info.Width, 24)
	ttesting.AssertEqualInt(t, "default pixelscale", int(ts.Info.PixelScale), 1)
}

func TestParseFeedback(t *testing.T) {
	for _, fb := range []Feedback{Silent, Concise, Verbose} {
		got, err := ParseFeedback(strings.ToLower(fb.String()))
		if err != nil || got != fb {
			t.Errorf("ParseFeedback(%s)=%v,%v", fb, got, err)
		}
	}
	if _, err := ParseFeedback("LOUD"); err == nil {
		t.Errorf("ParseFeedback(LOUD) succeeded")
	}
}
