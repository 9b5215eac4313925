// Package codectest provides an in-memory ImageCodec and helpers for
// building tileset source trees in tests.
package codectest

import (
	"fmt"
	"image"
	"image/color"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"badc0de.net/pkg/go-tileset/codec"
)

// Written is one image passed to Fake.Encode.
type Written struct {
	Image image.Image
	Opts  codec.EncodeOptions
}

// Fake decodes "sprite" files holding "WxH" (optionally followed by a gray
// level) instead of PNG data, and keeps encoded images in memory.
type Fake struct {
	mu      sync.Mutex
	written map[string]Written
	decoded int
}

func NewFake() *Fake {
	return &Fake{written: map[string]Written{}}
}

func (f *Fake) Decode(path string) (image.Image, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var w, h, level int
	level = 255
	fields := strings.Fields(string(b))
	if len(fields) == 0 {
		return nil, fmt.Errorf("%s: empty sprite", path)
	}
	if _, err := fmt.Sscanf(fields[0], "%dx%d", &w, &h); err != nil {
		return nil, fmt.Errorf("%s: not a sprite: %v", path, err)
	}
	if len(fields) > 1 {
		fmt.Sscanf(fields[1], "%d", &level)
	}
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(level)})
		}
	}
	f.mu.Lock()
	f.decoded++
	f.mu.Unlock()
	return img, nil
}

func (f *Fake) Encode(path string, img image.Image, opts codec.EncodeOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written[path] = Written{Image: img, Opts: opts}
	return nil
}

// Written returns what was encoded to path.
func (f *Fake) Written(path string) (Written, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.written[path]
	return w, ok
}

// WrittenPaths returns the number of distinct paths encoded to.
func (f *Fake) WrittenPaths() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.written)
}

// Decoded returns how many images were decoded.
func (f *Fake) Decoded() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.decoded
}

// WriteFile writes content to root/rel, creating directories.
func WriteFile(t testing.TB, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := ioutil.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// WriteSprite writes a fake sprite of the given size to root/rel.
func WriteSprite(t testing.TB, root, rel string, w, h int) string {
	t.Helper()
	return WriteFile(t, root, rel, fmt.Sprintf("%dx%d", w, h))
}
