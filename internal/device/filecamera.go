// Package device holds the scanner's concrete capability implementations:
// a file-backed camera and a terminal recognizer/feedback pair. Real phone
// hardware is the production client; these let the loop run anywhere.
package device

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/image/draw"

	"github.com/hsqsh/maisHack25/internal/scan"
)

// FileCameraOpener acquires a camera that replays image files from a
// directory in a loop, rendering each frame at a fixed size to match the
// detector's input resolution.
type FileCameraOpener struct {
	Dir    string
	Width  int
	Height int
}

func (o *FileCameraOpener) Open(ctx context.Context) (scan.Camera, error) {
	entries, err := os.ReadDir(o.Dir)
	if err != nil {
		return nil, fmt.Errorf("open frame dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			paths = append(paths, filepath.Join(o.Dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no frames in %s", o.Dir)
	}
	sort.Strings(paths)

	width, height := o.Width, o.Height
	if width <= 0 {
		width = 640
	}
	if height <= 0 {
		height = 480
	}
	return &fileCamera{paths: paths, width: width, height: height}, nil
}

type fileCamera struct {
	mu     sync.Mutex
	paths  []string
	next   int
	width  int
	height int
	closed bool
}

// Capture decodes the next file, scales it to the fixed frame size and
// re-encodes losslessly as PNG.
func (c *fileCamera) Capture(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("camera released")
	}
	path := c.paths[c.next%len(c.paths)]
	c.next++
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, c.width, c.height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *fileCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
