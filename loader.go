package teximport

import (
	"bufio"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"os"

	"github.com/woozymasta/teximport/pixel"
	_ "github.com/xfmoulet/qoi"   // register QOI decoder
	_ "golang.org/x/image/bmp"   // register BMP decoder
	_ "golang.org/x/image/tiff"  // register TIFF decoder
	_ "golang.org/x/image/webp"  // register WebP decoder
)

// Loader reads a source image into an uncompressed buffer.
type Loader interface {
	Load(path string) (*pixel.Buffer, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(path string) (*pixel.Buffer, error)

// Load implements Loader.
func (f LoaderFunc) Load(path string) (*pixel.Buffer, error) { return f(path) }

// FileLoader decodes any registered image format from disk.
type FileLoader struct{}

// Load implements Loader.
func (FileLoader) Load(path string) (*pixel.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	img, name, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	buf, err := pixel.FromImage(img)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %s image: %w", path, name, err)
	}

	return buf, nil
}
