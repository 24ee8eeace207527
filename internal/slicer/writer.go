package slicer

import (
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"
)

// FrameWriter persists retained frames as JPEG files named by their
// formatted timestamp.
type FrameWriter struct {
	dir string
}

// NewFrameWriter creates the output directory if needed.
func NewFrameWriter(dir string) (*FrameWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory '%s': %v", dir, err)
	}
	return &FrameWriter{dir: dir}, nil
}

// Write encodes the frame to <dir>/<MM_SS_mmm>.jpg and returns the absolute
// path. When two frames round to the same timestamp bucket the frame index
// is appended; an existing file is never overwritten.
func (w *FrameWriter) Write(f *Frame) (string, error) {
	name := FormatTimestamp(f.Timestamp)
	path := filepath.Join(w.dir, name+".jpg")
	if _, err := os.Stat(path); err == nil {
		path = filepath.Join(w.dir, fmt.Sprintf("%s_%d.jpg", name, f.Index))
	}

	img, err := toImage(f)
	if err != nil {
		return "", err
	}

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create frame file: %v", err)
	}
	defer out.Close()

	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: 90}); err != nil {
		return "", fmt.Errorf("failed to encode frame: %v", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}

// FormatTimestamp renders seconds as zero-padded MM_SS_mmm, e.g. 4.25s
// becomes "00_04_250".
func FormatTimestamp(seconds float64) string {
	minutes := int(seconds) / 60
	secs := int(seconds) % 60
	millis := int(math.Mod(seconds, 1) * 1000)
	return fmt.Sprintf("%02d_%02d_%03d", minutes, secs, millis)
}

func toImage(f *Frame) (image.Image, error) {
	switch f.Channels {
	case 1:
		img := image.NewGray(image.Rect(0, 0, f.Width, f.Height))
		copy(img.Pix, f.Pixels)
		return img, nil
	case 3:
		img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
		for i := 0; i < f.Width*f.Height; i++ {
			img.Pix[i*4] = f.Pixels[i*3]
			img.Pix[i*4+1] = f.Pixels[i*3+1]
			img.Pix[i*4+2] = f.Pixels[i*3+2]
			img.Pix[i*4+3] = 0xff
		}
		return img, nil
	default:
		return nil, fmt.Errorf("unsupported channel count %d", f.Channels)
	}
}
