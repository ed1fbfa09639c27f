package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodeTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test PNG: %v", err)
	}
	return buf.Bytes()
}

func encodeTestJPEG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test JPEG: %v", err)
	}
	return buf.Bytes()
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not valid PNG: %v", err)
	}
	return img
}

func TestToPNG_PassesThroughPNG(t *testing.T) {
	data := encodeTestPNG(t, 8, 8)
	out, err := ToPNG(data)
	if err != nil {
		t.Fatalf("ToPNG error: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("expected PNG input to pass through unchanged")
	}
}

func TestToPNG_ConvertsJPEG(t *testing.T) {
	out, err := ToPNG(encodeTestJPEG(t, 10, 6))
	if err != nil {
		t.Fatalf("ToPNG error: %v", err)
	}
	img := decodePNG(t, out)
	if img.Bounds().Dx() != 10 || img.Bounds().Dy() != 6 {
		t.Errorf("expected 10x6 output, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestToPNG_RejectsGarbage(t *testing.T) {
	if _, err := ToPNG([]byte("definitely not an image")); err == nil {
		t.Fatalf("expected decode error for garbage input")
	}
}

func TestThumbnail_ScalesDownPreservingAspect(t *testing.T) {
	out, err := Thumbnail(encodeTestPNG(t, 400, 300), 100)
	if err != nil {
		t.Fatalf("Thumbnail error: %v", err)
	}
	img := decodePNG(t, out)
	if img.Bounds().Dx() != 100 {
		t.Errorf("expected width 100, got %d", img.Bounds().Dx())
	}
	if img.Bounds().Dy() != 75 {
		t.Errorf("expected height 75, got %d", img.Bounds().Dy())
	}
}

func TestThumbnail_DoesNotUpscale(t *testing.T) {
	out, err := Thumbnail(encodeTestPNG(t, 40, 30), 100)
	if err != nil {
		t.Fatalf("Thumbnail error: %v", err)
	}
	img := decodePNG(t, out)
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 30 {
		t.Errorf("expected original 40x30 size, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestThumbnail_InvalidWidth(t *testing.T) {
	if _, err := Thumbnail(encodeTestPNG(t, 8, 8), 0); err == nil {
		t.Fatalf("expected error for non-positive width")
	}
}

func TestToPNG_RasterizesSVG(t *testing.T) {
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="20" height="10"><rect width="20" height="10" fill="#000"/></svg>`)
	out, err := ToPNG(svg)
	if err != nil {
		t.Fatalf("ToPNG error: %v", err)
	}
	img := decodePNG(t, out)
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 10 {
		t.Errorf("expected 20x10 raster, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestParseSvgExplicitSize(t *testing.T) {
	w, h, ok := parseSvgExplicitSize([]byte(`<svg width="640px" height="480px">`))
	if !ok || w != 640 || h != 480 {
		t.Errorf("expected 640x480, got %dx%d ok=%v", w, h, ok)
	}
	if _, _, ok := parseSvgExplicitSize([]byte(`<svg viewBox="0 0 10 10">`)); ok {
		t.Errorf("viewBox must not be treated as pixel size")
	}
}
