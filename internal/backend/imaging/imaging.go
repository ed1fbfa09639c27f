package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"strings"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// svgFallbackSize is used when an SVG carries no explicit pixel dimensions.
const svgFallbackSize = 512

// hasCorrectPngSignature checks whether the provided data begins with a valid PNG signature
func hasCorrectPngSignature(data []byte) bool {
	// PNG signature: 0x89 'P' 'N' 'G' 0x0D 0x0A 0x1A 0x0A
	if len(data) < 8 {
		return false
	}
	expected := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	return bytes.Equal(data[:8], expected)
}

// Decode turns uploaded camera bytes into an image. Raster formats are
// handled by the registered decoders (png, jpeg, gif, bmp, tiff, webp); SVG
// input is rasterized.
func Decode(data []byte) (image.Image, error) {
	if isSVGData(data) {
		return rasterizeSVG(data)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	slog.Debug("decoded raster image",
		"format", format,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy())
	return img, nil
}

// ToPNG converts uploaded bytes of any supported format into PNG bytes.
// PNG input passes through untouched.
func ToPNG(data []byte) ([]byte, error) {
	if hasCorrectPngSignature(data) {
		return data, nil
	}

	img, err := Decode(data)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image to PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// Thumbnail scales the image down to the target width, preserving aspect
// ratio, and returns PNG bytes. Images already narrower than width are
// re-encoded without scaling.
func Thumbnail(data []byte, width int) ([]byte, error) {
	if width <= 0 {
		return nil, fmt.Errorf("thumbnail width must be positive, got %d", width)
	}

	img, err := Decode(data)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	if bounds.Dx() > width {
		height := bounds.Dy() * width / bounds.Dx()
		if height < 1 {
			height = 1
		}
		scaled := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, bounds, draw.Over, nil)
		img = scaled
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// isSVGData performs a lightweight detection of SVG content from raw bytes.
// It checks for "<svg" tag or SVG namespace in the initial portion of the data.
func isSVGData(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	// Only inspect the first ~4KB for detection
	n := len(data)
	if n > 4096 {
		n = 4096
	}
	header := bytes.ToLower(bytes.TrimSpace(data[:n]))
	return bytes.HasPrefix(header, []byte("<svg")) ||
		bytes.Contains(header, []byte("<svg")) ||
		bytes.Contains(header, []byte("xmlns=\"http://www.w3.org/2000/svg\"")) ||
		bytes.Contains(header, []byte("xmlns='http://www.w3.org/2000/svg'"))
}

// rasterizeSVG renders SVG bytes onto a white canvas sized from the SVG's
// explicit width/height attributes, falling back to a square canvas.
func rasterizeSVG(svgData []byte) (image.Image, error) {
	targetW, targetH, ok := parseSvgExplicitSize(svgData)
	if !ok {
		targetW, targetH = svgFallbackSize, svgFallbackSize
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(svgData))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %w", err)
	}
	icon.SetTarget(0, 0, float64(targetW), float64(targetH))

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	white := color.RGBA{255, 255, 255, 255}
	for y := 0; y < targetH; y++ {
		for x := 0; x < targetW; x++ {
			dst.SetRGBA(x, y, white)
		}
	}

	scanner := rasterx.NewScannerGV(targetW, targetH, dst, dst.Bounds())
	dasher := rasterx.NewDasher(targetW, targetH, scanner)
	icon.Draw(dasher, 1.0)

	return dst, nil
}

// parseSvgExplicitSize attempts to extract width and height attributes from the SVG.
// Returns width, height, and ok=true if both are found and parseable.
func parseSvgExplicitSize(data []byte) (int, int, bool) {
	n := len(data)
	if n > 8192 {
		n = 8192
	}
	s := strings.ToLower(string(data[:n]))
	i := strings.Index(s, "<svg")
	if i < 0 {
		return 0, 0, false
	}
	// Limit to the start tag portion up to '>'
	j := strings.Index(s[i:], ">")
	if j < 0 {
		j = len(s)
	} else {
		j = i + j
	}
	tag := s[i:j]

	w, wOk := parseNumericAttr(tag, "width")
	h, hOk := parseNumericAttr(tag, "height")
	if wOk && hOk && w > 0 && h > 0 {
		return w, h, true
	}
	// If no explicit width/height, do not treat viewBox as pixel size; use fallback.
	return 0, 0, false
}

// parseNumericAttr extracts the leading numeric value of an attribute (e.g., width="123px").
// Returns the integer value and ok=true if found.
func parseNumericAttr(tag, attr string) (int, bool) {
	key := attr + "="
	pos := strings.Index(tag, key)
	if pos < 0 {
		return 0, false
	}
	// Find first quote after the attr name
	q := strings.Index(tag[pos:], "\"")
	single := strings.Index(tag[pos:], "'")
	start := -1
	quoteChar := byte(0)
	if q >= 0 && (single < 0 || q < single) {
		start = pos + q + 1
		quoteChar = '"'
	} else if single >= 0 {
		start = pos + single + 1
		quoteChar = '\''
	}
	if start < 0 || start >= len(tag) {
		return 0, false
	}
	end := strings.IndexByte(tag[start:], quoteChar)
	val := tag[start:]
	if end >= 0 {
		val = tag[start : start+end]
	}
	// Extract leading number
	num := 0
	found := false
	for i := 0; i < len(val); i++ {
		ch := val[i]
		if ch >= '0' && ch <= '9' {
			found = true
			num = num*10 + int(ch-'0')
		} else if found {
			break
		}
	}
	if !found || num <= 0 {
		return 0, false
	}
	return num, true
}
