package thumbnail

import (
	"bytes"
	"image"
	"image/png"
	"testing"
)

func TestGenerateScalesDown(t *testing.T) {
	data := encodePNG(t, 640, 480)

	thumb, err := Generate(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	img, format, err := image.Decode(bytes.NewReader(thumb))
	if err != nil {
		t.Fatalf("could not decode thumbnail: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("expected jpeg thumbnail, got %s", format)
	}
	if img.Bounds().Dx() != 128 {
		t.Errorf("expected width 128, got %d", img.Bounds().Dx())
	}
	if img.Bounds().Dy() != 96 {
		t.Errorf("expected height 96, got %d", img.Bounds().Dy())
	}
}

func TestGenerateKeepsSmallImages(t *testing.T) {
	data := encodePNG(t, 100, 50)

	thumb, err := Generate(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	img, format, err := image.Decode(bytes.NewReader(thumb))
	if err != nil {
		t.Fatalf("could not decode thumbnail: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("expected jpeg thumbnail, got %s", format)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Errorf("expected original dimensions, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestGenerateRejectsGarbage(t *testing.T) {
	if _, err := Generate([]byte("not an image")); err == nil {
		t.Error("expected error, got nil")
	}
}

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("could not encode test image: %v", err)
	}
	return buf.Bytes()
}
