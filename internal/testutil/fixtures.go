// Package testutil builds small documents for package tests.
package testutil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// BuildPDF returns a minimal, well-formed PDF with the given number of
// pages. Each page carries a filled rectangle so rasterized pages are not
// blank.
func BuildPDF(pages int) []byte {
	var buf bytes.Buffer
	var offsets []int

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", 3+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pages))

	for i := 0; i < pages; i++ {
		content := fmt.Sprintf("0.2 g %d 40 120 80 re f", 20+i*5)
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 200] /Contents %d 0 R /Resources << >> >>", 4+2*i))
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

// NewImage returns a w x h colour gradient.
func NewImage(w, h int) image.Image {
	img := imaging.New(w, h, color.White)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	return img
}

// EncodeImage encodes img in the given imaging format.
func EncodeImage(img image.Image, format imaging.Format) []byte {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// PNG returns a w x h PNG.
func PNG(w, h int) []byte {
	return EncodeImage(NewImage(w, h), imaging.PNG)
}

// JPEG returns a w x h JPEG.
func JPEG(w, h int) []byte {
	return EncodeImage(NewImage(w, h), imaging.JPEG)
}
