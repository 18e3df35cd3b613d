package livemap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"

	"github.com/beaconloc/presence/internal/location"
)

// SVGCanvas renders scenes as SVG and replaces the output file on Flush.
// A reader of the file never sees a half-written scene.
type SVGCanvas struct {
	path string
	buf  bytes.Buffer
	open bool
}

// NewSVGCanvas returns a canvas writing to path.
func NewSVGCanvas(path string) *SVGCanvas {
	return &SVGCanvas{path: path}
}

// Path returns the output file.
func (c *SVGCanvas) Path() string {
	return c.path
}

// Clear starts a new document.
func (c *SVGCanvas) Clear(size location.Canvas) {
	c.buf.Reset()
	c.open = true
	fmt.Fprintf(&c.buf,
		`<svg xmlns="http://www.w3.org/2000/svg" width="%g" height="%g" viewBox="0 0 %g %g">`+"\n",
		size.Width, size.Height, size.Width, size.Height)
	fmt.Fprintf(&c.buf, `<rect width="100%%" height="100%%" fill="white"/>`+"\n")
}

// Rect draws a filled rectangle with a thin border.
func (c *SVGCanvas) Rect(r location.Rect, fill string) {
	fmt.Fprintf(&c.buf, `<rect x="%g" y="%g" width="%g" height="%g" fill="%s" stroke="black" stroke-width="1"/>`+"\n",
		r.X, r.Y, r.W, r.H, escape(fill))
}

// Text draws a centred label.
func (c *SVGCanvas) Text(at location.Point, text string) {
	fmt.Fprintf(&c.buf, `<text x="%g" y="%g" font-family="Arial" font-size="16" text-anchor="middle">%s</text>`+"\n",
		at.X, at.Y, escape(text))
}

// Marker draws a dot with a hover title.
func (c *SVGCanvas) Marker(at location.Point, radius float64, fill, label string) {
	fmt.Fprintf(&c.buf, `<circle cx="%g" cy="%g" r="%g" fill="%s"><title>%s</title></circle>`+"\n",
		at.X, at.Y, radius, escape(fill), escape(label))
}

// Flush closes the document and atomically replaces the output file.
func (c *SVGCanvas) Flush() error {
	if !c.open {
		return nil
	}
	c.buf.WriteString("</svg>\n")
	c.open = false

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".livemap-*.svg")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // Gone after a successful rename

	if _, err := tmp.Write(c.buf.Bytes()); err != nil {
		tmp.Close() //nolint:errcheck // Already failing
		return fmt.Errorf("writing scene: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing scene: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("replacing %s: %w", c.path, err)
	}
	return nil
}

func escape(s string) string {
	var b bytes.Buffer
	//nolint:errcheck // bytes.Buffer writes do not fail
	xml.EscapeText(&b, []byte(s))
	return b.String()
}
