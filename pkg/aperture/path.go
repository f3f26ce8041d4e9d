package aperture

import (
	"fmt"
	"io"

	"honnef.co/go/curve"
)

// Path returns the outline as a closed Bézier path made of line segments
func (o *Outline) Path() curve.BezPath {
	var path curve.BezPath
	if len(o.Segments) == 0 {
		return path
	}
	path.MoveTo(o.Segments[0].A)
	for _, s := range o.Segments {
		path.LineTo(s.B)
	}
	path.ClosePath()
	return path
}

// WriteSVG writes a standalone SVG document showing the outline inside the
// unit circle, y axis pointing up.
func (o *Outline) WriteSVG(w io.Writer) error {
	if _, err := fmt.Fprint(w, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="-1.05 -1.05 2.1 2.1">`+"\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, `<circle cx="0" cy="0" r="1" fill="none" stroke="#ccc" stroke-width="0.005"/>`+"\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, `<path transform="scale(1,-1)" fill="none" stroke="black" stroke-width="0.01" d="`); err != nil {
		return err
	}
	if err := o.Path().WriteSVG(w, curve.SVGOptions{MaxPrecision: 6}); err != nil {
		return err
	}
	_, err := fmt.Fprint(w, `"/>`+"\n</svg>\n")
	return err
}
