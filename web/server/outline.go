package server

import (
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"strconv"

	"github.com/df07/go-diffraction-glare/pkg/aperture"
	"github.com/df07/go-diffraction-glare/pkg/core"
	"github.com/df07/go-diffraction-glare/pkg/renderer"
)

// requestOutline builds the aperture outline for the request parameters
func (s *Server) requestOutline(w http.ResponseWriter, r *http.Request) (*aperture.Outline, bool) {
	p, err := s.requestParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	outline, err := aperture.NewOutline(p.Aperture)
	if errors.Is(err, aperture.ErrInvalidGeometry) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return outline, true
}

// handleOutlinePNG draws the aperture outline, black on white
func (s *Server) handleOutlinePNG(w http.ResponseWriter, r *http.Request) {
	size, err := parseIntParam(r.URL.Query(), "size", 256, 2, 2048)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	outline, ok := s.requestOutline(w, r)
	if !ok {
		return
	}

	img, err := outline.Draw(size)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, img); err != nil {
		core.Logger().Warn("encoding outline", "err", err)
	}
}

// handleOutlineSVG writes the aperture outline as SVG
func (s *Server) handleOutlineSVG(w http.ResponseWriter, r *http.Request) {
	outline, ok := s.requestOutline(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	if err := outline.WriteSVG(w); err != nil {
		core.Logger().Warn("writing outline svg", "err", err)
	}
}

// InspectResponse describes a single evaluated pixel
type InspectResponse struct {
	X         int        `json:"x"`
	Y         int        `json:"y"`
	Offset    [2]float64 `json:"offset"`    // from the optical center, aperture y up
	Frequency [2]float64 `json:"frequency"` // k at the middle wavelength
	XYZW      [4]float64 `json:"xyzw"`
	RGB       [3]uint8   `json:"rgb"`
	Area      float64    `json:"area"`
}

// handleInspect evaluates one pixel of the diffraction image directly
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	p, err := s.requestParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	x, errX := strconv.Atoi(r.URL.Query().Get("x"))
	y, errY := strconv.Atoi(r.URL.Query().Get("y"))
	if errX != nil || errY != nil || x < 0 || y < 0 || x >= p.View.Width || y >= p.View.Height {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("x and y must address a pixel of the %dx%d image", p.View.Width, p.View.Height))
		return
	}

	ev, err := renderer.NewEvaluator(p)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	camera := renderer.NewCamera(p.View, 1)
	offset := camera.Offset(x, y, camera.Subsamples()[0])
	k := camera.Frequency(offset, (p.Spectrum.MinNM+p.Spectrum.MaxNM)/2)
	px := ev.Pixel(x, y)
	c := renderer.Mapper(p).RGBA(px)

	writeJSON(w, http.StatusOK, InspectResponse{
		X:         x,
		Y:         y,
		Offset:    [2]float64{offset.X, offset.Y},
		Frequency: [2]float64{k.X, k.Y},
		XYZW:      [4]float64{px.X, px.Y, px.Z, px.W},
		RGB:       [3]uint8{c.R, c.G, c.B},
		Area:      ev.Aperture().Area(),
	})
}
