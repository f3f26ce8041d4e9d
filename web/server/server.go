package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/df07/go-diffraction-glare/pkg/config"
	"github.com/df07/go-diffraction-glare/pkg/core"
	"github.com/df07/go-diffraction-glare/pkg/renderer"
	"github.com/gorilla/websocket"
)

// Server handles web requests for the diffraction renderer
type Server struct {
	port      int
	staticDir string
	backend   renderer.Backend
	params    *config.MutableSource
	psf       renderer.PSFProvider
	upgrader  websocket.Upgrader
}

// NewServer creates a new web server. All renders share the backend; params
// holds the defaults new renders and sessions start from.
func NewServer(port int, backend renderer.Backend, params *config.MutableSource) *Server {
	return &Server{
		port:      port,
		staticDir: "static/",
		backend:   backend,
		params:    params,
	}
}

// SetStaticDir changes the directory served at /
func (s *Server) SetStaticDir(dir string) {
	s.staticDir = dir
}

// SetPSF sets the glare input provider used by every render
func (s *Server) SetPSF(psf renderer.PSFProvider) {
	s.psf = psf
}

// Handler returns the HTTP routes of the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/params", s.handleParams)
	mux.HandleFunc("/api/outline.png", s.handleOutlinePNG)
	mux.HandleFunc("/api/outline.svg", s.handleOutlineSVG)
	mux.HandleFunc("/api/inspect", s.handleInspect)
	mux.HandleFunc("/api/render", s.handleRender)
	mux.HandleFunc("/ws", s.handleWebsocket)
	return mux
}

// Start starts the web server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	core.Logger().Info("starting web server", "url", "http://localhost"+addr, "backend", s.backend.Name())
	return http.ListenAndServe(addr, s.Handler())
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ParamsResponse is returned by /api/params
type ParamsResponse struct {
	Params   config.Params  `json:"params"`
	Defaults config.Params  `json:"defaults"`
	Limits   map[string]any `json:"limits"`
}

// handleParams returns (GET) or merges (POST) the server's current parameters
func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		p, err := mergeClientParams(s.params.Current(), body)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid parameters: %v", err))
			return
		}
		s.params.Set(p)
	default:
		writeError(w, http.StatusMethodNotAllowed, "use GET or POST")
		return
	}

	writeJSON(w, http.StatusOK, ParamsResponse{
		Params:   s.params.Current(),
		Defaults: config.Default(),
		Limits:   limits(),
	})
}

// mergeClientParams applies a partial JSON parameter object on top of base.
// The glare source names a file on the server, so clients cannot change it.
func mergeClientParams(base config.Params, body []byte) (config.Params, error) {
	p := base
	if err := json.Unmarshal(body, &p); err != nil {
		return base, err
	}
	p.Glare.Source = base.Glare.Source
	return p.Clamp(), nil
}

func limits() map[string]any {
	return map[string]any{
		"edgeCount":    map[string]int{"min": config.MinEdgeCount, "max": config.MaxEdgeCount},
		"arcPoints":    map[string]int{"min": 0, "max": config.MaxArcPoints},
		"oversample":   map[string]int{"min": 1, "max": config.MaxOversample},
		"wavelengths":  map[string]int{"min": 1, "max": config.MaxWavelengths},
		"viewportSide": map[string]int{"min": 1, "max": config.MaxViewportSide},
		"wavelengthNm": map[string]float64{"min": config.MinWavelengthNM, "max": config.MaxWavelengthNM},
		"logScale":     map[string]float64{"min": -6, "max": 6},
		"logExposure":  map[string]float64{"min": -20, "max": 20},
	}
}

// requestParams starts from the server parameters and applies query overrides
func (s *Server) requestParams(r *http.Request) (config.Params, error) {
	p := s.params.Current()
	q := r.URL.Query()

	if mode := q.Get("mode"); mode != "" {
		switch config.Mode(mode) {
		case config.ModeDiffraction, config.ModeGlare:
			p.Mode = config.Mode(mode)
		default:
			return p, fmt.Errorf("unknown mode: %s", mode)
		}
	}

	var err error
	a, sp, v := &p.Aperture, &p.Spectrum, &p.View
	if a.EdgeCount, err = parseIntParam(q, "edges", a.EdgeCount, config.MinEdgeCount, config.MaxEdgeCount); err != nil {
		return p, err
	}
	if a.CurvatureRadius, err = parseFloatParam(q, "radius", a.CurvatureRadius, -1, 1e6); err != nil {
		return p, err
	}
	if a.ArcPoints, err = parseIntParam(q, "arcPoints", a.ArcPoints, 0, config.MaxArcPoints); err != nil {
		return p, err
	}
	if a.Rotation, err = parseFloatParam(q, "rotation", a.Rotation, -100, 100); err != nil {
		return p, err
	}
	if a.Oversample, err = parseIntParam(q, "oversample", a.Oversample, 1, config.MaxOversample); err != nil {
		return p, err
	}
	if sp.Count, err = parseIntParam(q, "wavelengths", sp.Count, 1, config.MaxWavelengths); err != nil {
		return p, err
	}
	if v.Width, err = parseIntParam(q, "width", v.Width, 1, 2000); err != nil {
		return p, err
	}
	if v.Height, err = parseIntParam(q, "height", v.Height, 1, 2000); err != nil {
		return p, err
	}
	if v.LogScale, err = parseFloatParam(q, "logScale", v.LogScale, -6, 6); err != nil {
		return p, err
	}
	if v.LogExposure, err = parseFloatParam(q, "logExposure", v.LogExposure, -20, 20); err != nil {
		return p, err
	}

	if v.Width*v.Height > 800*600 && sp.Count > 256 {
		core.Logger().Warn("large image with many wavelengths may render slowly",
			"width", v.Width, "height", v.Height, "wavelengths", sp.Count)
	}
	return p.Clamp(), nil
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// parseFloatParam parses a float parameter from URL query with validation
func parseFloatParam(values url.Values, key string, defaultValue, min, max float64) (float64, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %g and %g, got: %g", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		core.Logger().Warn("writing response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// renderLogger returns a logger mirroring render messages into consoleChan
// and the server log.
func renderLogger(consoleChan chan<- ConsoleMessage, renderID string) *slog.Logger {
	return slog.New(NewConsoleHandler(consoleChan, slog.LevelInfo, core.Logger().Handler())).
		With("render", renderID)
}
