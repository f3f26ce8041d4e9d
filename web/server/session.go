package server

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"time"

	"github.com/df07/go-diffraction-glare/pkg/config"
	"github.com/df07/go-diffraction-glare/pkg/core"
	"github.com/df07/go-diffraction-glare/pkg/renderer"
	"github.com/gorilla/websocket"
)

// SessionMessage is sent to websocket clients
type SessionMessage struct {
	Type     string          `json:"type"` // "frame", "console", "error"
	Frame    *ProgressUpdate `json:"frame,omitempty"`
	Console  *ConsoleMessage `json:"console,omitempty"`
	Error    string          `json:"error,omitempty"`
	Params   *config.Params  `json:"params,omitempty"`
	Backend  string          `json:"backend,omitempty"`
	Sequence int             `json:"sequence"`
}

// FrameInterval is the tick period of interactive sessions
const FrameInterval = 30 * time.Millisecond

// handleWebsocket runs an interactive session: the client sends partial
// parameter objects, the server answers with a frame after every step and
// every visible change.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		core.Logger().Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	src := config.NewMutableSource(s.params.Current())
	go s.readSession(ctx, cancel, conn, src)

	consoleChan := make(chan ConsoleMessage, 50)
	logger := renderLogger(consoleChan, fmt.Sprintf("session-%d", time.Now().UnixNano()))
	rend := renderer.NewRenderer(s.backend, renderer.Options{Logger: logger, PSF: s.psf})

	// Only this goroutine writes to conn
	seq := 0
	send := func(msg SessionMessage) error {
		seq++
		msg.Sequence = seq
		return conn.WriteJSON(msg)
	}

	startTime := time.Now()
	surface := renderer.SurfaceFunc(func(frame *image.RGBA, stats renderer.StepStats) error {
		for drained := false; !drained; {
			select {
			case msg := <-consoleChan:
				if err := send(SessionMessage{Type: "console", Console: &msg}); err != nil {
					return err
				}
			default:
				drained = true
			}
		}
		update, err := progressUpdate(frame, stats, rend.Valid(), startTime)
		if err != nil {
			return err
		}
		p := rend.Params()
		return send(SessionMessage{Type: "frame", Frame: &update, Params: &p, Backend: s.backend.Name()})
	})

	loop := &renderer.Loop{Renderer: rend, Source: src, Surface: surface, Interval: FrameInterval}
	err = loop.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		core.Logger().Warn("session ended", "err", err)
		send(SessionMessage{Type: "error", Error: err.Error()})
	}
}

// readSession applies parameter edits until the connection closes
func (s *Server) readSession(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, src *config.MutableSource) {
	defer cancel()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && ctx.Err() == nil {
				core.Logger().Debug("websocket read", "err", err)
			}
			return
		}
		p, err := mergeClientParams(src.Current(), msg)
		if err != nil {
			core.Logger().Warn("ignoring malformed parameters", "err", err)
			continue
		}
		src.Set(p)
	}
}
