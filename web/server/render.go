package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"sync"
	"time"

	"github.com/df07/go-diffraction-glare/pkg/core"
	"github.com/df07/go-diffraction-glare/pkg/renderer"
)

// ProgressUpdate is sent after every scheduler step
type ProgressUpdate struct {
	StartLine    int     `json:"startLine"`
	EndLine      int     `json:"endLine"`
	LinesPerStep int     `json:"linesPerStep"`
	Completed    float64 `json:"completed"`
	StepMs       float64 `json:"stepMs"`
	ElapsedMs    int64   `json:"elapsedMs"`
	ImageData    string  `json:"imageData"` // Base64 encoded PNG
	IsComplete   bool    `json:"isComplete"`
	Valid        bool    `json:"valid"`
}

// SSEEvent represents a unified SSE event for thread-safe writing
type SSEEvent struct {
	Type string `json:"type"` // "console", "progress", "error", "complete"
	Data string `json:"data"`
}

// handleRender runs one progressive render to completion, streaming every
// step's frame and the render log as server-sent events.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	s.setSSEHeaders(w)
	ctx := r.Context()

	// Single writer goroutine owns w; it exits when the channel is closed
	sseEventChan := make(chan SSEEvent, 100)
	writerDone := make(chan struct{})
	go func() {
		s.writeSSEEvents(w, ctx, sseEventChan)
		close(writerDone)
	}()
	defer func() {
		close(sseEventChan)
		<-writerDone
	}()

	p, err := s.requestParams(r)
	if err != nil {
		s.sendEvent(ctx, sseEventChan, "error", fmt.Sprintf("Invalid request: %v", err))
		return
	}

	consoleChan := make(chan ConsoleMessage, 50)
	consoleDone := make(chan struct{})
	go func() {
		s.streamConsoleMessages(ctx, consoleChan, sseEventChan)
		close(consoleDone)
	}()
	// Flushes pending console messages so they precede the final event
	finishConsole := sync.OnceFunc(func() {
		close(consoleChan)
		<-consoleDone
	})
	defer finishConsole()

	logger := renderLogger(consoleChan, fmt.Sprintf("render-%d", time.Now().UnixNano()))
	rend := renderer.NewRenderer(s.backend, renderer.Options{Logger: logger, PSF: s.psf})
	rend.Update(p)
	if !rend.Valid() {
		finishConsole()
		s.sendEvent(ctx, sseEventChan, "error", "Invalid aperture: curvature radius too small for the edge count")
		return
	}

	err = s.runRender(ctx, rend, sseEventChan)
	finishConsole()
	if err != nil {
		s.sendEvent(ctx, sseEventChan, "error", fmt.Sprintf("Rendering failed: %v", err))
		return
	}
	s.sendEvent(ctx, sseEventChan, "complete", "Rendering completed")
}

// runRender steps the renderer until the image is complete
func (s *Server) runRender(ctx context.Context, rend *renderer.Renderer, events chan<- SSEEvent) error {
	startTime := time.Now()
	for rend.Computing() {
		stats, err := rend.Step(ctx)
		if err != nil {
			return err
		}
		update, err := progressUpdate(rend.Frame(), stats, rend.Valid(), startTime)
		if err != nil {
			return err
		}
		data, err := json.Marshal(update)
		if err != nil {
			return err
		}
		if !s.sendEvent(ctx, events, "progress", string(data)) {
			return ctx.Err()
		}
	}
	return nil
}

func progressUpdate(frame image.Image, stats renderer.StepStats, valid bool, startTime time.Time) (ProgressUpdate, error) {
	imageData, err := imageToBase64PNG(frame)
	if err != nil {
		return ProgressUpdate{}, fmt.Errorf("failed to encode image: %w", err)
	}
	return ProgressUpdate{
		StartLine:    stats.Band.Y0,
		EndLine:      stats.Band.Y1,
		LinesPerStep: stats.LinesPerStep,
		Completed:    stats.Completed,
		StepMs:       float64(stats.Duration) / float64(time.Millisecond),
		ElapsedMs:    time.Since(startTime).Milliseconds(),
		ImageData:    imageData,
		IsComplete:   stats.Done,
		Valid:        valid,
	}, nil
}

// setSSEHeaders sets the required headers for Server-Sent Events
func (s *Server) setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// sendEvent queues an event, giving up if the client went away
func (s *Server) sendEvent(ctx context.Context, events chan<- SSEEvent, typ, data string) bool {
	select {
	case events <- SSEEvent{Type: typ, Data: data}:
		return true
	case <-ctx.Done():
		return false
	}
}

// writeSSEEvents handles writing all SSE events in a single goroutine
func (s *Server) writeSSEEvents(w http.ResponseWriter, ctx context.Context, sseEventChan <-chan SSEEvent) {
	flusher, _ := w.(http.Flusher)
	for {
		select {
		case event, ok := <-sseEventChan:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, event.Data); err != nil {
				// Client disconnected during write; keep draining
				continue
			}
			if flusher != nil {
				flusher.Flush()
			}
		case <-ctx.Done():
			// Drain so senders never block, then stop at close
			for range sseEventChan {
			}
			return
		}
	}
}

// streamConsoleMessages forwards render log messages as console events
func (s *Server) streamConsoleMessages(ctx context.Context, consoleChan <-chan ConsoleMessage, sseEventChan chan<- SSEEvent) {
	for msg := range consoleChan {
		data, err := json.Marshal(msg)
		if err != nil {
			core.Logger().Warn("marshaling console message", "err", err)
			continue
		}
		select {
		case sseEventChan <- SSEEvent{Type: "console", Data: string(data)}:
		case <-ctx.Done():
		default:
			// Channel full, skip message to avoid blocking
		}
	}
}

// imageToBase64PNG converts an image to base64-encoded PNG
func imageToBase64PNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
