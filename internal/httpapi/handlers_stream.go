package httpapi

import (
	"fmt"
	"net/http"

	"opensentry/internal/broadcast"
)

// handleVideoFeed and handleVideoFeedMotion both serve a
// multipart/x-mixed-replace MJPEG stream, differing only in which
// Broadcaster they subscribe to (spec §4.9).
func (s *Server) handleVideoFeed(w http.ResponseWriter, r *http.Request) {
	serveMJPEG(w, r, s.Raw)
}

func (s *Server) handleVideoFeedMotion(w http.ResponseWriter, r *http.Request) {
	serveMJPEG(w, r, s.Motion.Broadcaster)
}

func serveMJPEG(w http.ResponseWriter, r *http.Request, src *broadcast.Broadcaster) {
	const boundary = "frame"
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	frames, cancel := src.Subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", boundary, len(f.Data)); err != nil {
				return
			}
			if _, err := w.Write(f.Data); err != nil {
				return
			}
			if _, err := w.Write([]byte("\r\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
