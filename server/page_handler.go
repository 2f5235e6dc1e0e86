package server

import (
	"net/http"
	"time"

	"github.com/samandartukhtayev/user-directory/logging"
	"github.com/samandartukhtayev/user-directory/page"
)

// PageHandler mounts the page once per request. The loading indicator is
// flushed before the fetch starts and the result follows on the same response,
// so a reload is a retry.
type PageHandler struct {
	renderer *page.Renderer
	source   page.UsersSource
	delay    time.Duration
	initial  page.InitialData
	log      *logging.Logger
}

// NewPageHandler creates the handler; initial may be empty
func NewPageHandler(renderer *page.Renderer, source page.UsersSource, delay time.Duration, initial page.InitialData, logger *logging.Logger) *PageHandler {
	return &PageHandler{
		renderer: renderer,
		source:   source,
		delay:    delay,
		initial:  initial,
		log:      logger.With("PageHandler"),
	}
}

func (h *PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")

	if err := h.renderer.WriteHead(w); err != nil {
		h.log.Error("failed to write page head: %v", err)
		return
	}

	var streamErr error
	loader := page.NewLoader(h.source, h.delay, h.initial, h.log)
	loader.Load(r.Context(), func(v page.View) {
		if streamErr != nil {
			return
		}
		if v.State == page.StateLoading {
			streamErr = h.renderer.WriteLoading(w)
			flush(w)
			return
		}
		streamErr = h.renderer.WriteResult(w, v)
	})
	if streamErr != nil {
		h.log.Error("failed to write page: %v", streamErr)
		return
	}

	if err := h.renderer.WriteFoot(w); err != nil {
		h.log.Error("failed to write page foot: %v", err)
	}
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
