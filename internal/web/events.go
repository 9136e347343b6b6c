package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"courseforge/internal/publish"
)

// changeHub fans a "something changed" tick out to every open event stream.
type changeHub struct {
	mu      sync.Mutex
	subs    map[chan struct{}]struct{}
	version uint64
	closed  chan struct{}
	once    sync.Once
}

func newChangeHub() *changeHub {
	return &changeHub{subs: map[chan struct{}]struct{}{}, closed: make(chan struct{})}
}

func (h *changeHub) subscribe() (ch chan struct{}, cancel func()) {
	ch = make(chan struct{}, 8)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

func (h *changeHub) publish() {
	h.mu.Lock()
	h.version++
	for ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	h.mu.Unlock()
}

func (h *changeHub) currentVersion() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.version
}

func (h *changeHub) close() {
	h.once.Do(func() { close(h.closed) })
}

// handleEvents streams the course structure as datastar signals: once on connect
// and again after every write that went through this server.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	sse := datastar.NewSSE(w, r)

	render := func() map[string]any {
		st, err := s.gw.FetchStructure(r.Context(), courseID)
		if err != nil {
			return map[string]any{"error": err.Error(), "version": s.hub.currentVersion()}
		}
		return map[string]any{
			"course":   st.Course,
			"modules":  st.Modules,
			"warnings": publish.ValidatePublishReadiness(st.Modules),
			"version":  s.hub.currentVersion(),
			"error":    "",
		}
	}

	ch, cancel := s.hub.subscribe()
	defer cancel()
	_ = sse.MarshalAndPatchSignals(render())

	keepAlive := time.NewTicker(s.cfg.KeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-sse.Context().Done():
			return
		case <-s.hub.closed:
			return
		case <-keepAlive.C:
			_ = sse.PatchSignals([]byte(`{}`))
		case <-ch:
			_ = sse.MarshalAndPatchSignals(render())
		}
	}
}
