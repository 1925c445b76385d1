package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"apiary-voice/internal/domain"
)

const (
	maxAudioBytes = 10 * 1024 * 1024
	maxTextBytes  = 1024
)

// HTTPSource receives replies pushed by a phone or another client. Each POST
// is one utterance.
type HTTPSource struct {
	addr        string
	authToken   string
	wait        time.Duration
	server      *http.Server
	utterances  chan Utterance
	logger      *slog.Logger
	mux         *http.ServeMux
	rateLimiter *RateLimiter

	mu      sync.Mutex
	running bool
	closed  bool
	// lapsed is set when a Capture times out; replies buffered after that
	// answer an abandoned prompt.
	lapsed bool
}

// NewHTTPSource builds the source. wait is the minimum time Capture waits for
// a reply before reporting silence; clients need longer than a microphone.
func NewHTTPSource(addr, authToken string, wait time.Duration, logger *slog.Logger) *HTTPSource {
	h := &HTTPSource{
		addr:        addr,
		authToken:   authToken,
		wait:        wait,
		utterances:  make(chan Utterance, 10),
		logger:      logger,
		mux:         http.NewServeMux(),
		rateLimiter: NewRateLimiter(30, time.Minute),
	}
	h.mux.HandleFunc("POST /audio", h.rateLimiter.Middleware(h.authorize(h.handleAudio)))
	h.mux.HandleFunc("POST /text", h.rateLimiter.Middleware(h.authorize(h.handleText)))
	h.mux.HandleFunc("GET /health", h.handleHealth)
	return h
}

func (h *HTTPSource) Name() string {
	return "http"
}

func (h *HTTPSource) Start(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return nil
	}

	h.server = &http.Server{
		Addr:         h.addr,
		Handler:      h.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		h.logger.Info("HTTP reply server starting", "addr", h.addr)
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", "error", err)
		}
	}()

	h.running = true
	return nil
}

func (h *HTTPSource) Stop() error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return nil
	}
	server := h.server
	h.running = false
	h.mu.Unlock()

	var stopErr error
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			h.logger.Warn("graceful shutdown failed, forcing close", "error", err)
			if err := server.Close(); err != nil {
				stopErr = fmt.Errorf("closing server: %w", err)
			}
		}
	}

	h.mu.Lock()
	if !h.closed {
		close(h.utterances)
		h.closed = true
	}
	h.mu.Unlock()
	return stopErr
}

// Capture waits for the next posted reply. No reply within max(d, wait)
// yields domain.ErrNoSpeech, and replies that arrive after such a timeout are
// dropped by the next Capture.
func (h *HTTPSource) Capture(ctx context.Context, d time.Duration) (Utterance, error) {
	if h.wait > d {
		d = h.wait
	}
	h.dropLapsed()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return Utterance{}, ctx.Err()
	case <-timer.C:
		h.mu.Lock()
		h.lapsed = true
		h.mu.Unlock()
		return Utterance{}, domain.ErrNoSpeech
	case u, ok := <-h.utterances:
		if !ok {
			return Utterance{}, fmt.Errorf("reply channel closed")
		}
		return u, nil
	}
}

func (h *HTTPSource) dropLapsed() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.lapsed || h.closed {
		return
	}
	h.lapsed = false

	dropped := 0
	for {
		select {
		case <-h.utterances:
			dropped++
		default:
			if dropped > 0 {
				h.logger.Info("dropped late replies", "count", dropped)
			}
			return
		}
	}
}

func (h *HTTPSource) Handler() http.Handler {
	return h.mux
}

// Inject queues a reply as if it had been posted. It drops the reply when the
// queue is full or the source is stopped.
func (h *HTTPSource) Inject(u Utterance) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	select {
	case h.utterances <- u:
		return true
	default:
		return false
	}
}

func (h *HTTPSource) authorize(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.authToken == "" {
			next(w, r)
			return
		}
		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token != h.authToken {
			h.logger.Warn("unauthorized request", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (h *HTTPSource) handleAudio(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	data, err := io.ReadAll(io.LimitReader(r.Body, maxAudioBytes))
	if err != nil {
		h.logger.Error("reading audio body", "error", err)
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if len(data) == 0 {
		http.Error(w, "empty audio", http.StatusBadRequest)
		return
	}

	if !h.Inject(Utterance{Audio: data}) {
		http.Error(w, "queue full, try again", http.StatusServiceUnavailable)
		return
	}
	h.logger.Info("received audio via HTTP", "bytes", len(data))
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "received", "bytes": len(data)})
}

func (h *HTTPSource) handleText(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	data, err := io.ReadAll(io.LimitReader(r.Body, maxTextBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		http.Error(w, "empty text", http.StatusBadRequest)
		return
	}

	if !h.Inject(Utterance{Text: text}) {
		http.Error(w, "queue full, try again", http.StatusServiceUnavailable)
		return
	}
	h.logger.Info("received text via HTTP", "text", text)
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "received", "text": text})
}

func (h *HTTPSource) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	running := h.running
	h.mu.Unlock()

	status := "ok"
	statusCode := http.StatusOK
	if !running {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, map[string]any{
		"status":     status,
		"running":    running,
		"queue_size": len(h.utterances),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
