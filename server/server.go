// Package server handles HTTP endpoints and request routing for the
// countdown web surface.
package server

import (
	"context"
	"crypto/rand"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"countdown-notifier/pkg/countdown"
)

//go:embed tmpl/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "tmpl/*.tmpl"))

// Media interface for day-keyed override storage.
type Media interface {
	Open(ctx context.Context, day int, ext string) ([]byte, error)
	Put(ctx context.Context, day int, ext string, data []byte) error
	List(ctx context.Context) ([]string, error)
}

// Notifier interface for triggering the daily batch.
type Notifier interface {
	Run(ctx context.Context, now time.Time) error
}

// IsNoOverride classifies a media error as "no override stored".
type IsNoOverride func(error) bool

// Server handles HTTP requests.
type Server struct {
	media        Media
	notifier     Notifier
	logger       *slog.Logger
	isNoOverride IsNoOverride
	baseURL      string
	adminToken   string
	cfg          countdown.Config
}

// Config holds server configuration.
type Config struct {
	Media        Media
	Notifier     Notifier
	Logger       *slog.Logger
	IsNoOverride IsNoOverride
	BaseURL      string
	AdminToken   string
	Countdown    countdown.Config
}

// New creates a new HTTP server handler.
func New(cfg *Config) *Server {
	return &Server{
		media:        cfg.Media,
		notifier:     cfg.Notifier,
		logger:       cfg.Logger,
		isNoOverride: cfg.IsNoOverride,
		baseURL:      cfg.BaseURL,
		adminToken:   cfg.AdminToken,
		cfg:          cfg.Countdown,
	}
}

// ServeHTTP sets up all routes and starts the server.
func (s *Server) ServeHTTP(mediaFS embed.FS, port string) error {
	http.HandleFunc("/", s.handleIndex)
	http.HandleFunc("/day", s.handleDay)
	http.HandleFunc("/about", s.handleAbout)
	http.HandleFunc("/health", s.handleHealth)
	http.HandleFunc("/notifyz", s.handleNotify)
	http.HandleFunc("/admin/media", s.handleMediaUpload)
	http.HandleFunc("/media/", s.mediaHandler(mediaFS))

	// Configure server with timeouts to prevent resource exhaustion
	server := &http.Server{
		Addr:              ":" + port,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "port", port)
	return server.ListenAndServe()
}

func securityHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; media-src 'self'")
}

// effectiveConfig resolves the countdown configuration for one visitor. In
// first-visit mode the epoch is the date the visitor first opened the page,
// remembered in a cookie; the fixed mode ignores cookies entirely.
func (s *Server) effectiveConfig(w http.ResponseWriter, r *http.Request) countdown.Config {
	cfg := s.cfg
	if cfg.StartMode != countdown.StartFirstVisit {
		return cfg
	}

	start, ok := startCookie(r)
	if !ok {
		now := time.Now()
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		setStartCookie(w, start)
	}
	cfg.StartDate = start
	cfg.BirthdayDate = start.AddDate(0, 0, cfg.TotalDays-1)
	return cfg
}

// startCookie reads the remembered first-visit date.
func startCookie(r *http.Request) (time.Time, bool) {
	cookie, err := r.Cookie("countdown_start")
	if err != nil {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation("2006-01-02", cookie.Value, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func setStartCookie(w http.ResponseWriter, start time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     "countdown_start",
		Value:    start.Format("2006-01-02"),
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// visitorCode returns the visitor's stable identifier, minting one on the
// first request.
func visitorCode(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie("visitor_code"); err == nil && isValidCode(cookie.Value) {
		return cookie.Value
	}

	code := newVisitorCode()
	http.SetCookie(w, &http.Cookie{
		Name:     "visitor_code",
		Value:    code,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return code
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newVisitorCode() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "FRIEND"
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b)
}

func isValidCode(code string) bool {
	if len(code) != 8 {
		return false
	}
	for _, c := range code {
		if !strings.ContainsRune(codeAlphabet, c) {
			return false
		}
	}
	return true
}

// Rate limiter for the admin upload endpoint (max 10 per IP per hour).
type rateLimiter struct {
	clients map[string][]time.Time
	mu      sync.Mutex
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{clients: make(map[string][]time.Time)}
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-time.Hour)

	var recent []time.Time
	for _, ts := range rl.clients[ip] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}
	if len(recent) >= 10 {
		return false
	}
	rl.clients[ip] = append(recent, now)
	return true
}

var uploadRateLimiter = newRateLimiter()

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if parts := strings.Split(xff, ","); len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

func formatDate(t time.Time) string {
	return t.Format("Monday, January 2, 2006")
}

func dayURL(day int) string {
	return fmt.Sprintf("/day?day=%d", day)
}
