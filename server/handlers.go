package server

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"countdown-notifier/calendar"
	"countdown-notifier/content"
)

// dayCard is one tile on the index grid.
type dayCard struct {
	Header    string
	Label     string
	Subtitle  string
	Preview   string
	Color     string
	URL       string
	Index     int
	UnlocksIn int
	Unlocked  bool
	IsLetter  bool
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	securityHeaders(w)

	cfg := s.effectiveConfig(w, r)
	now := time.Now()
	currentDay := calendar.CurrentDay(cfg, now)

	cards := make([]dayCard, 0, cfg.TotalDays)
	for day := 1; day <= cfg.TotalDays; day++ {
		rec := content.Resolve(cfg, day)
		primary, _ := content.Colors(day)

		card := dayCard{
			Index:    day,
			Label:    rec.Label,
			Subtitle: rec.Title,
			Preview:  content.Preview(cfg, day),
			Color:    primary,
			URL:      dayURL(day),
			Unlocked: calendar.IsUnlocked(cfg, day, now),
			IsLetter: rec.IsLetter,
		}
		if rec.IsLetter {
			card.Header = "Letter " + rec.Label
			card.Subtitle = rec.Word
		} else {
			card.Header = fmt.Sprintf("Day %d", day)
		}
		if !card.Unlocked {
			card.UnlocksIn = day - currentDay
		}
		cards = append(cards, card)
	}

	// The birthday tile also unlocks on the birthday itself even when the
	// countdown arithmetic has not ticked past the final day yet.
	birthdayUnlocked := currentDay > cfg.TotalDays ||
		calendar.Midnight(now).Equal(calendar.Midnight(cfg.BirthdayDate))

	nextLabel := "🎂"
	if currentDay <= cfg.TotalDays {
		nextLabel = content.Resolve(cfg, currentDay).Label
	}

	data := map[string]any{
		"CurrentDay":       currentDay,
		"DaysLeft":         calendar.DaysRemaining(cfg, now),
		"NextLabel":        nextLabel,
		"TotalDays":        cfg.TotalDays,
		"StartDate":        formatDate(cfg.StartDate),
		"BirthdayDate":     formatDate(cfg.BirthdayDate),
		"Cards":            cards,
		"BirthdayURL":      dayURL(cfg.TotalDays + 1),
		"BirthdayUnlocked": birthdayUnlocked,
		"VisitorCode":      visitorCode(w, r),
	}

	if err := templates.ExecuteTemplate(w, "index.tmpl", data); err != nil {
		s.logger.Error("Failed to render template", "template", "index.tmpl", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg := s.effectiveConfig(w, r)
	now := time.Now()

	day, err := strconv.Atoi(r.URL.Query().Get("day"))
	if err != nil {
		day = 1
	}

	// The unlock decision is enforced here, not in the page: a crafted query
	// string for a future day gets a redirect, never the content.
	if day < 1 || !calendar.IsUnlocked(cfg, day, now) {
		s.logger.Info("Locked day requested, redirecting", "day", day, "current", calendar.CurrentDay(cfg, now))
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	securityHeaders(w)

	rec := content.Resolve(cfg, day)
	primary, secondary := content.Colors(day)

	const circumference = 251.2 // 2πr for the r=40 progress ring
	progress := content.Progress(cfg, day)
	dashOffset := circumference - circumference*float64(progress)/100

	data := map[string]any{
		"Record":      rec,
		"Day":         day,
		"TotalDays":   cfg.TotalDays,
		"IsBonus":     day > cfg.TotalDays,
		"Date":        formatDate(calendar.DateOfDay(cfg, day)),
		"Primary":     primary,
		"Secondary":   secondary,
		"ImageURL":    "/media/" + content.ImagePath(day),
		"VideoURL":    "/media/" + content.VideoPath(day),
		"PosterURL":   "/media/" + content.ImagePath(day),
		"Progress":    progress,
		"DashOffset":  fmt.Sprintf("%.1f", dashOffset),
		"DaysToGo":    cfg.TotalDays - day,
		"NextPreview": content.NextPreview(cfg, day),
		"HasPrev":     day > 1,
		"HasNext":     day < cfg.TotalDays && calendar.IsUnlocked(cfg, day+1, now),
		"PrevURL":     dayURL(day - 1),
		"NextURL":     dayURL(day + 1),
	}

	if err := templates.ExecuteTemplate(w, "day.tmpl", data); err != nil {
		s.logger.Error("Failed to render template", "template", "day.tmpl", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	securityHeaders(w)

	data := map[string]any{
		"TotalDays":    s.cfg.TotalDays,
		"StartDate":    formatDate(s.cfg.StartDate),
		"BirthdayDate": formatDate(s.cfg.BirthdayDate),
	}
	if err := templates.ExecuteTemplate(w, "about.tmpl", data); err != nil {
		s.logger.Error("Failed to render template", "template", "about.tmpl", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, `{"status":"healthy"}`); err != nil {
		s.logger.Warn("Failed to write health response", "error", err)
	}
}

// handleNotify triggers the daily notification batch. Exposed for external
// cron services; the in-process scheduler calls the dispatcher directly.
func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.logger.Info("Notify endpoint triggered")

	if err := s.notifier.Run(r.Context(), time.Now()); err != nil {
		s.logger.Error("Notification batch failed", "error", err)
		http.Error(w, "Batch failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, `{"status":"completed"}`); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}

// mediaHandler serves day media: the override store wins, then the bundled
// file, then the placeholder. A missing file is never an error page.
func (s *Server) mediaHandler(mediaFS fsReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		rel := strings.TrimPrefix(path.Clean(r.URL.Path), "/media/")
		if strings.Contains(rel, "..") || (!strings.HasPrefix(rel, "images/") && !strings.HasPrefix(rel, "videos/")) {
			http.NotFound(w, r)
			return
		}

		ext := strings.TrimPrefix(path.Ext(rel), ".")
		if ext != "jpg" && ext != "mp4" {
			http.NotFound(w, r)
			return
		}

		if day, ok := dayFromMediaName(rel); ok {
			if data, err := s.media.Open(r.Context(), day, ext); err == nil {
				writeMedia(w, ext, data)
				return
			} else if !s.isNoOverride(err) {
				s.logger.Warn("Media override lookup failed", "path", rel, "error", err)
			}
		}

		if data, err := mediaFS.ReadFile("media/" + rel); err == nil {
			writeMedia(w, ext, data)
			return
		}

		fallback := content.FallbackImage
		if ext == "mp4" {
			fallback = content.FallbackVideo
		}
		data, err := mediaFS.ReadFile("media/" + fallback)
		if err != nil {
			s.logger.Error("Placeholder media missing", "path", fallback, "error", err)
			http.NotFound(w, r)
			return
		}
		writeMedia(w, ext, data)
	}
}

// fsReader is the slice of embed.FS the media handler needs.
type fsReader interface {
	ReadFile(name string) ([]byte, error)
}

func writeMedia(w http.ResponseWriter, ext string, data []byte) {
	contentType := "image/jpeg"
	if ext == "mp4" {
		contentType = "video/mp4"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := w.Write(data); err != nil {
		// Client went away mid-transfer; nothing to do.
		return
	}
}

// dayFromMediaName extracts the day index from names like "images/day-7.jpg".
func dayFromMediaName(rel string) (int, bool) {
	base := path.Base(rel)
	base = strings.TrimSuffix(base, path.Ext(base))
	numeric, ok := strings.CutPrefix(base, "day-")
	if !ok {
		return 0, false
	}
	day, err := strconv.Atoi(numeric)
	if err != nil || day < 1 {
		return 0, false
	}
	return day, true
}

// handleMediaUpload stores a day-keyed media override (POST) or lists the
// stored overrides (GET). Gated by the admin token; oversized or unknown
// uploads are rejected before touching storage.
func (s *Server) handleMediaUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ip := clientIP(r)
	if !uploadRateLimiter.allow(ip) {
		s.logger.Warn("Rate limit exceeded", "ip", ip)
		http.Error(w, "Too many requests. Please try again later.", http.StatusTooManyRequests)
		return
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if s.adminToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if r.Method == http.MethodGet {
		s.handleMediaList(w, r)
		return
	}

	day, err := strconv.Atoi(r.URL.Query().Get("day"))
	if err != nil || day < 1 || day > s.cfg.TotalDays+1 {
		http.Error(w, "Invalid day index", http.StatusBadRequest)
		return
	}

	ext := "jpg"
	if kind := r.URL.Query().Get("kind"); kind == "video" {
		ext = "mp4"
	} else if kind != "" && kind != "image" {
		http.Error(w, "Invalid media kind", http.StatusBadRequest)
		return
	}

	const maxUpload = 20 << 20
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUpload))
	if err != nil {
		http.Error(w, "Upload too large or unreadable", http.StatusBadRequest)
		return
	}
	if len(data) == 0 {
		http.Error(w, "Empty upload", http.StatusBadRequest)
		return
	}

	if err := s.media.Put(r.Context(), day, ext, data); err != nil {
		s.logger.Error("Failed to store media override", "day", day, "ext", ext, "error", err)
		http.Error(w, "Failed to store media", http.StatusInternalServerError)
		return
	}

	s.logger.Info("Media override uploaded", "day", day, "ext", ext, "bytes", len(data), "ip", ip)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprintf(w, `{"status":"stored","day":%d}`, day); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}

// handleMediaList reports which day overrides are stored. Reached through
// GET /admin/media after the token check.
func (s *Server) handleMediaList(w http.ResponseWriter, r *http.Request) {
	keys, err := s.media.List(r.Context())
	if err != nil {
		s.logger.Error("Failed to list media overrides", "error", err)
		http.Error(w, "Failed to list media", http.StatusInternalServerError)
		return
	}
	if keys == nil {
		keys = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]any{"overrides": keys}); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}
