package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/edupulse/engine/internal/curriculum"
	"github.com/edupulse/engine/internal/engine"
	"github.com/edupulse/engine/internal/platform/cache"
	"github.com/edupulse/engine/internal/platform/config"
	"github.com/edupulse/engine/internal/platform/database"
	"github.com/edupulse/engine/internal/report"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := database.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store, err := engine.NewPostgresStore(db.Pool)
	if err != nil {
		slog.Error("failed to create store", "error", err)
		os.Exit(1)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		slog.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	checks := map[string]healthChecker{"database": db}

	var attendanceCache engine.AttendanceCache
	if cfg.Cache.Enabled {
		c, err := cache.Connect(ctx, cfg.Cache.URL)
		if err != nil {
			slog.Error("failed to connect to cache", "error", err)
			os.Exit(1)
		}
		defer c.Close()
		attendanceCache = engine.NewRedisAttendanceCache(c.Client)
		checks["cache"] = c
	}

	catalog, err := curriculum.NewLoader(cfg.CatalogDir)
	if err != nil {
		slog.Error("failed to load curricula", "error", err, "dir", cfg.CatalogDir)
		os.Exit(1)
	}
	slog.Info("curricula loaded", "count", len(catalog.All()), "dir", cfg.CatalogDir)

	eng := engine.New(engine.Config{
		Store:           store,
		Catalog:         catalog,
		Events:          engine.NewPostgresEventLogger(db.Pool),
		AttendanceCache: attendanceCache,
	})

	srv := &server{
		engine:  eng,
		catalog: catalog,
		checks:  checks,
		now:     time.Now,
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      newMux(srv),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// catalogReader is the slice of curriculum.Loader the handlers use.
type catalogReader interface {
	Get(class, subject string) (curriculum.Curriculum, bool)
	All() []curriculum.Curriculum
}

type server struct {
	engine  *engine.Engine
	catalog catalogReader
	checks  map[string]healthChecker
	now     func() time.Time
}

// newMux creates the HTTP router.
func newMux(s *server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.HandleFunc("GET /api/daily", s.handleDaily)
	mux.HandleFunc("GET /api/week", s.handleWeek)
	mux.HandleFunc("GET /api/progress", s.handleProgress)
	mux.HandleFunc("GET /api/attendance", s.handleAttendance)
	mux.HandleFunc("POST /api/complete", s.handleComplete)
	mux.HandleFunc("GET /api/report.xlsx", s.handleReport)
	return mux
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	for name, c := range s.checks {
		if err := c.HealthCheck(r.Context()); err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"check":  name,
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *server) handleDaily(w http.ResponseWriter, r *http.Request) {
	teacher, class, subject, ok := scheduleParams(w, r)
	if !ok {
		return
	}
	day, err := queryDate(r, s.now)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.engine.DailyActivity(r.Context(), teacher, class, subject, day)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleWeek(w http.ResponseWriter, r *http.Request) {
	teacher, class, subject, ok := scheduleParams(w, r)
	if !ok {
		return
	}
	day, err := queryDate(r, s.now)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	slots, err := s.engine.WeeklySchedule(r.Context(), teacher, class, subject, day)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": slots})
}

func (s *server) handleProgress(w http.ResponseWriter, r *http.Request) {
	teacher, class, subject, ok := scheduleParams(w, r)
	if !ok {
		return
	}

	rec, err := s.engine.GetOrInit(r.Context(), teacher, class, subject)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *server) handleAttendance(w http.ResponseWriter, r *http.Request) {
	teacher := r.URL.Query().Get("teacher")
	if teacher == "" {
		writeError(w, http.StatusBadRequest, errors.New("teacher is required"))
		return
	}
	day, err := queryDate(r, s.now)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	summary, err := s.engine.MonthlyAttendance(r.Context(), teacher, day)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type completeRequest struct {
	Teacher    string `json:"teacher"`
	Class      string `json:"class"`
	Subject    string `json:"subject"`
	ActivityID string `json:"activity_id"`
}

func (s *server) handleComplete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Teacher == "" || req.Class == "" || req.Subject == "" || req.ActivityID == "" {
		writeError(w, http.StatusBadRequest, errors.New("teacher, class, subject and activity_id are required"))
		return
	}

	done, err := s.engine.MarkCompleted(r.Context(), req.Teacher, req.Class, req.Subject, req.ActivityID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"completed": done})
}

func (s *server) handleReport(w http.ResponseWriter, r *http.Request) {
	teacher := r.URL.Query().Get("teacher")
	if teacher == "" {
		writeError(w, http.StatusBadRequest, errors.New("teacher is required"))
		return
	}
	day, err := queryDate(r, s.now)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	attendance, err := s.engine.MonthlyAttendance(r.Context(), teacher, day)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	rep := report.Monthly{Teacher: teacher, Attendance: attendance}
	for _, cur := range s.catalog.All() {
		rec, err := s.engine.GetOrInit(r.Context(), teacher, cur.Class, cur.Subject)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		rep.Progress = append(rep.Progress, *rec)
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", reportFilename(teacher, day)))
	if err := report.WriteXLSX(w, rep); err != nil {
		slog.Error("report export failed", "teacher", teacher, "error", err)
	}
}

func reportFilename(teacher string, day time.Time) string {
	return fmt.Sprintf("edupulse-%s-%s.xlsx", teacher, day.Format("2006-01"))
}

// scheduleParams extracts the (teacher, class, subject) triple every
// scheduling endpoint requires, writing a 400 when any is missing.
func scheduleParams(w http.ResponseWriter, r *http.Request) (teacher, class, subject string, ok bool) {
	q := r.URL.Query()
	teacher, class, subject = q.Get("teacher"), q.Get("class"), q.Get("subject")
	if teacher == "" || class == "" || subject == "" {
		writeError(w, http.StatusBadRequest, errors.New("teacher, class and subject are required"))
		return "", "", "", false
	}
	return teacher, class, subject, true
}

// queryDate parses an optional date query parameter, defaulting to today.
func queryDate(r *http.Request, now func() time.Time) (time.Time, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return now(), nil
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", raw)
	}
	return day, nil
}

func writeEngineError(w http.ResponseWriter, err error) {
	if errors.Is(err, engine.ErrMissingDate) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	slog.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, errors.New("internal error"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encoding failed", "error", err)
	}
}
