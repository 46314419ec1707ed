// README: Smoke checks for the nile API: infra reachability, auth guards, planner and session flows, load.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	statusPass = "PASS"
	statusFail = "FAIL"
	statusSkip = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 30 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency.Round(time.Millisecond))
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	return []TestCase{
		{
			Name: "Env: Postgres connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: statusSkip, Note: "db not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name: "Env: Redis connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: statusSkip, Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				return Result{Status: statusPass}
			},
		},
		{
			Name: "Migration: apply (optional)",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.ApplyMigration {
					return Result{Status: statusSkip, Note: "apply-migration=false"}
				}
				if r.db == nil {
					return Result{Status: statusFail, Note: "db not configured"}
				}
				files, err := migrationFiles(r.cfg.MigrationGlob)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				for _, f := range files {
					sql, err := os.ReadFile(f)
					if err != nil {
						return Result{Status: statusFail, Note: err.Error()}
					}
					for _, s := range splitSQL(string(sql)) {
						if _, err := r.db.Exec(ctx, s); err != nil {
							return Result{Status: statusFail, Note: fmt.Sprintf("%s: %v", filepath.Base(f), err)}
						}
					}
				}
				return Result{Status: statusPass, Note: fmt.Sprintf("files=%d", len(files))}
			},
		},
		{
			Name: "Migration: tables exist",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: statusSkip, Note: "db not configured"}
				}
				tables, err := extractTables(r.cfg.MigrationGlob)
				if err != nil {
					return Result{Status: statusFail, Note: err.Error()}
				}
				for _, t := range tables {
					var exists bool
					err := r.db.QueryRow(ctx,
						"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
						t,
					).Scan(&exists)
					if err != nil {
						return Result{Status: statusFail, Note: err.Error()}
					}
					if !exists {
						return Result{Status: statusFail, Note: "missing table: " + t}
					}
				}
				return Result{Status: statusPass, Note: strings.Join(tables, ",")}
			},
		},

		httpCase("API: health", http.MethodGet, base+"/health", nil, "", http.StatusOK),
		httpCase("API: metrics exposed", http.MethodGet, base+"/metrics", nil, "", http.StatusOK),

		// Auth guards
		httpCase("Auth: session create without token -> 401", http.MethodPost, base+"/api/sessions", map[string]any{}, "", http.StatusUnauthorized),
		httpCase("Auth: itinerary list without token -> 401", http.MethodGet, base+"/itineraries", nil, "", http.StatusUnauthorized),

		// Planner backend
		httpCase("Planner: chat turn", http.MethodPost, base+"/planner/message", map[string]any{
			"message": "Hello, I am thinking about visiting Luxor",
		}, "", http.StatusOK),
		httpCase("Planner: empty message -> 400", http.MethodPost, base+"/planner/message", map[string]any{
			"message": "  ",
		}, "", http.StatusBadRequest),
		httpCase("Planner: itinerary request", http.MethodPost, base+"/planner/message", map[string]any{
			"message":      "Please create a day-by-day itinerary for 2 days in Cairo",
			"user_context": map[string]any{"interests": []string{"Ancient history"}, "accessibility_needs": []string{"wheelchair"}},
		}, "", http.StatusOK),

		// Sessions
		{
			Name: "Session: chat to confirmed itinerary",
			Run: func(ctx context.Context, r *Runner) Result {
				return sessionFlow(ctx, r)
			},
		},
		{
			Name: "Session: unknown id -> 404",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.cfg.Token == "" {
					return Result{Status: statusSkip, Note: "no token"}
				}
				return httpCase("", http.MethodGet, base+"/api/sessions/does-not-exist", nil, r.cfg.Token, http.StatusNotFound).Run(ctx, r)
			},
		},
		{
			Name: "Concurrency: parallel session creates",
			Run: func(ctx context.Context, r *Runner) Result {
				return concurrentCreate(ctx, r)
			},
		},

		// Performance
		{
			Name: "Perf: planner chat throughput",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, base+"/planner/message", map[string]any{
					"message": "What is the best time to visit Aswan?",
				})
			},
		},
	}
}

func httpCase(name, method, url string, body any, token string, want int) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			start := time.Now()
			status, _, err := r.call(ctx, method, url, body, token)
			if err != nil {
				return Result{Status: statusFail, Note: err.Error()}
			}
			latency := time.Since(start)
			note := fmt.Sprintf("status=%d", status)
			if status == want {
				return Result{Status: statusPass, Latency: latency, Note: note}
			}
			return Result{Status: statusFail, Latency: latency, Note: note}
		},
	}
}

func (r *Runner) call(ctx context.Context, method, url string, body any, token string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	return resp.StatusCode, data, err
}

type sessionView struct {
	ID          string `json:"id"`
	Phase       string `json:"phase"`
	Composing   bool   `json:"composing"`
	Saving      bool   `json:"saving"`
	RevealCount int    `json:"reveal_count"`
	ItineraryID string `json:"itinerary_id"`
	LastError   string `json:"last_error"`
	Items       []struct {
		ID string `json:"id"`
	} `json:"items"`
}

// sessionFlow drives one session from a chat request to a saved itinerary.
func sessionFlow(ctx context.Context, r *Runner) Result {
	if r.cfg.Token == "" {
		return Result{Status: statusSkip, Note: "no token"}
	}
	base := r.cfg.BaseURL + "/api/sessions"
	start := time.Now()

	var s sessionView
	if err := r.sessionCall(ctx, http.MethodPost, base, map[string]any{}, http.StatusCreated, &s); err != nil {
		return Result{Status: statusFail, Note: "create: " + err.Error()}
	}
	defer func() {
		_, _, _ = r.call(context.WithoutCancel(ctx), http.MethodDelete, base+"/"+s.ID, nil, r.cfg.Token)
	}()

	msg := map[string]any{"text": "Please create a day-by-day itinerary for one day in Cairo"}
	if err := r.sessionCall(ctx, http.MethodPost, base+"/"+s.ID+"/messages", msg, http.StatusOK, nil); err != nil {
		return Result{Status: statusFail, Note: "send: " + err.Error()}
	}
	s, err := r.waitSession(ctx, s.ID, func(v sessionView) bool {
		return !v.Composing && v.Phase != "generating" && v.RevealCount >= len(v.Items)
	})
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if s.Phase != "review" || len(s.Items) == 0 {
		return Result{Status: statusFail, Note: fmt.Sprintf("phase=%s items=%d %s", s.Phase, len(s.Items), s.LastError)}
	}

	accept := map[string]any{"accepted": true}
	if err := r.sessionCall(ctx, http.MethodPut, base+"/"+s.ID+"/items/"+s.Items[0].ID, accept, http.StatusOK, nil); err != nil {
		return Result{Status: statusFail, Note: "accept: " + err.Error()}
	}
	if err := r.sessionCall(ctx, http.MethodPost, base+"/"+s.ID+"/confirm", nil, http.StatusAccepted, nil); err != nil {
		return Result{Status: statusFail, Note: "confirm: " + err.Error()}
	}
	s, err = r.waitSession(ctx, s.ID, func(v sessionView) bool { return !v.Saving })
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if s.Phase != "confirmed" {
		return Result{Status: statusFail, Note: fmt.Sprintf("phase=%s %s", s.Phase, s.LastError)}
	}
	return Result{Status: statusPass, Latency: time.Since(start), Note: "itinerary=" + s.ItineraryID}
}

func (r *Runner) sessionCall(ctx context.Context, method, url string, body any, want int, out *sessionView) error {
	status, data, err := r.call(ctx, method, url, body, r.cfg.Token)
	if err != nil {
		return err
	}
	if status != want {
		return fmt.Errorf("status=%d body=%s", status, strings.TrimSpace(string(data)))
	}
	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}

func (r *Runner) waitSession(ctx context.Context, id string, done func(sessionView) bool) (sessionView, error) {
	url := r.cfg.BaseURL + "/api/sessions/" + id
	for {
		var v sessionView
		if err := r.sessionCall(ctx, http.MethodGet, url, nil, http.StatusOK, &v); err != nil {
			return v, err
		}
		if done(v) {
			return v, nil
		}
		select {
		case <-ctx.Done():
			return v, ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func concurrentCreate(ctx context.Context, r *Runner) Result {
	if r.cfg.Token == "" {
		return Result{Status: statusSkip, Note: "no token"}
	}
	url := r.cfg.BaseURL + "/api/sessions"
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ids  = make(map[string]bool)
		errs int
	)
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var s sessionView
			err := r.sessionCall(ctx, http.MethodPost, url, map[string]any{}, http.StatusCreated, &s)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs++
				return
			}
			ids[s.ID] = true
		}()
	}
	wg.Wait()
	for id := range ids {
		_, _, _ = r.call(ctx, http.MethodDelete, url+"/"+id, nil, r.cfg.Token)
	}

	note := fmt.Sprintf("created=%d errors=%d", len(ids), errs)
	if errs > 0 || len(ids) != r.cfg.Concurrency {
		return Result{Status: statusFail, Note: note}
	}
	return Result{Status: statusPass, Note: note}
}

func perfLoad(ctx context.Context, r *Runner, url string, payload any) Result {
	end := time.Now().Add(r.cfg.Duration)
	var (
		count    int64
		errCount int64
		mu       sync.Mutex
		wg       sync.WaitGroup
	)
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				status, _, err := r.call(ctx, http.MethodPost, url, payload, "")
				mu.Lock()
				if err != nil || status != http.StatusOK {
					errCount++
				} else {
					count++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: statusFail, Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: statusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

func migrationFiles(glob string) ([]string, error) {
	files, err := filepath.Glob(glob)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no migrations match %s", glob)
	}
	sort.Strings(files)
	return files, nil
}

var createTableRe = regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)

func extractTables(glob string) ([]string, error) {
	files, err := migrationFiles(glob)
	if err != nil {
		return nil, err
	}
	var tables []string
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		for _, m := range createTableRe.FindAllStringSubmatch(string(b), -1) {
			tables = append(tables, m[1])
		}
	}
	return tables, nil
}

func splitSQL(sql string) []string {
	lines := strings.Split(sql, "\n")
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, "--") || l == "" {
			continue
		}
		filtered = append(filtered, line)
	}
	parts := strings.Split(strings.Join(filtered, "\n"), ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
