// README: Live Gemini check; runs only when GEMINI_API_KEY is set (a .env up the tree is honoured).
package ai

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joho/godotenv"

	"nile/internal/planner"
)

func TestGeminiProviderLive(t *testing.T) {
	loadDotEnv(t)
	key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if key == "" {
		t.Skip("GEMINI_API_KEY not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	p, err := NewGeminiProvider(ctx, key, os.Getenv("NILE_GEMINI_MODEL"))
	if err != nil {
		t.Fatalf("NewGeminiProvider: %v", err)
	}
	t.Cleanup(p.Close)

	resp, err := p.Plan(ctx, PlanInput{
		Message: "Please create a day-by-day itinerary for one day in Cairo.",
		UserContext: map[string]any{
			"interests":           []string{"Ancient history"},
			"accessibility_needs": []string{"wheelchair"},
		},
		Now: time.Now(),
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	t.Logf("[TEST LOG] Gemini mode=%s message=%q", resp.Mode, resp.Message)
	if resp.Mode != planner.ModeItinerary || !resp.HasItinerary() {
		t.Fatalf("expected itinerary mode, got %s", resp.Mode)
	}
	if len(resp.Itinerary.DailyPlans) == 0 || len(resp.Itinerary.DailyPlans[0].Activities) == 0 {
		t.Fatalf("expected at least one activity, got %+v", resp.Itinerary)
	}
}

// loadDotEnv walks up from the package dir to find a .env; existing env vars win.
func loadDotEnv(t *testing.T) {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for i := 0; i < 8; i++ {
		candidate := filepath.Join(dir, ".env")
		if _, err := os.Stat(candidate); err == nil {
			_ = godotenv.Load(candidate)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}
