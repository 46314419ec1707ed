package planner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClientSendRoundTrip(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/planner/message" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"conversation_id":"c1","mode":"chat","message":"Where to?","suggestions":["Luxor"]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	resp, err := c.Send(context.Background(), Request{Message: "hi", UserContext: map[string]any{"budget": "mid"}})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.Message != "hi" || got.ConversationID != "" || got.UserContext["budget"] != "mid" {
		t.Errorf("unexpected request body: %+v", got)
	}
	if resp.ConversationID != "c1" || resp.Mode != ModeChat || len(resp.Suggestions) != 1 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestClientOmitsEmptyConversationID(t *testing.T) {
	body, _ := json.Marshal(Request{Message: "hi"})
	if strings.Contains(string(body), "conversation_id") || strings.Contains(string(body), "user_context") {
		t.Errorf("optional fields should be omitted: %s", body)
	}
}

func TestClientErrors(t *testing.T) {
	cases := []struct {
		name          string
		status        int
		body          string
		wantTransport bool
		wantMalformed bool
	}{
		{"server error", http.StatusBadGateway, `upstream down`, true, false},
		{"not json", http.StatusOK, `<html>`, false, true},
		{"missing mode", http.StatusOK, `{"message":"hi"}`, false, true},
		{"unknown mode", http.StatusOK, `{"mode":"poem","message":"hi"}`, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second).Send(context.Background(), Request{Message: "x"})
			if err == nil {
				t.Fatal("expected error")
			}
			if IsTransport(err) != tc.wantTransport || IsMalformed(err) != tc.wantMalformed {
				t.Errorf("classification wrong for %v: transport=%v malformed=%v", err, IsTransport(err), IsMalformed(err))
			}
		})
	}
}

func TestClientNetworkFailureIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, 200*time.Millisecond).Send(context.Background(), Request{Message: "x"})
	if !IsTransport(err) {
		t.Errorf("expected transport error, got %v", err)
	}
}

func TestDecodeItinerary(t *testing.T) {
	body := `{"conversation_id":"c","mode":"itinerary","message":"Here you go","itinerary":{"daily_plans":[
		{"day":1,"date":"2026-11-02","title":"Cairo","activities":[{"title":"Giza","location_name":"Giza Plateau","start_time":"08:00","end_time":"11:00","estimated_cost_min":20,"estimated_cost_max":40,"tags":["history"],"category":"sightseeing","best_time_reason":"Beat the heat"}]}]}}`
	resp, err := DecodeResponse([]byte(body))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.HasItinerary() {
		t.Fatal("expected itinerary")
	}
	act := resp.Itinerary.DailyPlans[0].Activities[0]
	if act.LocationName != "Giza Plateau" || act.EstimatedCostMax != 40 || act.BestTimeReason != "Beat the heat" {
		t.Errorf("activity = %+v", act)
	}
}
