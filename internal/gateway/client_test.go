package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nile/internal/modules/itinerary"
)

func TestSavePostsAcceptedItems(t *testing.T) {
	var got SaveRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/itineraries" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"it_1"}`))
	}))
	defer srv.Close()

	ctx := WithCaller(context.Background(), Caller{UID: "u1", Token: "tok"})
	ack, err := NewClient(srv.URL, time.Second).Save(ctx, SaveRequest{
		Itinerary:      Payload{Items: []itinerary.Item{{ID: "act_2", Title: "Luxor Temple", Accepted: true}}},
		ConversationID: "conv",
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if ack.ID != "it_1" {
		t.Errorf("ack id = %q", ack.ID)
	}
	if auth != "Bearer tok" {
		t.Errorf("auth header = %q", auth)
	}
	if got.ConversationID != "conv" || len(got.Itinerary.Items) != 1 || got.Itinerary.Items[0].ID != "act_2" {
		t.Errorf("unexpected body: %+v", got)
	}
}

func TestSaveEmptyAckBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, time.Second).Save(context.Background(), SaveRequest{}); err != nil {
		t.Fatalf("2xx without body should be an ack, got %v", err)
	}
}

func TestSaveRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "db down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Save(context.Background(), SaveRequest{})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

type stubSaver struct {
	got itinerary.SaveCommand
	err error
}

func (s *stubSaver) Save(_ context.Context, cmd itinerary.SaveCommand) (*itinerary.Itinerary, error) {
	s.got = cmd
	if s.err != nil {
		return nil, s.err
	}
	return &itinerary.Itinerary{ID: "it_local", Items: cmd.Items}, nil
}

func TestLocalGatewayPassesCaller(t *testing.T) {
	saver := &stubSaver{}
	ctx := WithCaller(context.Background(), Caller{UID: "u42"})
	ack, err := NewLocal(saver).Save(ctx, SaveRequest{
		ConversationID: "c1",
		Itinerary:      Payload{Items: []itinerary.Item{{ID: "act_1"}}},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if ack.ID != "it_local" || saver.got.UserID != "u42" || saver.got.ConversationID != "c1" {
		t.Errorf("ack=%+v cmd=%+v", ack, saver.got)
	}

	saver.err = errors.New("constraint violation")
	if _, err := NewLocal(saver).Save(ctx, SaveRequest{}); !errors.Is(err, ErrRejected) {
		t.Errorf("expected ErrRejected, got %v", err)
	}
}
