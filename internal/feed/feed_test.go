package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"media-toolkit/internal/pipeline"
)

func dial(t *testing.T, srv *httptest.Server, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	return websocket.DefaultDialer.Dial(url, header)
}

func waitForCount(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Count() != want {
		if time.Now().After(deadline) {
			t.Fatalf("Count() = %d, want %d", h.Count(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubBroadcastsFinishedJobs(t *testing.T) {
	hub := NewHub([]string{"*"})
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	conns := make([]*websocket.Conn, 2)
	for i := range conns {
		conn, _, err := dial(t, srv, nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		defer conn.Close()
		conns[i] = conn
	}
	waitForCount(t, hub, 2)

	hub.JobFinished(context.Background(), pipeline.Record{
		ID:       "job-1",
		Status:   pipeline.StatusSuccess,
		Filename: "My Video.mp4",
	})

	for i, conn := range conns {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var got pipeline.Record
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatalf("subscriber %d: ReadJSON: %v", i, err)
		}
		if got.ID != "job-1" || got.Status != pipeline.StatusSuccess || got.Filename != "My Video.mp4" {
			t.Errorf("subscriber %d got %+v", i, got)
		}
	}
}

func TestHubUnregistersOnDisconnect(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn, _, err := dial(t, srv, nil)
	if err != nil {
		t.Fatal(err)
	}
	waitForCount(t, hub, 1)

	_ = conn.Close()
	waitForCount(t, hub, 0)
}

func TestHubCloseDisconnectsSubscribers(t *testing.T) {
	hub := NewHub([]string{"*"})
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn, _, err := dial(t, srv, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	waitForCount(t, hub, 1)

	hub.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("ReadMessage() error = %v, want normal closure", err)
	}
	if hub.Count() != 0 {
		t.Errorf("Count() = %d after Close", hub.Count())
	}

	// late subscribers are turned away
	late, _, err := dial(t, srv, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer late.Close()
	_ = late.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := late.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("late subscriber error = %v, want going away", err)
	}
}

func TestHubOriginCheck(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		wantOK  bool
	}{
		{"Any origin", []string{"*"}, "http://elsewhere.example", true},
		{"Listed origin", []string{"http://ui.example/"}, "http://ui.example", true},
		{"Unlisted origin", []string{"http://ui.example"}, "http://evil.example", false},
		{"No origin header", []string{"http://ui.example"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := NewHub(tt.origins)
			srv := httptest.NewServer(hub)
			defer srv.Close()
			defer hub.Close()

			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := dial(t, srv, header)
			if tt.wantOK {
				if err != nil {
					t.Fatalf("dial: %v", err)
				}
				_ = conn.Close()
				return
			}
			if err == nil {
				_ = conn.Close()
				t.Fatal("expected the handshake to be rejected")
			}
			if resp == nil || resp.StatusCode != http.StatusForbidden {
				t.Errorf("response = %v, want 403", resp)
			}
		})
	}
}

func TestHubAcceptsSameHostWithoutOrigins(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	conn, _, err := dial(t, srv, http.Header{"Origin": {srv.URL}})
	if err != nil {
		t.Fatalf("dial from the serving host: %v", err)
	}
	_ = conn.Close()

	if _, resp, err := dial(t, srv, http.Header{"Origin": {"http://evil.example"}}); err == nil {
		t.Error("foreign origin accepted with no allowed origins")
	} else if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v, want 403", resp)
	}
}

func TestHubPlainRequestRejected(t *testing.T) {
	hub := NewHub([]string{"*"})
	w := httptest.NewRecorder()
	hub.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs/feed", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for a non-websocket request", w.Code)
	}
	if hub.Count() != 0 {
		t.Error("plain request should not register a subscriber")
	}
}
