package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hammamikhairi/vocalpal/internal/conversation"
	"github.com/hammamikhairi/vocalpal/internal/domain"
	"github.com/hammamikhairi/vocalpal/internal/logger"
	"github.com/hammamikhairi/vocalpal/internal/loop"
	"github.com/hammamikhairi/vocalpal/internal/session"
	"github.com/hammamikhairi/vocalpal/internal/speech"
	"github.com/hammamikhairi/vocalpal/internal/storage"
)

// stateView is the subset of the state JSON the tests look at.
type stateView struct {
	Mood      string `json:"mood"`
	Bubble    string `json:"bubble"`
	Stars     int    `json:"stars"`
	XP        int    `json:"xp"`
	Theme     string `json:"theme"`
	Listening bool   `json:"listening"`
}

type shopView struct {
	Stars int `json:"stars"`
	Items []struct {
		ID       string `json:"id"`
		Type     string `json:"type"`
		Unlocked bool   `json:"unlocked"`
		Equipped bool   `json:"equipped"`
	} `json:"items"`
}

func setupServer(t *testing.T, seed *domain.ProgressUpdate) *httptest.Server {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	ctx, cancel := context.WithCancel(context.Background())

	store := storage.NewMemoryStore(log)
	if seed != nil {
		if err := store.Save(ctx, "kid", *seed); err != nil {
			t.Fatal(err)
		}
	}

	lp := loop.New(log)
	lp.Start(ctx)

	// No engines: the mic reports that recognition is unavailable.
	adapter := speech.NewAdapter(nil, nil, lp, log)

	var srv *Server
	ctrl := session.New("kid", "none", adapter, store, lp, log,
		session.WithObserver(func(st session.State) { srv.Publish(st) }),
	)
	srv = New(lp, ctrl, log)
	if err := ctrl.Start(ctx); err != nil {
		t.Fatal(err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
		_ = ctrl.Close(context.Background())
		lp.Stop()
		cancel()
	})
	return ts
}

func doJSON(t *testing.T, method, url, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestStateAndTranscript(t *testing.T) {
	ts := setupServer(t, nil)

	var st stateView
	if code := doJSON(t, http.MethodGet, ts.URL+"/api/state", "", &st); code != http.StatusOK {
		t.Fatalf("state status = %d", code)
	}
	if st.Mood != "wave" || st.Bubble != conversation.LineGreeting() {
		t.Fatalf("initial state = %+v", st)
	}

	code := doJSON(t, http.MethodPost, ts.URL+"/api/transcript", `{"text":"hello buddy"}`, &st)
	if code != http.StatusOK {
		t.Fatalf("transcript status = %d", code)
	}
	if st.XP != 5 || st.Stars != 1 || st.Mood != "speaking" {
		t.Fatalf("after greeting = %+v", st)
	}
	if st.Bubble != conversation.LineGreetingReply() {
		t.Fatalf("bubble = %q", st.Bubble)
	}
}

func TestTranscriptValidation(t *testing.T) {
	ts := setupServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"blank", `{"text":"   "}`},
		{"missing", `{}`},
		{"malformed", `{"text":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := doJSON(t, http.MethodPost, ts.URL+"/api/transcript", tt.body, nil); code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", code)
			}
		})
	}
}

func TestMicWithoutRecognizer(t *testing.T) {
	ts := setupServer(t, nil)

	var st stateView
	if code := doJSON(t, http.MethodPost, ts.URL+"/api/mic", "", &st); code != http.StatusOK {
		t.Fatalf("mic status = %d", code)
	}
	if st.Listening || st.Bubble != conversation.LineNoRecognition() {
		t.Fatalf("after mic = %+v", st)
	}
}

func TestShopEndpoints(t *testing.T) {
	seed := domain.CountersUpdate(0, 12, 1)
	ts := setupServer(t, &seed)

	var view shopView
	if code := doJSON(t, http.MethodGet, ts.URL+"/api/shop", "", &view); code != http.StatusOK {
		t.Fatalf("list status = %d", code)
	}
	if view.Stars != 12 || len(view.Items) != 5 {
		t.Fatalf("shop = %+v", view)
	}

	if code := doJSON(t, http.MethodPost, ts.URL+"/api/shop/beach/unlock", "", &view); code != http.StatusOK {
		t.Fatalf("unlock status = %d", code)
	}
	if view.Stars != 0 {
		t.Fatalf("stars after unlock = %d", view.Stars)
	}

	if code := doJSON(t, http.MethodPost, ts.URL+"/api/shop/beach/equip", "", &view); code != http.StatusOK {
		t.Fatalf("equip status = %d", code)
	}
	var st stateView
	doJSON(t, http.MethodGet, ts.URL+"/api/state", "", &st)
	if st.Theme != "beach" {
		t.Fatalf("theme = %q", st.Theme)
	}

	errorCases := []struct {
		path string
		want int
	}{
		{"/api/shop/tiger-hat/unlock", http.StatusConflict},   // no stars left
		{"/api/shop/beach/unlock", http.StatusConflict},       // owned
		{"/api/shop/jungle-tale-1/equip", http.StatusConflict}, // locked story
		{"/api/shop/rocket/unlock", http.StatusNotFound},
	}
	for _, tc := range errorCases {
		if code := doJSON(t, http.MethodPost, ts.URL+tc.path, "", nil); code != tc.want {
			t.Errorf("POST %s = %d, want %d", tc.path, code, tc.want)
		}
	}
}

func TestWebSocketFeed(t *testing.T) {
	ts := setupServer(t, nil)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var first stateView
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("first frame: %v", err)
	}

	if err := conn.WriteJSON(clientMessage{Type: "transcript", Text: "my dog"}); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var st stateView
		if err := conn.ReadJSON(&st); err != nil {
			t.Fatalf("waiting for dog reply: %v", err)
		}
		if st.Bubble == conversation.LineDogReply() {
			if st.XP != 5 || st.Stars != 1 {
				t.Fatalf("xp/stars = %d/%d", st.XP, st.Stars)
			}
			return
		}
	}
}

func TestShopStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrUnknownItem, http.StatusNotFound},
		{domain.ErrNotEnoughStars, http.StatusConflict},
		{domain.ErrNotEquippable, http.StatusConflict},
		{&domain.PersistenceError{Op: "load", Err: context.DeadlineExceeded}, http.StatusServiceUnavailable},
		{context.Canceled, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := shopStatus(tt.err); got != tt.want {
			t.Errorf("shopStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
