package speech

import (
	"context"
	"encoding/binary"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/vocalpal/internal/logger"
)

// testWAV builds a minimal RIFF/WAVE buffer around pcm.
func testWAV(pcm []byte) []byte {
	buf := make([]byte, 0, 44+len(pcm))
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(36+len(pcm)))
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1) // PCM
	buf = binary.LittleEndian.AppendUint16(buf, ChannelCount)
	buf = binary.LittleEndian.AppendUint32(buf, SampleRate)
	buf = binary.LittleEndian.AppendUint32(buf, SampleRate*ChannelCount*BitDepth/8)
	buf = binary.LittleEndian.AppendUint16(buf, ChannelCount*BitDepth/8)
	buf = binary.LittleEndian.AppendUint16(buf, BitDepth)
	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(pcm)))
	return append(buf, pcm...)
}

type recordingPlayer struct {
	mu      sync.Mutex
	volumes []float64
}

func (p *recordingPlayer) Play(ctx context.Context, wav []byte, volume float64) error {
	p.mu.Lock()
	p.volumes = append(p.volumes, volume)
	p.mu.Unlock()
	return ctx.Err()
}

func newTTSServer(t *testing.T, bodies *[]string) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Ocp-Apim-Subscription-Key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		*bodies = append(*bodies, string(b))
		mu.Unlock()
		w.Write(testWAV([]byte{1, 2, 3, 4}))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAzureSynthesizerCachesByRate(t *testing.T) {
	var bodies []string
	srv := newTTSServer(t, &bodies)
	log := logger.New(logger.LevelOff, nil)

	client := NewAzureClient("test-key", "westeurope", log, WithEndpoint(srv.URL))
	player := &recordingPlayer{}
	synth := NewAzureSynthesizer(client, player, log)

	ctx := context.Background()
	for _, u := range []Utterance{
		{Text: "Hi there!", Rate: 0.9, Volume: 0.2},
		{Text: "Hi there!", Rate: 0.9, Volume: 0.2},
		{Text: "Hi there!", Rate: 1.1, Volume: 0.4},
	} {
		if err := synth.Speak(ctx, u); err != nil {
			t.Fatalf("Speak(%+v): %v", u, err)
		}
	}

	if len(bodies) != 2 {
		t.Fatalf("tts requests = %d, want 2 (second call cached)", len(bodies))
	}
	if !strings.Contains(bodies[0], "rate='-10%'") || !strings.Contains(bodies[1], "rate='+10%'") {
		t.Fatalf("unexpected prosody in %q / %q", bodies[0], bodies[1])
	}
	if len(player.volumes) != 3 || player.volumes[2] != 0.4 {
		t.Fatalf("volumes = %v", player.volumes)
	}
}

func TestAzureClientErrorStatus(t *testing.T) {
	var bodies []string
	srv := newTTSServer(t, &bodies)
	log := logger.New(logger.LevelOff, nil)

	client := NewAzureClient("wrong-key", "westeurope", log, WithEndpoint(srv.URL))
	if _, err := client.Synthesize(context.Background(), "hi", 1, ""); err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestBuildSSMLEscapesText(t *testing.T) {
	c := NewAzureClient("k", "r", logger.New(logger.LevelOff, nil))
	ssml := c.buildSSML("cats & <dogs>", 1.0, "")
	if !strings.Contains(ssml, "cats &amp; &lt;dogs&gt;") {
		t.Fatalf("text not escaped: %s", ssml)
	}
	if !strings.Contains(ssml, "xml:lang='en-US'") || !strings.Contains(ssml, "rate='+0%'") {
		t.Fatalf("unexpected ssml: %s", ssml)
	}
}

func TestProsodyRate(t *testing.T) {
	tests := map[float64]string{0.9: "-10%", 1.0: "+0%", 1.1: "+10%", 0: "+0%", 1.25: "+25%"}
	for rate, want := range tests {
		if got := prosodyRate(rate); got != want {
			t.Errorf("prosodyRate(%v) = %q, want %q", rate, got, want)
		}
	}
}

func TestAudioCacheDiskLayer(t *testing.T) {
	dir := t.TempDir()
	log := logger.New(logger.LevelOff, nil)

	first := NewAudioCache("voice", dir, true, log)
	first.Put(1.0, "hello", []byte("audio"))

	// A fresh cache reads what the first one persisted.
	second := NewAudioCache("voice", dir, false, log)
	got, ok := second.Get(1.0, "hello")
	if !ok || string(got) != "audio" {
		t.Fatalf("disk lookup = %q, %v", got, ok)
	}
	if _, ok := second.Get(1.1, "hello"); ok {
		t.Fatal("different rate should miss")
	}
	if _, ok := NewAudioCache("other-voice", dir, false, log).Get(1.0, "hello"); ok {
		t.Fatal("different voice should miss")
	}
	hits, misses := second.Stats()
	if hits != 1 || misses != 1 {
		t.Fatalf("stats = %d/%d, want 1/1", hits, misses)
	}
}

func TestExtractPCM(t *testing.T) {
	pcm, err := extractPCM(testWAV([]byte{9, 8, 7, 6}))
	if err != nil {
		t.Fatal(err)
	}
	if len(pcm) != 4 || pcm[0] != 9 {
		t.Fatalf("pcm = %v", pcm)
	}
	if _, err := extractPCM([]byte("short")); err == nil {
		t.Fatal("expected error for short input")
	}
	bad := testWAV([]byte{1, 2})
	copy(bad[0:4], "JUNK")
	if _, err := extractPCM(bad); err == nil {
		t.Fatal("expected error for non-RIFF input")
	}
}

func TestCleanTranscription(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  hello buddy \n", "hello buddy"},
		{"[BLANK_AUDIO]", ""},
		{"I have a dog (dog barking)", "I have a dog"},
		{"[00:00:00.000 --> 00:00:02.000]  hi there", "hi there"},
		{"Thank you.", ""},
		{"you", ""},
		{"(music) [laughter]", ""},
	}
	for _, tt := range tests {
		if got := cleanTranscription(tt.in); got != tt.want {
			t.Errorf("cleanTranscription(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAwaitTranscript(t *testing.T) {
	results := make(chan string, 1)
	results <- "my dog"
	if text, ok := awaitTranscript(results, time.Second); !ok || text != "my dog" {
		t.Fatalf("awaitTranscript = %q, %v", text, ok)
	}

	// A transcriber that never calls back must not hang the capture.
	start := time.Now()
	if _, ok := awaitTranscript(make(chan string), 20*time.Millisecond); ok {
		t.Fatal("silent transcriber reported a transcript")
	}
	if waited := time.Since(start); waited > time.Second {
		t.Fatalf("waited %s for a silent transcriber", waited)
	}
}
