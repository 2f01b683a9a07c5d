package speech

import (
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	audiotranscriber "github.com/sklyt/whisper/pkg"

	"github.com/hammamikhairi/vocalpal/internal/logger"
)

// Compile-time interface check.
var _ RecognitionEngine = (*WhisperRecognizer)(nil)

// envAnnotation matches whisper environmental annotations like
// "(keyboard clicking)", "[laughter]", "(speaking French)", etc.
var envAnnotation = regexp.MustCompile(`[\(\[][a-zA-Z][a-zA-Z\s]*[\)\]]`)

// WhisperOption configures the WhisperRecognizer.
type WhisperOption func(*WhisperRecognizer)

// WithCaptureWindow sets how long each attempt records.
func WithCaptureWindow(d time.Duration) WhisperOption {
	return func(w *WhisperRecognizer) { w.window = d }
}

// WithTranscribeTimeout bounds the wait for a transcript after recording
// stops.
func WithTranscribeTimeout(d time.Duration) WhisperOption {
	return func(w *WhisperRecognizer) { w.transcribeWait = d }
}

// WithTempDir sets the directory for temporary WAV files.
func WithTempDir(dir string) WhisperOption {
	return func(w *WhisperRecognizer) { w.tempDir = dir }
}

// WhisperRecognizer records one short clip per attempt and transcribes it
// with a local Whisper model.
type WhisperRecognizer struct {
	whisperBin string
	modelPath  string
	tempDir    string
	window     time.Duration
	log        *logger.Logger

	transcribeWait time.Duration
}

// NewWhisperRecognizer creates a push-to-talk recognizer.
//
//   - whisperBin: path to the whisper-cli executable
//   - modelPath:  path to the GGML model file
func NewWhisperRecognizer(whisperBin, modelPath string, log *logger.Logger, opts ...WhisperOption) *WhisperRecognizer {
	w := &WhisperRecognizer{
		whisperBin: whisperBin,
		modelPath:  modelPath,
		tempDir:    ".vocalpal-stt",
		window:     DefaultCaptureWindow,
		log:        log,

		transcribeWait: DefaultTranscribeTimeout,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Available reports whether the whisper binary can be found.
func (w *WhisperRecognizer) Available() bool {
	_, err := exec.LookPath(w.whisperBin)
	return err == nil
}

// Start begins one capture window in the background.
func (w *WhisperRecognizer) Start(cfg RecognitionConfig, sink RecognitionSink) (RecognitionHandle, error) {
	if _, err := exec.LookPath(w.whisperBin); err != nil {
		return nil, fmt.Errorf("whisper binary %q not found: %w", w.whisperBin, err)
	}
	if cfg.Locale != "" && !strings.HasPrefix(strings.ToLower(cfg.Locale), "en") {
		w.log.Warn("whisper: locale %s requested, model language is fixed", cfg.Locale)
	}

	h := &whisperHandle{stop: make(chan struct{})}
	go w.capture(h, sink)
	return h, nil
}

// capture records for the window (or until stopped) and reports exactly
// one terminal event followed by OnEnd.
func (w *WhisperRecognizer) capture(h *whisperHandle, sink RecognitionSink) {
	defer sink.OnEnd()

	results := make(chan string, 1)
	callback := func(text string) {
		select {
		case results <- text:
		default:
		}
	}

	verbose := w.log.GetLevel() >= logger.LevelVerbose
	t, err := audiotranscriber.NewTranscriber(
		w.whisperBin,
		w.modelPath,
		w.tempDir,
		"wav",
		callback,
		verbose,
	)
	if err != nil {
		w.log.Error("whisper: transcriber init failed: %v", err)
		sink.OnError(string(CodeAudioCapture))
		return
	}

	if err := t.Start(); err != nil {
		w.log.Error("whisper: recording start failed: %v", err)
		sink.OnError(string(CodeAudioCapture))
		return
	}

	stopped := false
	select {
	case <-time.After(w.window):
	case <-h.stop:
		stopped = true
	}

	t.Stop()
	result, ok := awaitTranscript(results, w.transcribeWait)

	if stopped {
		w.log.Debug("whisper: attempt stopped, discarding audio")
		return
	}
	if !ok {
		w.log.Warn("whisper: no transcript after %s, giving up", w.transcribeWait)
		sink.OnError(string(CodeOther))
		return
	}

	text := cleanTranscription(result)
	if text == "" {
		sink.OnError(string(CodeNoSpeech))
		return
	}
	w.log.Debug("whisper: heard %q", text)
	sink.OnResult(text)
}

// awaitTranscript waits up to d for the transcriber's callback.
func awaitTranscript(results <-chan string, d time.Duration) (string, bool) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case text := <-results:
		return text, true
	case <-timer.C:
		return "", false
	}
}

type whisperHandle struct {
	once sync.Once
	stop chan struct{}
}

func (h *whisperHandle) Stop() {
	h.once.Do(func() { close(h.stop) })
}

// ── Transcription cleanup ────────────────────────────────────────

// junkPatterns are whisper artifacts stripped from anywhere in the text.
var junkPatterns = []string{
	"[BLANK_AUDIO]",
	"[BLANK AUDIO]",
	"(silence)",
	"[silence]",
	"(no speech)",
	"[no speech]",
	"[Music]",
	"(music)",
	"(typing)",
	"(breathing)",
	"(coughing)",
	"(laughing)",
	"(clapping)",
	"(background noise)",
	"(inaudible)",
	"(unintelligible)",
}

// hallucinations are whole transcripts whisper invents from silence.
var hallucinations = []string{
	"...",
	"you",
	"Thank you.",
	"Thanks for watching!",
	"Thank you for watching.",
	"Bye.",
	"Bye!",
	"The end.",
}

// cleanTranscription normalizes whitespace and removes whisper artifacts.
// It returns "" when nothing the child said survives.
func cleanTranscription(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.TrimSpace(s)

	// Strip a leading timestamp like "[00:00:00.000 --> 00:00:05.000]".
	if strings.HasPrefix(s, "[") {
		if idx := strings.Index(s, "]"); idx != -1 && idx < 40 && strings.Contains(s[:idx], "-->") {
			s = strings.TrimSpace(s[idx+1:])
		}
	}

	for _, j := range junkPatterns {
		s = strings.ReplaceAll(s, j, "")
		s = strings.ReplaceAll(s, strings.ToLower(j), "")
		s = strings.ReplaceAll(s, strings.ToUpper(j), "")
	}
	s = envAnnotation.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")

	lower := strings.ToLower(s)
	for _, h := range hallucinations {
		if strings.ToLower(h) == lower {
			return ""
		}
	}
	return s
}
