package speech

import "context"

// Utterance is one piece of text to speak.
type Utterance struct {
	Text   string
	Rate   float64 // 1.0 is normal speed
	Volume float64 // [0, 1]
	Locale string
}

// SynthesisEngine turns text into sound. Speak blocks until playback ends
// and must stop promptly when ctx is cancelled.
type SynthesisEngine interface {
	Speak(ctx context.Context, u Utterance) error
}

// RecognitionConfig configures one recognition attempt. Attempts are always
// single-shot: one final result, no interim results.
type RecognitionConfig struct {
	Locale          string
	MaxAlternatives int
}

// RecognitionSink receives engine events. Methods may be called from any
// goroutine. OnEnd is the last call for an attempt.
type RecognitionSink interface {
	OnResult(transcript string)
	OnError(code string)
	OnEnd()
}

// RecognitionHandle stops a running attempt. Stop is idempotent and safe
// after the attempt ended on its own.
type RecognitionHandle interface {
	Stop()
}

// RecognitionEngine captures and transcribes one utterance per Start.
type RecognitionEngine interface {
	Start(cfg RecognitionConfig, sink RecognitionSink) (RecognitionHandle, error)
}
