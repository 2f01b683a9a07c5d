// Package speech wraps the platform's speech synthesis and recognition
// engines behind one session-scoped adapter.
//
// The adapter serializes speech (a new utterance cancels the previous one)
// and runs recognition as single-shot attempts with a timeout. Every
// listener callback is delivered on the session's event loop, so callers
// never see engine goroutines.
package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hammamikhairi/vocalpal/internal/domain"
	"github.com/hammamikhairi/vocalpal/internal/logger"
	"github.com/hammamikhairi/vocalpal/internal/loop"
)

// AdapterOption configures the Adapter.
type AdapterOption func(*Adapter)

// WithLocale sets the language used for recognition and synthesis.
func WithLocale(locale string) AdapterOption {
	return func(a *Adapter) {
		a.locale = locale
	}
}

// WithVolume sets the playback volume in [0, 1].
func WithVolume(v float64) AdapterOption {
	return func(a *Adapter) {
		a.volume = v
	}
}

// WithListenTimeout sets how long an attempt may run without a result.
func WithListenTimeout(d time.Duration) AdapterOption {
	return func(a *Adapter) {
		a.listenTimeout = d
	}
}

// Adapter is the session's single gateway to speech. A nil engine means
// the platform lacks that capability.
type Adapter struct {
	synth         SynthesisEngine
	rec           RecognitionEngine
	sched         loop.Scheduler
	log           *logger.Logger
	locale        string
	volume        float64
	listenTimeout time.Duration

	mu          sync.Mutex
	ready       bool
	closed      bool
	speakSeq    uint64
	speakCancel context.CancelCauseFunc
	speakDone   chan struct{} // closed once the latest engine call has returned
	attempt     *listenAttempt
}

// NewAdapter creates a speech adapter. Call Init before use.
func NewAdapter(synth SynthesisEngine, rec RecognitionEngine, sched loop.Scheduler, log *logger.Logger, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		synth:         synth,
		rec:           rec,
		sched:         sched,
		log:           log,
		locale:        DefaultLocale,
		volume:        1,
		listenTimeout: DefaultListenTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.volume < 0 {
		a.volume = 0
	}
	if a.volume > 1 {
		a.volume = 1
	}
	return a
}

// Init marks the adapter ready for the session.
func (a *Adapter) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return domain.ErrSessionClosed
	}
	a.ready = true
	a.log.Info("speech ready (synthesis=%v, recognition=%v, locale=%s)",
		a.synth != nil, a.rec != nil, a.locale)
	return nil
}

// CanSpeak reports whether a synthesis engine is available.
func (a *Adapter) CanSpeak() bool { return a.synth != nil }

// CanListen reports whether a recognition engine is available.
func (a *Adapter) CanListen() bool { return a.rec != nil }

// Ready reports whether Init succeeded and Dispose has not been called.
func (a *Adapter) Ready() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ready && !a.closed
}

// Dispose cancels speech and ends any active attempt. Every later call
// fails with domain.ErrSessionClosed.
func (a *Adapter) Dispose() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	if a.speakCancel != nil {
		a.speakCancel(domain.ErrSessionClosed)
		a.speakCancel = nil
	}
	att := a.attempt
	a.attempt = nil
	a.mu.Unlock()

	if att != nil {
		a.sched.Post(func() { att.finish(nil, "") })
	}
	a.log.Debug("speech disposed")
}

// Speak says text at the given rate and blocks until it has been spoken.
// It cancels any utterance in flight; that earlier call returns
// ErrSuperseded.
func (a *Adapter) Speak(ctx context.Context, text string, rate float64) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return domain.ErrSessionClosed
	}
	if a.synth == nil {
		a.mu.Unlock()
		return ErrUnsupportedCapability
	}
	if !a.ready {
		a.mu.Unlock()
		return ErrNotReady
	}
	if a.speakCancel != nil {
		a.speakCancel(ErrSuperseded)
	}
	prev := a.speakDone
	done := make(chan struct{})
	uctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	a.speakSeq++
	seq := a.speakSeq
	a.speakCancel = cancel
	a.speakDone = done
	a.mu.Unlock()
	defer a.speakEnded(seq)

	// The engine plays one utterance at a time: wait for the cancelled
	// one to stop before starting.
	if prev != nil {
		select {
		case <-prev:
		case <-uctx.Done():
			go func() {
				<-prev
				close(done)
			}()
			return a.speakErr(ctx, uctx, nil)
		}
	}

	err := a.synth.Speak(uctx, Utterance{
		Text:   text,
		Rate:   rate,
		Volume: a.volume,
		Locale: a.locale,
	})
	close(done)
	return a.speakErr(ctx, uctx, err)
}

func (a *Adapter) speakEnded(seq uint64) {
	a.mu.Lock()
	if a.speakSeq == seq {
		a.speakCancel = nil
	}
	a.mu.Unlock()
}

// speakErr maps the outcome of one utterance to the error Speak returns.
func (a *Adapter) speakErr(ctx, uctx context.Context, err error) error {
	if uctx.Err() != nil {
		cause := context.Cause(uctx)
		if errors.Is(cause, ErrSuperseded) || errors.Is(cause, domain.ErrSessionClosed) {
			a.log.Debug("utterance cancelled: %v", cause)
			return cause
		}
		return ctx.Err()
	}
	if err != nil {
		a.log.Warn("synthesis failed: %v", err)
		return &SynthesisError{Reason: err.Error(), Err: err}
	}
	return nil
}

// Listen starts one recognition attempt. Exactly one of onResult or onError
// fires for a terminal outcome, followed by exactly one onEnd. An attempt
// that is stopped or superseded only gets onEnd. All callbacks run on the
// event loop; nil callbacks are allowed.
//
// Listen fails immediately with ErrUnsupportedCapability when there is no
// recognizer, and with an ErrStartFailed wrap when the engine refuses to
// start; no callback fires in either case.
func (a *Adapter) Listen(onResult func(string), onError func(*RecognitionError), onEnd func()) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return domain.ErrSessionClosed
	}
	if a.rec == nil {
		a.mu.Unlock()
		return ErrUnsupportedCapability
	}
	if !a.ready {
		a.mu.Unlock()
		return ErrNotReady
	}

	prev := a.attempt
	att := &listenAttempt{
		a:        a,
		onResult: onResult,
		onError:  onError,
		onEnd:    onEnd,
	}
	a.attempt = att
	a.mu.Unlock()

	if prev != nil {
		a.log.Debug("listen superseded previous attempt")
		a.sched.Post(func() { prev.finish(nil, "") })
	}

	att.timer = a.sched.After(a.listenTimeout, func() {
		a.log.Debug("listen timed out after %s", a.listenTimeout)
		att.finish(newRecognitionError(CodeTimeout), "")
	})

	handle, err := a.rec.Start(RecognitionConfig{Locale: a.locale, MaxAlternatives: 1}, att)
	if err != nil {
		att.timer.Stop()
		a.mu.Lock()
		att.ended = true
		if a.attempt == att {
			a.attempt = nil
		}
		a.mu.Unlock()
		a.log.Warn("recognition start failed: %v", err)
		return fmt.Errorf("%w: %v", ErrStartFailed, err)
	}

	a.mu.Lock()
	att.handle = handle
	ended := att.ended
	a.mu.Unlock()
	if ended {
		handle.Stop()
	}

	a.log.Debug("listening (timeout=%s)", a.listenTimeout)
	return nil
}

// StopListening ends the active attempt, if any. The attempt's onEnd fires;
// no result or error does. Safe to call repeatedly.
func (a *Adapter) StopListening() {
	a.mu.Lock()
	att := a.attempt
	a.attempt = nil
	a.mu.Unlock()

	if att == nil {
		return
	}
	a.sched.Post(func() { att.finish(nil, "") })
}

// Listening reports whether an attempt is active.
func (a *Adapter) Listening() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.attempt != nil
}

// listenAttempt is the RecognitionSink for one Listen call. Engine events
// are posted to the loop, where the first terminal event wins and the rest
// are dropped.
type listenAttempt struct {
	a        *Adapter
	onResult func(string)
	onError  func(*RecognitionError)
	onEnd    func()
	timer    loop.Timer

	// guarded by a.mu
	handle RecognitionHandle
	ended  bool
}

func (att *listenAttempt) OnResult(transcript string) {
	att.a.sched.Post(func() { att.finish(nil, transcript) })
}

func (att *listenAttempt) OnError(code string) {
	att.a.sched.Post(func() { att.finish(newRecognitionError(ParseErrorCode(code)), "") })
}

func (att *listenAttempt) OnEnd() {
	att.a.sched.Post(func() { att.finish(nil, "") })
}

// finish runs on the loop. A non-nil rerr delivers onError, a non-empty
// transcript delivers onResult, neither delivers onEnd alone.
func (att *listenAttempt) finish(rerr *RecognitionError, transcript string) {
	a := att.a

	a.mu.Lock()
	if att.ended {
		a.mu.Unlock()
		return
	}
	att.ended = true
	if a.attempt == att {
		a.attempt = nil
	}
	handle := att.handle
	a.mu.Unlock()

	if att.timer != nil {
		att.timer.Stop()
	}
	if handle != nil {
		handle.Stop()
	}

	switch {
	case rerr != nil:
		a.log.Debug("listen error: %s", rerr.Code)
		if att.onError != nil {
			att.onError(rerr)
		}
	case transcript != "":
		a.log.Debug("heard %q", transcript)
		if att.onResult != nil {
			att.onResult(transcript)
		}
	}
	if att.onEnd != nil {
		att.onEnd()
	}
}
