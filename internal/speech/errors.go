package speech

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedCapability means the platform has no engine for the
	// requested capability.
	ErrUnsupportedCapability = errors.New("speech capability not supported")
	// ErrNotReady means the adapter was used before Init.
	ErrNotReady = errors.New("speech adapter not initialized")
	// ErrSuperseded is returned by a Speak call cancelled by a newer one.
	ErrSuperseded = errors.New("utterance superseded")
	// ErrStartFailed means the recognizer refused to start.
	ErrStartFailed = errors.New("failed to start speech recognition")
)

// SynthesisError wraps an engine failure while speaking.
type SynthesisError struct {
	Reason string
	Err    error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("speech synthesis failed: %s", e.Reason)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// ErrorCode classifies a recognition failure.
type ErrorCode string

const (
	CodeNoSpeech     ErrorCode = "no-speech"
	CodeAudioCapture ErrorCode = "audio-capture"
	CodeNotAllowed   ErrorCode = "not-allowed"
	CodeNetwork      ErrorCode = "network"
	CodeOther        ErrorCode = "other"
	// CodeTimeout is raised by the adapter itself when nothing is heard
	// before the listen timeout.
	CodeTimeout ErrorCode = "no-speech-timeout"
)

// ParseErrorCode maps an engine error string onto the known codes.
func ParseErrorCode(raw string) ErrorCode {
	switch c := ErrorCode(raw); c {
	case CodeNoSpeech, CodeAudioCapture, CodeNotAllowed, CodeNetwork, CodeTimeout:
		return c
	default:
		return CodeOther
	}
}

// Message returns the human-readable text for the code.
func (c ErrorCode) Message() string {
	switch c {
	case CodeNoSpeech:
		return "No speech was detected. Please try again."
	case CodeAudioCapture:
		return "No microphone was found. Please check your microphone settings."
	case CodeNotAllowed:
		return "Microphone access was denied. Please enable microphone access."
	case CodeNetwork:
		return "Network error occurred. Please check your internet connection."
	case CodeTimeout:
		return "No speech detected. Please try again."
	default:
		return "There was an error with speech recognition."
	}
}

// RecognitionError is delivered to a listener's error callback.
type RecognitionError struct {
	Code    ErrorCode
	Message string
}

func newRecognitionError(code ErrorCode) *RecognitionError {
	return &RecognitionError{Code: code, Message: code.Message()}
}

func (e *RecognitionError) Error() string {
	return string(e.Code) + ": " + e.Message
}
