package speech

import "time"

// Default voice for TTS. A young voice suits the tiger.
// Full list: https://learn.microsoft.com/en-us/azure/ai-services/speech-service/language-support
const DefaultVoice = "en-US-AnaNeural"

// DefaultPitch lifts every utterance slightly for a kid-friendly sound.
const DefaultPitch = "+20%"

// Audio format returned by Azure and expected by the player.
const DefaultAudioFormat = "riff-24khz-16bit-mono-pcm"

// Audio parameters matching the default format.
const (
	SampleRate   = 24000
	ChannelCount = 1
	BitDepth     = 16
)

// DefaultLocale is the only recognition and synthesis language.
const DefaultLocale = "en-US"

// DefaultListenTimeout bounds a listening attempt that hears nothing.
const DefaultListenTimeout = 5 * time.Second

// DefaultCaptureWindow is how long the whisper recognizer records per
// attempt. It stays under the listen timeout so a result can arrive first.
const DefaultCaptureWindow = 3 * time.Second

// DefaultTranscribeTimeout is how long the whisper recognizer waits for a
// transcript once recording stops.
const DefaultTranscribeTimeout = 30 * time.Second

// Env var names for Azure Speech credentials.
const (
	EnvAzureSpeechKey    = "AZURE_SPEECH_KEY"
	EnvAzureSpeechRegion = "AZURE_SPEECH_REGION"
)
