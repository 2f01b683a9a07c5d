package speech

import (
	"context"

	"github.com/hammamikhairi/vocalpal/internal/logger"
)

// Compile-time interface check.
var _ SynthesisEngine = (*AzureSynthesizer)(nil)

// AudioPlayer plays a WAV buffer until done or cancelled.
type AudioPlayer interface {
	Play(ctx context.Context, wav []byte, volume float64) error
}

// SynthOption configures the AzureSynthesizer.
type SynthOption func(*AzureSynthesizer)

// WithCacheDir sets the filesystem directory used for persistent audio
// caching. If empty, the disk layer is disabled.
func WithCacheDir(dir string) SynthOption {
	return func(s *AzureSynthesizer) {
		s.cacheDir = dir
	}
}

// WithDiskWrite controls whether new cache entries are written to disk.
// Even when false, existing on-disk entries are still read.
func WithDiskWrite(enabled bool) SynthOption {
	return func(s *AzureSynthesizer) {
		s.diskWrite = enabled
	}
}

// AzureSynthesizer speaks through Azure TTS and a local audio player.
// Identical lines at the same rate are synthesized once.
type AzureSynthesizer struct {
	tts       *AzureClient
	player    AudioPlayer
	log       *logger.Logger
	cache     *AudioCache
	cacheDir  string
	diskWrite bool
}

// NewAzureSynthesizer wires a TTS client to a player.
func NewAzureSynthesizer(tts *AzureClient, player AudioPlayer, log *logger.Logger, opts ...SynthOption) *AzureSynthesizer {
	s := &AzureSynthesizer{
		tts:       tts,
		player:    player,
		log:       log,
		diskWrite: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cache = NewAudioCache(tts.Voice(), s.cacheDir, s.diskWrite, log)
	return s
}

// Speak synthesizes (or loads from cache) and plays one utterance.
func (s *AzureSynthesizer) Speak(ctx context.Context, u Utterance) error {
	audio, ok := s.cache.Get(u.Rate, u.Text)
	if !ok {
		var err error
		audio, err = s.tts.Synthesize(ctx, u.Text, u.Rate, u.Locale)
		if err != nil {
			return err
		}
		s.cache.Put(u.Rate, u.Text, audio)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return s.player.Play(ctx, audio, u.Volume)
}

// Prefetch warms the cache for lines that will likely be spoken soon.
// Failures are logged and otherwise ignored.
func (s *AzureSynthesizer) Prefetch(ctx context.Context, rate float64, lines ...string) {
	for _, line := range lines {
		if _, ok := s.cache.Get(rate, line); ok {
			continue
		}
		audio, err := s.tts.Synthesize(ctx, line, rate, DefaultLocale)
		if err != nil {
			s.log.Warn("prefetch failed for %q: %v", truncateForLog(line, 40), err)
			continue
		}
		s.cache.Put(rate, line, audio)
	}
}
