package speech

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hammamikhairi/vocalpal/internal/logger"
)

// AudioCache is a thread-safe two-tier cache (in-memory + filesystem) for
// synthesized audio. The cache key is sha256(voice:rate:text) so a voice or
// profile change causes misses instead of replaying the wrong audio.
//
// Disk behaviour is controlled by diskWrite:
//
//	diskWrite=true  -> reads from mem, then disk; writes to both.
//	diskWrite=false -> reads from mem, then disk; writes to mem only.
type AudioCache struct {
	mu        sync.RWMutex
	entries   map[string][]byte // hash -> WAV bytes
	log       *logger.Logger
	voice     string
	cacheDir  string // empty = no disk layer
	diskWrite bool
	hits      int64
	misses    int64
}

// NewAudioCache creates an audio cache. An empty cacheDir disables the disk
// layer entirely.
func NewAudioCache(voice, cacheDir string, diskWrite bool, log *logger.Logger) *AudioCache {
	c := &AudioCache{
		entries:   make(map[string][]byte),
		log:       log,
		voice:     voice,
		cacheDir:  cacheDir,
		diskWrite: diskWrite,
	}

	if cacheDir != "" && diskWrite {
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			log.Error("cache: failed to create cache dir %s: %v", cacheDir, err)
		}
	}

	return c
}

// Get returns cached audio for the text at the given rate. It checks the
// in-memory map first, then the disk cache.
func (c *AudioCache) Get(rate float64, text string) ([]byte, bool) {
	key := c.hashKey(rate, text)

	c.mu.RLock()
	data, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		c.log.Debug("cache hit (mem): %s (%d bytes)", truncateForLog(text, 40), len(data))
		return data, true
	}

	if c.cacheDir != "" {
		if diskData, diskOK := c.readDisk(key); diskOK {
			// Promote to memory.
			c.mu.Lock()
			c.entries[key] = diskData
			c.hits++
			c.mu.Unlock()
			c.log.Debug("cache hit (disk): %s (%d bytes)", truncateForLog(text, 40), len(diskData))
			return diskData, true
		}
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	return nil, false
}

// Put stores audio for the text at the given rate.
func (c *AudioCache) Put(rate float64, text string, audio []byte) {
	key := c.hashKey(rate, text)

	c.mu.Lock()
	c.entries[key] = audio
	size := len(c.entries)
	c.mu.Unlock()

	c.log.Debug("cache store (mem): %s (%d bytes, %d entries)", truncateForLog(text, 40), len(audio), size)

	if c.cacheDir != "" && c.diskWrite {
		c.writeDisk(key, audio)
	}
}

// Len returns the number of in-memory cached entries.
func (c *AudioCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns hit and miss counts.
func (c *AudioCache) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// ── hashing ──────────────────────────────────────────────────────

func (c *AudioCache) hashKey(rate float64, text string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s:%.2f:%s", c.voice, rate, text)))
	return hex.EncodeToString(h[:])
}

// ── disk helpers ─────────────────────────────────────────────────

func (c *AudioCache) diskPath(key string) string {
	return filepath.Join(c.cacheDir, key+".wav")
}

func (c *AudioCache) readDisk(key string) ([]byte, bool) {
	data, err := os.ReadFile(c.diskPath(key))
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *AudioCache) writeDisk(key string, audio []byte) {
	path := c.diskPath(key)
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		c.log.Error("cache: disk write failed for %s: %v", path, err)
	} else {
		c.log.Debug("cache store (disk): %s (%d bytes)", key[:12], len(audio))
	}
}

func truncateForLog(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
