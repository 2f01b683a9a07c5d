// Package session implements the practice-screen state machine.
//
// A Controller consumes transcripts, pays rewards through the ledger,
// sequences the tiger's mood and writes progress through to the store.
// Every method except Start and Close must run on the session's event loop.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hammamikhairi/vocalpal/internal/conversation"
	"github.com/hammamikhairi/vocalpal/internal/domain"
	"github.com/hammamikhairi/vocalpal/internal/logger"
	"github.com/hammamikhairi/vocalpal/internal/loop"
	"github.com/hammamikhairi/vocalpal/internal/profile"
	"github.com/hammamikhairi/vocalpal/internal/reward"
	"github.com/hammamikhairi/vocalpal/internal/shop"
	"github.com/hammamikhairi/vocalpal/internal/speech"
)

const (
	transcriptXP = 5
	intentStars  = 1

	warmUp        = 2 * time.Second
	reactionDelay = 1 * time.Second
	reactionHold  = 2 * time.Second
	echoHold      = 2 * time.Second
)

// Speech is the part of the speech adapter the controller drives.
type Speech interface {
	Init() error
	Ready() bool
	CanSpeak() bool
	Speak(ctx context.Context, text string, rate float64) error
	Listen(onResult func(string), onError func(*speech.RecognitionError), onEnd func()) error
	StopListening()
	Dispose()
}

// Compile-time interface check.
var _ Speech = (*speech.Adapter)(nil)

// Option configures the Controller.
type Option func(*Controller)

// WithObserver registers fn to receive a copy of the state after every
// change. Observers run on the loop and must not block.
func WithObserver(fn func(State)) Option {
	return func(c *Controller) {
		c.observers = append(c.observers, fn)
	}
}

// WithVoiceReplies makes the tiger speak its bubble text.
func WithVoiceReplies(enabled bool) Option {
	return func(c *Controller) {
		c.voiceReplies = enabled
	}
}

// WithClassifier replaces the keyword classifier.
func WithClassifier(cl domain.IntentClassifier) Option {
	return func(c *Controller) {
		c.classifier = cl
	}
}

// WithLedgerOptions passes options through to the reward ledger.
func WithLedgerOptions(opts ...reward.Option) Option {
	return func(c *Controller) {
		c.ledgerOpts = append(c.ledgerOpts, opts...)
	}
}

// WithSyncerOptions passes options through to the progress syncer.
func WithSyncerOptions(opts ...SyncerOption) Option {
	return func(c *Controller) {
		c.syncerOpts = append(c.syncerOpts, opts...)
	}
}

// Controller runs one child's practice session.
type Controller struct {
	userID       string
	profile      domain.Profile
	speech       Speech
	store        domain.ProgressStore
	shop         *shop.Shop
	sched        loop.Scheduler
	log          *logger.Logger
	classifier   domain.IntentClassifier
	observers    []func(State)
	voiceReplies bool
	ledgerOpts   []reward.Option
	syncerOpts   []SyncerOption
	syncer       *Syncer

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool

	// lines holds the newest reply waiting for the speaker goroutine.
	lines      chan string
	speakMu    sync.Mutex
	stopSpeech context.CancelFunc // cancels the line being spoken

	// loop-owned
	ledger       *reward.Ledger
	state        State
	sequence     loop.Timer
	chestTimer   loop.Timer
	rewardTimers map[string]loop.Timer
	listenGen    uint64
}

// New creates a controller for userID. condition picks the profile; an
// unknown or empty tag gets the baseline profile.
func New(userID, condition string, sp Speech, store domain.ProgressStore, sched loop.Scheduler, log *logger.Logger, opts ...Option) *Controller {
	p := profile.ResolveString(condition)
	c := &Controller{
		userID:       userID,
		profile:      p,
		speech:       sp,
		store:        store,
		shop:         shop.New(store, log),
		sched:        sched,
		log:          log,
		rewardTimers: make(map[string]loop.Timer),
		lines:        make(chan string, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.classifier == nil {
		c.classifier = conversation.NewKeywordClassifier(log)
	}
	c.ledgerOpts = append([]reward.Option{reward.WithClock(sched.Now)}, c.ledgerOpts...)
	c.syncer = NewSyncer(sched, log, c.syncerOpts...)
	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.ledger = reward.NewLedger(p, domain.NewSnapshot(userID), c.ledgerOpts...)
	c.state = State{
		UserID:         userID,
		Condition:      p.Tag.String(),
		Mood:           domain.MoodWave,
		Bubble:         conversation.LineGreeting(),
		Theme:          p.Theme,
		TigerScale:     p.TigerScale,
		AnimationSpeed: p.AnimationSpeed,
	}
	c.syncCounters()
	return c
}

// Start loads saved progress and posts the greeting to the loop. A failed
// load is logged and the session starts from a fresh snapshot.
func (c *Controller) Start(ctx context.Context) error {
	if c.closed.Load() {
		return domain.ErrSessionClosed
	}
	c.syncer.Start(c.ctx)
	if c.voiceReplies {
		go c.speaker()
	}

	if err := c.speech.Init(); err != nil {
		c.log.Warn("speech init failed: %v", err)
	}

	snap, err := c.store.Load(ctx, c.userID)
	pending := false
	switch {
	case err == nil:
		c.log.Info("loaded progress for %s (xp=%d, stars=%d, level=%d)", c.userID, snap.XP, snap.Stars, snap.Level)
	case errors.Is(err, domain.ErrNotFound):
		c.log.Info("no saved progress for %s, starting fresh", c.userID)
		snap = domain.NewSnapshot(c.userID)
	default:
		c.log.Error("%v", &domain.PersistenceError{Op: "load", UserID: c.userID, Err: err})
		snap = domain.NewSnapshot(c.userID)
		pending = true
	}

	c.sched.Post(func() { c.begin(snap, pending) })
	return nil
}

func (c *Controller) begin(snap domain.ProgressSnapshot, pending bool) {
	if c.closed.Load() {
		return
	}
	c.ledger = reward.NewLedger(c.profile, snap, c.ledgerOpts...)
	c.syncCounters()
	c.state.Mood = domain.MoodWave
	c.state.Bubble = conversation.LineGreeting()
	c.state.Theme = themeFor(snap.EquippedBackgroundID, c.profile)
	c.state.EquippedAccessory = snap.EquippedAccessoryID
	c.state.SyncPending = pending
	c.play(moodStep{warmUp, domain.MoodIdle})

	c.log.Info("session started for %s (condition=%s, theme=%s)", c.userID, c.state.Condition, c.state.Theme)
	c.notify()
	c.say(c.state.Bubble)
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	return c.state.clone()
}

// Profile returns the session's condition profile.
func (c *Controller) Profile() domain.Profile {
	return c.profile
}

// ── Conversation ─────────────────────────────────────────────────

// HandleTranscript reacts to what the child said. Blank transcripts are
// ignored. A new transcript cancels whatever mood steps were pending.
func (c *Controller) HandleTranscript(text string) {
	if c.closed.Load() {
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	c.cancelSequence()
	c.state.Mood = domain.MoodSpeaking
	c.grant(domain.RewardXP, transcriptXP)

	intent := c.classifier.Classify(text)
	c.state.Bubble = conversation.Reply(intent)

	switch intent.Type {
	case domain.IntentGreeting:
		c.play(moodStep{reactionDelay, domain.MoodWave}, moodStep{reactionHold, domain.MoodIdle})
		c.grant(domain.RewardStar, intentStars)
	case domain.IntentHappy:
		c.play(moodStep{reactionDelay, domain.MoodHappy}, moodStep{reactionHold, domain.MoodIdle})
		c.grant(domain.RewardStar, intentStars)
	default:
		c.play(moodStep{echoHold, domain.MoodIdle})
	}

	c.log.Debug("transcript %q -> %s", text, intent.Type)
	c.notify()
	c.say(c.state.Bubble)
}

// ── Microphone ───────────────────────────────────────────────────

// ToggleMic starts listening, or stops if already listening.
func (c *Controller) ToggleMic() {
	if c.closed.Load() {
		return
	}

	if c.state.Listening {
		c.speech.StopListening()
		c.state.Listening = false
		c.notify()
		return
	}

	c.listenGen++
	gen := c.listenGen
	err := c.speech.Listen(
		c.HandleTranscript,
		func(rerr *speech.RecognitionError) { c.listenFailed(gen, rerr) },
		func() { c.listenEnded(gen) },
	)

	switch {
	case err == nil:
		c.cancelSequence()
		c.state.Listening = true
		c.state.Mood = domain.MoodSpeaking
		c.state.Bubble = conversation.LineListening()
	case errors.Is(err, domain.ErrSessionClosed):
		return
	case errors.Is(err, speech.ErrUnsupportedCapability):
		c.log.Warn("no speech recognition available")
		c.state.Bubble = conversation.LineNoRecognition()
	case errors.Is(err, speech.ErrNotReady):
		c.state.Bubble = conversation.LineStillWakingUp()
	default:
		c.log.Warn("starting recognition: %v", err)
		c.state.Bubble = conversation.LineTroubleHearing()
		c.state.Listening = false
		c.state.Mood = domain.MoodIdle
	}
	c.notify()
}

func (c *Controller) listenFailed(gen uint64, rerr *speech.RecognitionError) {
	if c.closed.Load() || gen != c.listenGen {
		return
	}
	c.log.Debug("recognition error: %s (%s)", rerr.Code, rerr.Message)
	c.state.Bubble = conversation.LineDidNotHear()
	c.state.Listening = false
	c.state.Mood = domain.MoodIdle
	c.notify()
}

func (c *Controller) listenEnded(gen uint64) {
	if c.closed.Load() || gen != c.listenGen {
		return
	}
	c.state.Listening = false
	if c.state.Mood == domain.MoodSpeaking && c.sequence == nil {
		c.state.Mood = domain.MoodIdle
	}
	c.notify()
}

// ── Shop ─────────────────────────────────────────────────────────

// ShopView lists the shop for this user. done runs on the loop once every
// earlier write has landed.
func (c *Controller) ShopView(done func(shop.View, error)) {
	var view shop.View
	c.syncer.Enqueue("list shop", func(ctx context.Context) error {
		var err error
		view, err = c.shop.List(ctx, c.userID)
		return err
	}, func(err error) {
		if err == nil {
			view.Stars = c.ledger.Counters().Stars
		}
		done(view, err)
	})
}

// Unlock buys an item with session stars. The stars leave the ledger at
// once and come back if the store rejects the purchase.
func (c *Controller) Unlock(itemID string, done func(shop.View, error)) {
	item, ok := shop.Lookup(itemID)
	if !ok {
		done(shop.View{}, fmt.Errorf("unlock %q: %w", itemID, domain.ErrUnknownItem))
		return
	}
	// The shop checks the stored balance, which lags the ledger after a
	// failed save.
	counters := c.ledger.Update()
	if err := c.ledger.Spend(item.Cost); err != nil {
		c.state.Bubble = conversation.LineNeedMoreStars()
		c.notify()
		done(shop.View{}, fmt.Errorf("unlock %q: %w", itemID, err))
		return
	}
	c.syncCounters()
	c.notify()

	var view shop.View
	c.syncer.Enqueue("unlock "+itemID, func(ctx context.Context) error {
		if err := c.store.Save(ctx, c.userID, counters); err != nil {
			return &domain.PersistenceError{Op: "save", UserID: c.userID, Err: err}
		}
		var err error
		view, err = c.shop.Unlock(ctx, c.userID, itemID)
		return err
	}, func(err error) {
		if err != nil {
			c.ledger.SetStars(c.ledger.Counters().Stars + item.Cost)
			c.syncCounters()
			c.persist()
			c.notify()
			done(shop.View{}, err)
			return
		}
		// The shop deducted from the stored balance; store the ledger's.
		c.persist()
		view.Stars = c.ledger.Counters().Stars
		c.state.Bubble = conversation.LineUnlocked(item.Name)
		c.notify()
		done(view, nil)
	})
}

// Equip toggles an unlocked item and updates the theme.
func (c *Controller) Equip(itemID string, done func(shop.View, error)) {
	var view shop.View
	c.syncer.Enqueue("equip "+itemID, func(ctx context.Context) error {
		var err error
		view, err = c.shop.Equip(ctx, c.userID, itemID)
		return err
	}, func(err error) {
		if err != nil {
			done(shop.View{}, err)
			return
		}
		view.Stars = c.ledger.Counters().Stars
		accessory, background := equipped(view)
		c.state.EquippedAccessory = accessory
		c.state.Theme = themeFor(background, c.profile)
		c.notify()
		done(view, nil)
	})
}

func equipped(v shop.View) (accessory, background string) {
	for _, l := range v.Items {
		if !l.Equipped {
			continue
		}
		switch l.Type {
		case shop.ItemAccessory:
			accessory = l.ID
		case shop.ItemBackground:
			background = l.ID
		}
	}
	return accessory, background
}

// ── Lifecycle ────────────────────────────────────────────────────

// Flush waits until every queued write has landed. Call it off the loop.
func (c *Controller) Flush(ctx context.Context) error {
	return c.syncer.Flush(ctx)
}

// Close disposes speech, cancels pending timers and drains queued writes.
func (c *Controller) Close(ctx context.Context) error {
	if c.closed.Swap(true) {
		return nil
	}
	c.speech.Dispose()
	c.sched.Post(c.stopTimers)

	err := c.syncer.Stop(ctx)
	c.cancel()
	c.log.Info("session closed for %s", c.userID)
	return err
}

func (c *Controller) stopTimers() {
	c.cancelSequence()
	if c.chestTimer != nil {
		c.chestTimer.Stop()
		c.chestTimer = nil
	}
	for id, t := range c.rewardTimers {
		t.Stop()
		delete(c.rewardTimers, id)
	}
}

// ── Rewards ──────────────────────────────────────────────────────

func (c *Controller) grant(kind domain.RewardKind, base int) {
	out, err := c.ledger.Grant(kind, base)
	if err != nil {
		c.log.Warn("grant %s %d: %v", kind, base, err)
		return
	}

	ev := out.Event
	c.state.Rewards = append(c.state.Rewards, ev)
	c.rewardTimers[ev.ID] = c.sched.After(reward.RewardWindow(c.profile), func() {
		delete(c.rewardTimers, ev.ID)
		c.dropReward(ev.ID)
		c.notify()
	})

	if kind == domain.RewardStar {
		c.state.Chest = domain.ChestFor(out.Milestone)
		if c.chestTimer != nil {
			c.chestTimer.Stop()
		}
		c.chestTimer = c.sched.After(reward.MilestoneWindow(c.profile, out.Milestone), func() {
			c.chestTimer = nil
			c.state.Chest = domain.ChestClosed
			c.notify()
		})
	}
	if out.LevelsGained > 0 {
		c.log.Info("%s reached level %d", c.userID, c.ledger.Counters().Level)
	}

	c.syncCounters()
	c.persist()
}

func (c *Controller) dropReward(id string) {
	kept := c.state.Rewards[:0]
	for _, r := range c.state.Rewards {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	c.state.Rewards = kept
}

func (c *Controller) syncCounters() {
	counters := c.ledger.Counters()
	c.state.XP = counters.XP
	c.state.Stars = counters.Stars
	c.state.Level = counters.Level
	c.state.Flame = c.ledger.Flame()
}

// ── Persistence ──────────────────────────────────────────────────

// persist queues a full counter write. Every write carries all three
// counters, so a later success repairs an earlier failure.
func (c *Controller) persist() {
	update := c.ledger.Update()
	c.syncer.Enqueue("save progress", func(ctx context.Context) error {
		return c.store.Save(ctx, c.userID, update)
	}, c.saved)
}

func (c *Controller) saved(err error) {
	if err != nil {
		c.log.Error("%v", &domain.PersistenceError{Op: "save", UserID: c.userID, Err: err})
		if !c.state.SyncPending {
			c.state.SyncPending = true
			c.notify()
		}
		return
	}
	if c.state.SyncPending {
		c.state.SyncPending = false
		c.notify()
	}
}

// ── Mood sequencing ──────────────────────────────────────────────

type moodStep struct {
	after time.Duration
	mood  domain.Mood
}

// play runs steps one after another, each after its delay. It replaces any
// sequence already running.
func (c *Controller) play(steps ...moodStep) {
	c.cancelSequence()
	if len(steps) == 0 {
		return
	}
	step, rest := steps[0], steps[1:]
	c.sequence = c.sched.After(step.after, func() {
		c.sequence = nil
		c.state.Mood = step.mood
		c.notify()
		c.play(rest...)
	})
}

func (c *Controller) cancelSequence() {
	if c.sequence != nil {
		c.sequence.Stop()
		c.sequence = nil
	}
}

// ── Output ───────────────────────────────────────────────────────

func (c *Controller) notify() {
	for _, fn := range c.observers {
		fn(c.state.clone())
	}
}

// say hands text to the speaker when voice replies are on. Only the newest
// line waits; a line still playing is cut short.
func (c *Controller) say(text string) {
	if !c.voiceReplies || !c.speech.CanSpeak() {
		return
	}
	select {
	case <-c.lines:
	default:
	}
	// say runs on the loop, so the slot is empty after the drain.
	c.lines <- text

	c.speakMu.Lock()
	if c.stopSpeech != nil {
		c.stopSpeech()
	}
	c.speakMu.Unlock()
}

// speaker speaks queued lines one at a time until the session ends.
func (c *Controller) speaker() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case text := <-c.lines:
			ctx, cancel := context.WithCancel(c.ctx)
			c.speakMu.Lock()
			c.stopSpeech = cancel
			c.speakMu.Unlock()
			if len(c.lines) > 0 {
				cancel()
			}

			err := c.speech.Speak(ctx, text, c.profile.SpeechRate)

			c.speakMu.Lock()
			c.stopSpeech = nil
			c.speakMu.Unlock()
			cancel()

			switch {
			case err == nil,
				errors.Is(err, speech.ErrSuperseded),
				errors.Is(err, domain.ErrSessionClosed),
				errors.Is(err, context.Canceled):
			default:
				c.log.Warn("speaking %q: %v", text, err)
			}
		}
	}
}
