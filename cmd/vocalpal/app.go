package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hammamikhairi/vocalpal/internal/config"
	"github.com/hammamikhairi/vocalpal/internal/conversation"
	"github.com/hammamikhairi/vocalpal/internal/display"
	"github.com/hammamikhairi/vocalpal/internal/domain"
	"github.com/hammamikhairi/vocalpal/internal/logger"
	"github.com/hammamikhairi/vocalpal/internal/loop"
	"github.com/hammamikhairi/vocalpal/internal/session"
	"github.com/hammamikhairi/vocalpal/internal/shop"
	"github.com/hammamikhairi/vocalpal/internal/survey"
)

// app drives one terminal session: optional onboarding, then the
// conversation.
type app struct {
	cfg      config.Config
	store    domain.ProgressStore
	lp       *loop.Loop
	ui       *display.UI
	log      *logger.Logger
	noSpeech bool
	ctrl     *session.Controller // nil until the session starts
}

func (a *app) run(ctx context.Context, withSurvey bool) {
	condition := a.cfg.Condition
	if withSurvey {
		c, ok := a.onboard(ctx)
		if !ok {
			return
		}
		condition = c
	}

	sp := newSpeech(ctx, a.cfg, condition, a.lp, a.log.Named("speech"), a.noSpeech)
	a.ctrl = session.New(a.cfg.UserID, condition, sp, a.store, a.lp, a.log.Named("session"),
		session.WithObserver(a.ui.Show),
		session.WithVoiceReplies(a.cfg.VoiceReplies),
	)
	defer a.close()
	if err := a.ctrl.Start(ctx); err != nil {
		a.ui.PrintUrgent(fmt.Sprintf("could not start: %v", err))
		return
	}

	for {
		line, ok := a.next(ctx)
		if !ok {
			return
		}
		if !a.dispatch(display.ParseCommand(line)) {
			return
		}
	}
}

// dispatch handles one prompt command. It returns false on quit.
func (a *app) dispatch(cmd display.Command) bool {
	switch cmd.Kind {
	case display.CmdSay:
		a.lp.Post(func() { a.ctrl.HandleTranscript(cmd.Arg) })
	case display.CmdMic:
		a.lp.Post(a.ctrl.ToggleMic)
	case display.CmdShop:
		a.lp.Post(func() { a.ctrl.ShopView(a.shopDone("shop")) })
	case display.CmdBuy:
		a.lp.Post(func() { a.ctrl.Unlock(cmd.Arg, a.shopDone("buy "+cmd.Arg)) })
	case display.CmdWear:
		a.lp.Post(func() { a.ctrl.Equip(cmd.Arg, a.shopDone("wear "+cmd.Arg)) })
	case display.CmdHelp:
		a.ui.PrintHelp()
	case display.CmdQuit:
		a.ui.PrintTiger("Bye bye! See you soon!")
		return false
	default:
		a.ui.PrintHint(fmt.Sprintf("I don't know %q. Type /help to see what I can do.", cmd.Arg))
	}
	return true
}

// shopDone reports a shop result. It runs on the loop.
func (a *app) shopDone(op string) func(shop.View, error) {
	return func(v shop.View, err error) {
		var perr *domain.PersistenceError
		switch {
		case err == nil:
			a.ui.PrintShop(v)
		case errors.Is(err, domain.ErrUnknownItem):
			a.ui.PrintHint("There's no item with that name. Type /shop to see them.")
		case errors.Is(err, domain.ErrNotEnoughStars):
			// The tiger already said so.
		case errors.Is(err, domain.ErrAlreadyUnlocked):
			a.ui.PrintHint("You already have that one!")
		case errors.Is(err, domain.ErrNotUnlocked):
			a.ui.PrintHint("Unlock it first with /buy.")
		case errors.Is(err, domain.ErrNotEquippable):
			a.ui.PrintHint("Stories can't be worn.")
		case errors.As(err, &perr):
			a.ui.PrintUrgent("The shop is having trouble right now. Try again in a bit.")
			a.log.Warn("%s: %v", op, err)
		default:
			a.ui.PrintUrgent(fmt.Sprintf("%s failed: %v", op, err))
		}
	}
}

// onboard asks the survey questions and saves the answers. It returns the
// chosen condition.
func (a *app) onboard(ctx context.Context) (string, bool) {
	sv := survey.New(a.log.Named("survey"))
	qs := survey.Questions()
	options := survey.ConditionOptions()

	a.ui.PrintTiger("Hi! Before we play, tell me a little about you.")
	for i := sv.Next(); i != -1; i = sv.Next() {
		q := qs[i]
		a.ui.PrintTiger(q.Text)
		if q.Kind == survey.KindCondition {
			for n, o := range options {
				a.ui.PrintHint(fmt.Sprintf("%d. %s: %s", n+1, o.Label, o.Description))
			}
		} else {
			a.ui.PrintHint("yes, no or sometimes")
		}

		line, ok := a.next(ctx)
		if !ok {
			return "", false
		}
		if display.ParseCommand(line).Kind == display.CmdQuit {
			return "", false
		}
		if err := answerSurvey(sv, i, q, options, line); err != nil {
			a.log.Debug("survey answer: %v", err)
			a.ui.PrintTiger(conversation.LineDidNotCatch())
		}
	}

	tag, err := sv.Submit(ctx, a.store, a.cfg.UserID)
	if err != nil {
		a.ui.PrintUrgent(fmt.Sprintf("survey: %v", err))
		return "", false
	}
	return tag.String(), true
}

// answerSurvey accepts an option number for the condition question and
// free text for everything.
func answerSurvey(sv *survey.Survey, i int, q survey.Question, options []survey.ConditionOption, line string) error {
	line = strings.TrimSpace(line)
	if q.Kind == survey.KindCondition {
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(options) {
			return sv.Answer(i, options[n-1].ID)
		}
	}
	return sv.AnswerVoice(i, line)
}

func (a *app) next(ctx context.Context) (string, bool) {
	for {
		select {
		case <-ctx.Done():
			return "", false
		case <-a.ui.QuitChan():
			return "", false
		case line, ok := <-a.ui.InputChan():
			if !ok {
				return "", false
			}
			if line = strings.TrimSpace(line); line != "" {
				return line, true
			}
		}
	}
}

// close ends the session and waits for pending writes.
func (a *app) close() {
	if a.ctrl == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.ctrl.Close(ctx); err != nil {
		a.log.Warn("session close: %v", err)
	}
}
