package conversation

import "github.com/hammamikhairi/vocalpal/internal/domain"

// lines.go centralises every string the tiger shows in its speech bubble.
// Keep lines short; they are also spoken when voice replies are enabled.

// ── Greeting ─────────────────────────────────────────────────────

func LineGreeting() string {
	return "Hi, buddy! Say anything!"
}

// ── Replies ──────────────────────────────────────────────────────

func LineGreetingReply() string {
	return "Hi there! I'm your VocalPal!"
}

func LineDogReply() string {
	return "Woof! I love dogs too!"
}

// LineEcho repeats the child's words back when nothing else matched.
func LineEcho(text string) string {
	return "I heard you say: " + text
}

// Reply returns the bubble text for a classified intent.
func Reply(intent domain.Intent) string {
	switch intent.Type {
	case domain.IntentGreeting:
		return LineGreetingReply()
	case domain.IntentHappy:
		return LineDogReply()
	default:
		return LineEcho(intent.Text)
	}
}

// ── Microphone ───────────────────────────────────────────────────

func LineListening() string {
	return "I'm listening..."
}

func LineDidNotHear() string {
	return "I couldn't hear you. Could you try again?"
}

func LineStillWakingUp() string {
	return "Oops! I'm still waking up. Try again in a moment!"
}

func LineTroubleHearing() string {
	return "I'm having trouble hearing you. Please try again!"
}

func LineNoRecognition() string {
	return "Sorry, speech recognition isn't available on this device."
}

// ── Shop ─────────────────────────────────────────────────────────

func LineUnlocked(name string) string {
	return "Yay! You unlocked " + name + "!"
}

func LineNeedMoreStars() string {
	return "You need more stars for that one. Keep talking!"
}

// ── Survey ───────────────────────────────────────────────────────

func LineDidNotCatch() string {
	return "Sorry, I didn't catch that. Please try again or use the buttons."
}
