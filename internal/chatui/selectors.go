package chatui

import "regexp"

// Selectors names the page elements the helpers touch. The defaults match
// the chat app; override fields when the markup differs.
type Selectors struct {
	// Login
	ContinueWithEmail string // button text on the first two login steps
	EmailInput        string
	PasswordInput     string
	Continue          string // exact button text on the password step

	// Header
	CreditsValue *regexp.Regexp // text of the balance element
	CreditsBadge string         // present only while signed in
	Avatars      []string       // avatar button candidates, most specific first
	UserMenu     string         // fallback menu trigger
	LogOut       string

	// Chat
	AskBox              string   // accessible name of the message box
	InsufficientNotices []string // text selectors for the out-of-credits notice
}

// DefaultSelectors returns selectors for the chat app.
func DefaultSelectors() Selectors {
	return Selectors{
		ContinueWithEmail: "Continue with Email",
		EmailInput:        `input[type="email"]`,
		PasswordInput:     `input[type="password"]`,
		Continue:          "Continue",

		CreditsValue: regexp.MustCompile(`^\d+$`),
		CreditsBadge: `div[class*="credits"]`,
		Avatars: []string{
			`button:has(svg):right-of(:text("Credits"))`,
			`button:has(svg):near(:text("Credits"), 100)`,
			`div[role="button"]:has(svg):right-of(:text("Credits"))`,
			`div:has(svg):right-of(:text("Credits"))`,
		},
		UserMenu: `img[alt*="user"]`,
		LogOut:   "Log Out",

		AskBox: "Ask anything",
		InsufficientNotices: []string{
			"text=insufficient credits",
			"text=not enough credits",
		},
	}
}
