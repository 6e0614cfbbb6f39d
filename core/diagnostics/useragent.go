package diagnostics

import "regexp"

var (
	browserRe = regexp.MustCompile(`(?i)chrome|safari|firefox|edge|opera`)
	botRe     = regexp.MustCompile(`(?i)bot|crawler|spider`)
	mobileRe  = regexp.MustCompile(`(?i)android|iphone|ipad|mobile`)
	safariRe  = regexp.MustCompile(`(?i)safari`)
	chromeRe  = regexp.MustCompile(`(?i)chrome`)
	firefoxRe = regexp.MustCompile(`(?i)firefox`)
	edgeRe    = regexp.MustCompile(`(?i)edg`)
)

// UserAgent holds the browser traits that affect cookie storage.
type UserAgent struct {
	Raw     string
	Browser bool
	Bot     bool
	Mobile  bool
	// Safari excludes Chromium browsers, whose UA also mentions Safari.
	Safari  bool
	Chrome  bool
	Firefox bool
	Edge    bool
}

// ParseUserAgent classifies a User-Agent header value.
func ParseUserAgent(ua string) UserAgent {
	return UserAgent{
		Raw:     ua,
		Browser: browserRe.MatchString(ua),
		Bot:     botRe.MatchString(ua),
		Mobile:  mobileRe.MatchString(ua),
		Safari:  safariRe.MatchString(ua) && !chromeRe.MatchString(ua),
		Chrome:  chromeRe.MatchString(ua),
		Firefox: firefoxRe.MatchString(ua),
		Edge:    edgeRe.MatchString(ua),
	}
}

// Type is one of browser, bot, mobile or unknown, in that precedence.
func (u UserAgent) Type() string {
	switch {
	case u.Browser:
		return "browser"
	case u.Bot:
		return "bot"
	case u.Mobile:
		return "mobile"
	default:
		return "unknown"
	}
}
