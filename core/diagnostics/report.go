package diagnostics

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ideatrek/authgate/core/logger"
	"github.com/ideatrek/authgate/core/session"
)

// Recommendations emitted by Diagnose.
const (
	RecommendConfigure     = "Check that the identity backend URL and API key are set in the environment or .env file"
	RecommendDependency    = "Verify that the session infrastructure is running and reachable"
	RecommendAuthDown      = "The identity service is not responding correctly. Check the backend project settings."
	RecommendAuthSlow      = "The identity service is responding slowly, which can cause sign-in timeouts."
	RecommendEnableCookies = "Your browser is not sending any cookies. Check your browser settings to allow cookies for this site."
	RecommendClearCookies  = "Authentication cookies are missing. Try clearing all browser cookies and sign in again."
	RecommendSafari        = `If using Safari, go to Preferences > Privacy > Website tracking and disable "Prevent cross-site tracking"`
	RecommendFirefox       = `If using Firefox, go to Settings > Privacy & Security and set Enhanced Tracking Protection to "Standard" instead of "Strict"`
	RecommendChrome        = "If using Chrome, make sure third-party cookies are enabled in Settings > Privacy and security > Cookies and other site data"
)

// Potential client issues.
const (
	IssueSafari    = "Safari's Intelligent Tracking Prevention may block cookies"
	IssueFirefox   = "Firefox's Enhanced Tracking Protection may block cookies"
	IssueChrome    = "Chrome's Privacy features may block third-party cookies"
	IssueNoCookies = "No cookies detected - browser may be blocking cookies completely"
)

// EnvVar reports whether a setting is present, showing only a prefix.
type EnvVar struct {
	Exists bool   `json:"exists"`
	Value  string `json:"value,omitempty"`
}

// Environment describes the deployment.
type Environment struct {
	Name      string            `json:"name"`
	Variables map[string]EnvVar `json:"variables"`
}

// Infrastructure holds probe results.
type Infrastructure struct {
	Auth         ServiceStatus            `json:"auth"`
	Dependencies map[string]ServiceStatus `json:"dependencies,omitempty"`
}

// CookieCheck reports whether one expected cookie was sent.
type CookieCheck struct {
	Name  string `json:"name"`
	Found bool   `json:"found"`
}

// Cookies summarizes the cookies a request carried.
type Cookies struct {
	Present          bool          `json:"present"`
	Count            int           `json:"count"`
	AuthCookiesFound bool          `json:"auth_cookies_found"`
	Expected         []CookieCheck `json:"expected"`
}

// Client describes the requesting client.
type Client struct {
	UserAgent       string   `json:"user_agent"`
	Type            string   `json:"type"`
	IP              string   `json:"ip"`
	Cookies         Cookies  `json:"cookies"`
	PotentialIssues []string `json:"potential_issues"`
}

// Report is the full sign-in troubleshooting report.
type Report struct {
	Status          string         `json:"status"`
	Timestamp       time.Time      `json:"timestamp"`
	Environment     Environment    `json:"environment"`
	Infrastructure  Infrastructure `json:"infrastructure"`
	Client          Client         `json:"client"`
	Recommendations []string       `json:"recommendations"`
}

// Diagnose probes the backend and dependencies and inspects r for cookie
// and browser problems.
func (d *Diagnostician) Diagnose(ctx context.Context, r *http.Request) *Report {
	authStatus, deps := d.probeAll(ctx)
	ua := ParseUserAgent(userAgent(r))

	rep := &Report{
		Status:    "success",
		Timestamp: d.now().UTC(),
		Environment: Environment{
			Name: d.environment(),
			Variables: map[string]EnvVar{
				"identity_url": {Exists: d.cfg.IdentityURL != "", Value: mask(d.cfg.IdentityURL, 10)},
				"identity_key": {Exists: d.cfg.IdentityKey != "", Value: mask(d.cfg.IdentityKey, 10)},
			},
		},
		Infrastructure: Infrastructure{Auth: authStatus, Dependencies: deps},
		Client: Client{
			UserAgent:       ua.Raw,
			Type:            ua.Type(),
			IP:              d.clientIP(r),
			Cookies:         d.inspectCookies(r),
			PotentialIssues: []string{},
		},
		Recommendations: []string{},
	}

	issues := &rep.Client.PotentialIssues
	if ua.Safari {
		*issues = append(*issues, IssueSafari)
	}
	if ua.Firefox {
		*issues = append(*issues, IssueFirefox)
	}
	if ua.Chrome {
		*issues = append(*issues, IssueChrome)
	}
	if rep.Client.Cookies.Count == 0 {
		*issues = append(*issues, IssueNoCookies)
	}

	recs := &rep.Recommendations
	if d.cfg.IdentityURL == "" || d.cfg.IdentityKey == "" {
		*recs = append(*recs, RecommendConfigure)
	}
	for _, st := range deps {
		if !st.Operational {
			*recs = append(*recs, RecommendDependency)
			break
		}
	}
	if !authStatus.Operational {
		*recs = append(*recs, RecommendAuthDown)
	}
	if authStatus.Slow {
		*recs = append(*recs, RecommendAuthSlow)
	}
	switch {
	case !rep.Client.Cookies.Present:
		*recs = append(*recs, RecommendEnableCookies)
	case !rep.Client.Cookies.AuthCookiesFound:
		*recs = append(*recs, RecommendClearCookies)
	}
	if ua.Safari {
		*recs = append(*recs, RecommendSafari)
	}
	if ua.Firefox {
		*recs = append(*recs, RecommendFirefox)
	}
	if ua.Chrome {
		*recs = append(*recs, RecommendChrome)
	}

	d.log.InfoContext(ctx, "auth diagnosis generated",
		logger.Component("diagnostics"),
		logger.Count("issues", len(rep.Client.PotentialIssues)),
		logger.Count("recommendations", len(rep.Recommendations)))
	return rep
}

func (d *Diagnostician) inspectCookies(r *http.Request) Cookies {
	c := Cookies{Expected: make([]CookieCheck, 0, len(d.cfg.CookieNames))}
	if r == nil {
		for _, name := range d.cfg.CookieNames {
			c.Expected = append(c.Expected, CookieCheck{Name: name})
		}
		return c
	}

	sent := r.Cookies()
	c.Count = len(sent)
	c.Present = c.Count > 0
	for _, name := range d.cfg.CookieNames {
		found := false
		for _, ck := range sent {
			// Chunked cookies carry a suffix such as ".0".
			if strings.Contains(ck.Name, name) {
				found = true
				break
			}
		}
		c.Expected = append(c.Expected, CookieCheck{Name: name, Found: found})
		c.AuthCookiesFound = c.AuthCookiesFound || found
	}
	return c
}

// IdentityInfo describes the identity backend configuration without
// revealing it.
type IdentityInfo struct {
	URL           string `json:"url"`
	HasKey        bool   `json:"has_key"`
	KeyConfigured bool   `json:"key_configured"`
}

// SessionInfo describes the session found on the request.
type SessionInfo struct {
	Exists    bool          `json:"exists"`
	User      *session.User `json:"user,omitempty"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// AuthStatus combines backend health and the current session.
type AuthStatus struct {
	Service ServiceStatus `json:"service"`
	Session SessionInfo   `json:"session"`
}

// StatusClient is the client part of a StatusReport.
type StatusClient struct {
	UserAgent      string `json:"user_agent"`
	IP             string `json:"ip"`
	CookiesPresent bool   `json:"cookies_present"`
}

// StatusReport is the lightweight auth status answer.
type StatusReport struct {
	Status       string                   `json:"status"`
	Timestamp    time.Time                `json:"timestamp"`
	Environment  string                   `json:"environment"`
	Identity     IdentityInfo             `json:"identity"`
	Auth         AuthStatus               `json:"auth"`
	Dependencies map[string]ServiceStatus `json:"dependencies,omitempty"`
	Client       StatusClient             `json:"client"`
}

// SessionReader reads the current session. *session.Store implements it.
type SessionReader interface {
	Get(ctx context.Context) (*session.Session, error)
}

// Status probes the backend and reports the session carried by r.
// sessions may be nil when no session context is available.
func (d *Diagnostician) Status(ctx context.Context, r *http.Request, sessions SessionReader) *StatusReport {
	authStatus, deps := d.probeAll(ctx)

	rep := &StatusReport{
		Status:       "success",
		Timestamp:    d.now().UTC(),
		Environment:  d.environment(),
		Identity:     d.identityInfo(),
		Auth:         AuthStatus{Service: authStatus},
		Dependencies: deps,
		Client: StatusClient{
			UserAgent:      userAgent(r),
			IP:             d.clientIP(r),
			CookiesPresent: r != nil && len(r.Cookies()) > 0,
		},
	}

	if sessions != nil {
		sess, err := sessions.Get(ctx)
		switch {
		case err != nil:
			rep.Auth.Session.Error = err.Error()
		case sess != nil:
			user := sess.User
			exp := sess.ExpiresAt
			rep.Auth.Session = SessionInfo{Exists: true, User: &user, ExpiresAt: &exp}
		}
	}
	return rep
}

func (d *Diagnostician) identityInfo() IdentityInfo {
	info := IdentityInfo{
		URL:           "Not configured",
		HasKey:        d.cfg.IdentityKey != "",
		KeyConfigured: d.cfg.IdentityKey != "" && d.cfg.IdentityKey != placeholderKey,
	}
	if d.cfg.IdentityURL != "" {
		scheme, _, found := strings.Cut(d.cfg.IdentityURL, "//")
		if found {
			info.URL = scheme + "//******"
		} else {
			info.URL = "******"
		}
	}
	return info
}

func (d *Diagnostician) environment() string {
	if d.cfg.Environment == "" {
		return "unknown"
	}
	return d.cfg.Environment
}

func userAgent(r *http.Request) string {
	if r == nil {
		return "Unknown"
	}
	if ua := r.UserAgent(); ua != "" {
		return ua
	}
	return "Unknown"
}
