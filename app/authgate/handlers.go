package authgate

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ideatrek/authgate/core/auth"
	"github.com/ideatrek/authgate/core/binder"
	"github.com/ideatrek/authgate/core/guard"
	"github.com/ideatrek/authgate/core/handler"
	"github.com/ideatrek/authgate/core/logger"
	"github.com/ideatrek/authgate/core/response"
	"github.com/ideatrek/authgate/core/session"
)

// CookieTestName is the cookie round-tripped by the cookie test endpoint.
const CookieTestName = "authgate-cookie-test"

type credentialsRequest struct {
	Email      string `json:"email" form:"email"`
	Password   string `json:"password" form:"password"`
	RedirectTo string `json:"redirectTo" form:"redirectTo"`
}

type resetRequest struct {
	Email string `json:"email" form:"email"`
}

type callbackQuery struct {
	Code             string `query:"code"`
	CodeVerifier     string `query:"code_verifier"`
	Error            string `query:"error"`
	ErrorDescription string `query:"error_description"`
}

type sessionResponse struct {
	Authenticated bool          `json:"authenticated"`
	User          *session.User `json:"user,omitempty"`
	ExpiresAt     *time.Time    `json:"expires_at,omitempty"`
}

func sessionBody(sess *session.Session) sessionResponse {
	if sess == nil {
		return sessionResponse{}
	}
	user, exp := sess.User, sess.ExpiresAt
	return sessionResponse{Authenticated: true, User: &user, ExpiresAt: &exp}
}

// authError renders a failed auth operation as an API error.
func authError(err error) handler.Response {
	var e *auth.Error
	if !errors.As(err, &e) {
		return response.Error(err)
	}
	details := map[string]any{}
	if e.Attempts > 0 {
		details["attempts"] = e.Attempts
	}
	if e.Elapsed > 0 {
		details["elapsed_ms"] = e.Elapsed.Milliseconds()
	}
	return response.Error(response.HTTPError{
		Status:  e.StatusCode(),
		Code:    string(e.Kind),
		Message: e.Message,
		Details: details,
	})
}

func bindCredentials(c *Context, v any) error {
	if err := binder.Body()(c.Request(), v); err != nil {
		return response.ErrBadRequest.WithMessage("Invalid request body").WithError(err)
	}
	return nil
}

func (a *App) apiSignIn(c *Context) handler.Response {
	var in credentialsRequest
	if err := bindCredentials(c, &in); err != nil {
		return response.Error(err)
	}
	sess, err := a.authn.SignIn(c, c.Store(), in.Email, in.Password)
	if err != nil {
		return authError(err)
	}
	return response.NoCache(response.JSON(sessionBody(sess)))
}

func (a *App) apiSignUp(c *Context) handler.Response {
	var in credentialsRequest
	if err := bindCredentials(c, &in); err != nil {
		return response.Error(err)
	}
	sess, err := a.authn.SignUp(c, c.Store(), in.Email, in.Password)
	if err != nil {
		return authError(err)
	}
	if sess == nil {
		return response.JSONWithStatus(map[string]any{
			"status":  "pending_confirmation",
			"message": "Check your email to confirm your account.",
		}, http.StatusAccepted)
	}
	return response.NoCache(response.JSONWithStatus(sessionBody(sess), http.StatusCreated))
}

func (a *App) apiReset(c *Context) handler.Response {
	var in resetRequest
	if err := bindCredentials(c, &in); err != nil {
		return response.Error(err)
	}
	if err := a.authn.ResetPassword(c, in.Email); err != nil {
		return authError(err)
	}
	return response.JSONWithStatus(map[string]string{
		"status":  "sent",
		"message": "If an account exists for this email, a reset link is on its way.",
	}, http.StatusAccepted)
}

func (a *App) apiSignOut(c *Context) handler.Response {
	if err := a.authn.SignOut(c, c.Store()); err != nil {
		return authError(err)
	}
	return response.NoContent()
}

func (a *App) apiSession(c *Context) handler.Response {
	sess, err := c.Store().Get(c)
	if err != nil {
		a.log.DebugContext(c, "session read failed",
			logger.Component("api"), logger.Error(err))
		sess = nil
	}
	return response.NoCache(response.JSON(sessionBody(sess)))
}

func (a *App) apiStatus(c *Context) handler.Response {
	return response.NoCache(response.JSON(a.diag.Status(c, c.Request(), c.Store())))
}

func (a *App) apiDiagnose(c *Context) handler.Response {
	return response.NoCache(response.JSON(a.diag.Diagnose(c, c.Request())))
}

// apiCookieTest sets a test cookie and reports whether the previous one
// came back. Two calls in a row tell whether the browser stores cookies.
func (a *App) apiCookieTest(c *Context) handler.Response {
	_, err := c.Request().Cookie(CookieTestName)
	received := err == nil

	if err := a.cookies.Set(c.ResponseWriter(), CookieTestName, "1"); err != nil {
		return response.Error(response.ErrInternalServerError.WithError(err))
	}
	return response.NoCache(response.JSON(map[string]any{
		"received":      received,
		"cookies_count": len(c.Request().Cookies()),
		"user_agent":    c.Request().UserAgent(),
	}))
}

// formSignIn handles the HTML sign-in form. Failures return to the form
// with the error kind in the query.
func (a *App) formSignIn(c *Context) handler.Response {
	var in credentialsRequest
	if err := binder.Form()(c.Request(), &in); err != nil {
		return response.RedirectSeeOther(signInError(string(auth.Unknown), ""))
	}
	target := safeRedirect(in.RedirectTo)

	if _, err := a.authn.SignIn(c, c.Store(), in.Email, in.Password); err != nil {
		kind := auth.Unknown
		var e *auth.Error
		if errors.As(err, &e) {
			kind = e.Kind
		}
		return response.RedirectSeeOther(signInError(string(kind), in.RedirectTo))
	}
	return response.FullReload(target)
}

func signInError(kind, redirectTo string) string {
	q := url.Values{}
	q.Set(guard.ParamError, kind)
	if redirectTo != "" {
		q.Set(guard.ParamRedirectTo, safeRedirect(redirectTo))
	}
	return guard.SignInPath + "?" + q.Encode()
}

// safeRedirect keeps only same-origin absolute paths.
func safeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return guard.DashboardPath
	}
	return target
}

func (a *App) callback(c *Context) handler.Response {
	var q callbackQuery
	if err := binder.Query()(c.Request(), &q); err != nil {
		a.log.WarnContext(c, "malformed callback query",
			logger.Component("callback"), logger.Error(err))
	}
	providerErr := q.Error
	if q.ErrorDescription != "" {
		providerErr = q.ErrorDescription
	}

	f := auth.NewFinalizer(c.Store(), auth.WithFinalizerLogger(a.log))
	t := f.Complete(c, auth.Callback{
		Code:          q.Code,
		CodeVerifier:  q.CodeVerifier,
		ProviderError: providerErr,
	})
	if t.FullReload {
		return response.FullReload(t.URL)
	}
	return response.RedirectSeeOther(t.URL)
}

func defaultPage(c *Context) handler.Response {
	who := "anonymous"
	if sess, ok := c.Session(); ok {
		who = sess.User.Email
		if who == "" {
			who = sess.User.ID
		}
	}
	return response.HTML(fmt.Sprintf(
		"<!doctype html><html><body><main><h1>%s</h1><p>Signed in as %s</p></main></body></html>",
		html.EscapeString(c.Request().URL.Path), html.EscapeString(who)))
}
