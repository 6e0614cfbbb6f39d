package guard

import "strings"

// Well-known paths.
const (
	RootPath       = "/"
	DashboardPath  = "/dashboard"
	SignInPath     = "/landing/signin"
	RegisterPath   = "/landing/register"
	OnboardingPath = "/landing/onboarding"
	CallbackPath   = "/auth/callback"
)

// Query parameter names.
const (
	ParamRedirectTo   = "redirectTo"
	ParamSessionError = "sessionError"
	ParamDebugBypass  = "debugBypass"
	ParamError        = "error"
)

// Class is a route class.
type Class int

const (
	Public Class = iota
	Root
	Protected
	AuthOnly
)

func (c Class) String() string {
	switch c {
	case Root:
		return "root"
	case Protected:
		return "protected"
	case AuthOnly:
		return "auth_only"
	default:
		return "public"
	}
}

// Routes lists the path prefixes of each guarded class.
type Routes struct {
	Protected []string
	AuthOnly  []string
}

// DefaultRoutes returns the dashboard/onboarding and sign-in/registration sets.
func DefaultRoutes() Routes {
	return Routes{
		Protected: []string{DashboardPath, OnboardingPath},
		AuthOnly:  []string{SignInPath, RegisterPath},
	}
}

// Classify returns the class of path.
func (r Routes) Classify(path string) Class {
	if path == "" || path == RootPath {
		return Root
	}
	if matchAny(path, r.Protected) {
		return Protected
	}
	if matchAny(path, r.AuthOnly) {
		return AuthOnly
	}
	return Public
}

// Classify classifies path against DefaultRoutes.
func Classify(path string) Class {
	return DefaultRoutes().Classify(path)
}

func matchAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		p = strings.TrimRight(p, "/")
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
