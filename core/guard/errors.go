package guard

import "errors"

// ErrBypassInProduction is returned when the debug bypass is enabled for a
// production environment.
var ErrBypassInProduction = errors.New("guard: debug bypass cannot be enabled in production")
