package health

import (
	"github.com/ideatrek/authgate/core/handler"
	"github.com/ideatrek/authgate/core/response"
)

// Liveness reports that the process is running. It checks no dependencies.
func Liveness[C handler.Context](C) handler.Response {
	return response.String("ALIVE")
}
