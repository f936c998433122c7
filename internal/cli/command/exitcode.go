package command

import (
	"context"
	"errors"

	"github.com/yndnr/wazuh-cli-go/internal/core/domain"
)

// Exit statuses.
const (
	ExitOK         = 0
	ExitError      = 1
	ExitValidation = 2
	ExitAuth       = 3
	ExitNetwork    = 4
	ExitAPI        = 5
	ExitCanceled   = 130
)

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return ExitValidation
	case domain.KindAuth:
		return ExitAuth
	case domain.KindNetwork, domain.KindExhausted:
		return ExitNetwork
	case domain.KindAPI:
		return ExitAPI
	case domain.KindCanceled:
		return ExitCanceled
	}
	if errors.Is(err, context.Canceled) {
		return ExitCanceled
	}
	return ExitError
}
