package mlm

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("root participant already exists")
	ErrAlreadyRegistered = errors.New("wallet address already registered")
	ErrAlreadyStaked     = errors.New("participant has already staked")
	ErrInvalidAmount     = errors.New("staking amount must be positive")
	ErrInvalidAddress    = errors.New("wallet address is required")
	ErrInvalidCycle      = errors.New("accrual cycle must be a YYYY-MM-DD date")

	ErrNotRegistered   = fmt.Errorf("participant %w", ErrNotFound)
	ErrSponsorNotFound = fmt.Errorf("sponsor %w", ErrNotFound)
)
