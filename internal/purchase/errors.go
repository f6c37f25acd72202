package purchase

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest matches every error for a request that was rejected
	// before it was queued.
	ErrInvalidRequest = errors.New("invalid purchase request")
	ErrInvalidEventID = fmt.Errorf("%w: event id must be positive", ErrInvalidRequest)
	ErrInvalidBuyerID = fmt.Errorf("%w: buyer id is required", ErrInvalidRequest)
	ErrUnknownEvent   = fmt.Errorf("%w: event not found", ErrInvalidRequest)

	ErrSoldOut            = errors.New("sold out")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrClosed             = errors.New("purchase coordinator is closed")
)
