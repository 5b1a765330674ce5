package backtest

import "errors"

// Malformed input is fatal for a run; order rejections are not errors,
// they land in the trade log with a reason code.
var (
	ErrBadConfig    = errors.New("invalid backtest config")
	ErrBadBar       = errors.New("malformed bar")
	ErrNonMonotonic = errors.New("non-monotonic bar timestamps")
	ErrStrategy     = errors.New("strategy fault")
)
