package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped
// with fmt.Errorf) and services translate them into domain errors:
//   - ErrNotFound: the catalog entry, subscription, coupon or record does not exist
//   - ErrConflict: a unique key (service key, plan name, coupon code) is taken
//   - ErrExhausted: a counted resource (coupon uses) hit its cap
//   - ErrUnavailable: the backing service cannot be reached
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrExhausted   = errors.New("exhausted")
	ErrUnavailable = errors.New("unavailable")
)
