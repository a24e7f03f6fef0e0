package payments

import "strings"

// State is the client-observed payment state machine:
// loading -> {success, failed, pending, error}. pending is the only
// non-terminal state; error means "we could not verify", which callers
// must present differently from a gateway-reported failure.
type State string

const (
	StateLoading State = "loading"
	StateSuccess State = "success"
	StateFailed  State = "failed"
	StatePending State = "pending"
	StateError   State = "error"
)

func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailed || s == StateError
}

var statusBuckets = map[string]State{
	"SUCCESS": StateSuccess,
	"PAID":    StateSuccess,

	"FAILED":       StateFailed,
	"FAILURE":      StateFailed,
	"CANCELLED":    StateFailed,
	"USER_DROPPED": StateFailed,
	"VOID":         StateFailed,

	"PENDING":       StatePending,
	"NOT_ATTEMPTED": StatePending,
	"ACTIVE":        StatePending,
}

// Classify buckets a gateway status string. Unknown strings map to
// pending, never to success: treating an unrecognized status as paid is
// the fail-open bug this table exists to prevent.
func Classify(gatewayStatus string) State {
	if s, ok := statusBuckets[strings.ToUpper(strings.TrimSpace(gatewayStatus))]; ok {
		return s
	}
	return StatePending
}
