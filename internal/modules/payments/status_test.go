package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		in   string
		want State
	}{
		{"SUCCESS", StateSuccess},
		{"success", StateSuccess},
		{"PAID", StateSuccess},
		{"FAILED", StateFailed},
		{"CANCELLED", StateFailed},
		{"USER_DROPPED", StateFailed},
		{"PENDING", StatePending},
		{"NOT_ATTEMPTED", StatePending},
		{"ACTIVE", StatePending},
		{"", StatePending},
		// Unrecognized statuses must never classify as success.
		{"WEIRD_STATE", StatePending},
		{"SUCCESSFUL_MAYBE", StatePending},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.in), "status %q", tc.in)
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, StateSuccess.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.True(t, StateError.Terminal())
	assert.False(t, StatePending.Terminal())
	assert.False(t, StateLoading.Terminal())
}
