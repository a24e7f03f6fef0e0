package orders

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// NewOrderID returns an id like astro_1717000000000_042. The millisecond
// timestamp keeps ids traceable in the gateway dashboard; the random
// suffix covers two orders landing in the same millisecond. There is no
// collision-retry loop; at this site's volume the entropy is sufficient.
func NewOrderID() string {
	return "astro_" + fmt.Sprintf("%d_%03d", time.Now().UnixMilli(), randN(1000))
}

// NewTestOrderID prefixes the id so sandbox orders are visually
// distinguishable and filterable in the gateway dashboard.
func NewTestOrderID() string {
	return "TEST_" + NewOrderID()
}

// CustomerIDFromEmail derives a gateway-safe customer id from an email.
// The transform is lossy (lowercase, non-alphanumerics collapsed to a
// single underscore, trimmed); a time-based suffix reduces collisions
// between repeat customers.
func CustomerIDFromEmail(email string, now time.Time) string {
	var b strings.Builder
	prevUnderscore := false
	for _, r := range strings.ToLower(email) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			prevUnderscore = false
			continue
		}
		if !prevUnderscore {
			b.WriteByte('_')
			prevUnderscore = true
		}
	}
	base := strings.Trim(b.String(), "_")

	ts := fmt.Sprintf("%d", now.UnixMilli())
	if len(ts) > 6 {
		ts = ts[len(ts)-6:]
	}
	return "customer_" + base + "_" + ts
}

func randN(n int) int {
	b := make([]byte, 2)
	_, _ = rand.Read(b)
	return (int(b[0])<<8 | int(b[1])) % n
}
