package orders

import (
	"fmt"
	"regexp"
	"strings"
)

// The order note packs the report inputs into the gateway's free-text
// field so they survive even if the local metadata row is lost. The
// structured order_meta row is authoritative; parsing the note back out
// is the fallback path only.

const NotSpecified = "Not specified"

type ParsedNote struct {
	ServiceType    string
	DateOfBirth    string
	WhatsappNumber string
	Reason         string
}

func BuildOrderNote(serviceType, dateOfBirth, whatsapp, reason string) string {
	return fmt.Sprintf("Payment for %s - DOB: %s | WhatsApp: %s | Reason: %s",
		serviceType, dateOfBirth, whatsapp, reason)
}

var (
	noteServiceRe  = regexp.MustCompile(`^Payment for (.+?) - `)
	noteDOBRe      = regexp.MustCompile(`DOB:\s*([^|]+)`)
	noteWhatsappRe = regexp.MustCompile(`WhatsApp:\s*([^|]+)`)
	noteReasonRe   = regexp.MustCompile(`Reason:\s*(.+)$`)
)

// ParseOrderNote recovers the packed fields. It never fails: any segment
// the regexes cannot match degrades to NotSpecified so a malformed note
// only costs email content quality, never the confirmation itself.
func ParseOrderNote(note string) ParsedNote {
	p := ParsedNote{
		ServiceType:    NotSpecified,
		DateOfBirth:    NotSpecified,
		WhatsappNumber: NotSpecified,
		Reason:         NotSpecified,
	}
	if note == "" {
		return p
	}
	if m := noteServiceRe.FindStringSubmatch(note); m != nil {
		p.ServiceType = strings.TrimSpace(m[1])
	}
	if m := noteDOBRe.FindStringSubmatch(note); m != nil {
		p.DateOfBirth = strings.TrimSpace(m[1])
	}
	if m := noteWhatsappRe.FindStringSubmatch(note); m != nil {
		p.WhatsappNumber = strings.TrimSpace(m[1])
	}
	if m := noteReasonRe.FindStringSubmatch(note); m != nil {
		p.Reason = strings.TrimSpace(m[1])
	}
	return p
}
