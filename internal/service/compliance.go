package service

import (
	"strings"

	"github.com/unclebandit/partnerline/internal/model"
)

const (
	DenyOptedOut       = "OPTED_OUT"
	DenyUnknownPartner = "UNKNOWN_PARTNER"
)

// Decision is the gate's answer for one send.
type Decision struct {
	Allowed bool
	Reason  string
}

func Allow() Decision             { return Decision{Allowed: true} }
func Deny(reason string) Decision { return Decision{Reason: reason} }
func (d Decision) Denied() bool   { return !d.Allowed }

var optOutKeywords = map[string]struct{}{
	"stop":        {},
	"unsubscribe": {},
	"cancel":      {},
	"quit":        {},
	"end":         {},
}

// ComplianceGate decides whether a partner may be messaged.
type ComplianceGate struct{}

// Admit must be given a freshly read partner row.
func (ComplianceGate) Admit(p *model.Partner) Decision {
	if p == nil {
		return Deny(DenyUnknownPartner)
	}
	if p.OptedOut {
		return Deny(DenyOptedOut)
	}
	return Allow()
}

// IsOptOut reports whether an inbound body is exactly an opt-out keyword,
// ignoring case and surrounding whitespace.
func (ComplianceGate) IsOptOut(body string) bool {
	_, ok := optOutKeywords[strings.ToLower(strings.TrimSpace(body))]
	return ok
}
