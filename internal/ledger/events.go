package ledger

import (
	"bytes"
	"encoding/base64"
	"strings"

	"seeker-scratch/internal/address"
)

const programDataPrefix = "Program data: "

var evReferralQualified = EventDiscriminator("ReferralQualified")

// ReferralQualified is emitted once a referee's spend qualifies the referrer
// for points.
type ReferralQualified struct {
	Referrer address.PublicKey `json:"referrer"`
	Referee  address.PublicKey `json:"referee"`
}

// ProgramData returns the decoded payloads of every "Program data:" line.
func ProgramData(logs []string) [][]byte {
	var out [][]byte
	for _, line := range logs {
		encoded, ok := strings.CutPrefix(line, programDataPrefix)
		if !ok {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
		if err != nil {
			continue
		}
		out = append(out, raw)
	}
	return out
}

func ParseReferralQualified(logs []string) []ReferralQualified {
	var events []ReferralQualified
	for _, raw := range ProgramData(logs) {
		if len(raw) < 8+2*address.PublicKeyLength || !bytes.Equal(raw[:8], evReferralQualified[:]) {
			continue
		}
		var ev ReferralQualified
		copy(ev.Referrer[:], raw[8:40])
		copy(ev.Referee[:], raw[40:72])
		events = append(events, ev)
	}
	return events
}

// EncodeReferralQualified renders the event the way the program logs it.
func EncodeReferralQualified(ev ReferralQualified) string {
	raw := append(append([]byte(nil), evReferralQualified[:]...), ev.Referrer[:]...)
	raw = append(raw, ev.Referee[:]...)
	return programDataPrefix + base64.StdEncoding.EncodeToString(raw)
}
