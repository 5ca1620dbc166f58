package webhook

import "crypto/subtle"

// ModeSubscribe is the only hub.mode the handshake accepts.
const ModeSubscribe = "subscribe"

// Verdict is the outcome of a subscription handshake.
type Verdict int

const (
	// VerdictAccepted: echo the challenge with 200.
	VerdictAccepted Verdict = iota
	// VerdictForbidden: mode or token is wrong, answer 403.
	VerdictForbidden
	// VerdictIncomplete: mode or token is missing, answer 400.
	VerdictIncomplete
)

// Verifier answers the platform's subscription challenge.
type Verifier struct {
	verifyToken string
}

func NewVerifier(verifyToken string) *Verifier {
	return &Verifier{verifyToken: verifyToken}
}

// Verify checks hub.mode and hub.verify_token. An empty configured token
// never matches, so an unconfigured service rejects every handshake.
func (v *Verifier) Verify(mode, token string) Verdict {
	if mode == "" || token == "" {
		return VerdictIncomplete
	}
	if mode != ModeSubscribe || v.verifyToken == "" {
		return VerdictForbidden
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(v.verifyToken)) != 1 {
		return VerdictForbidden
	}
	return VerdictAccepted
}
