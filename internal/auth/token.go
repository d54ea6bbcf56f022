package auth

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// TokenSeparator joins the email and the issuance timestamp. It is not a
// character expected inside an email address.
const TokenSeparator = "|"

// ErrMalformedToken is returned when a token carries no identity segment.
var ErrMalformedToken = errors.New("malformed auth token")

// IssueToken builds the opaque bearer token for a user: the email, the
// separator and the issuance time in unix milliseconds.
//
// The token is a claim, not a proof: it is neither signed nor expiring, and
// the identity it names is authenticated only by looking the email up in the
// identity store. A production deployment would swap this for a signed token
// without touching the ledger service contract.
func IssueToken(email string) string {
	return email + TokenSeparator + strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// ResolveEmail extracts the claimed email from a token: everything before the
// first separator. No cryptographic or expiry check is performed here.
func ResolveEmail(token string) (string, error) {
	email, _, found := strings.Cut(token, TokenSeparator)
	if !found || email == "" {
		return "", ErrMalformedToken
	}
	return email, nil
}
