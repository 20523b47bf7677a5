package reservation

import (
	"crypto/subtle"
	"net/url"

	"hotel-reservation-backend/internal/model"
)

// TokenParam is the query parameter that carries a payment's external
// reference on the provider callback URLs.
const TokenParam = "token"

// withToken returns the callback URLs with the payment reference appended.
func (u CallbackURLs) withToken(ref string) CallbackURLs {
	return CallbackURLs{Success: addToken(u.Success, ref), Cancel: addToken(u.Cancel, ref)}
}

func addToken(raw, ref string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set(TokenParam, ref)
	u.RawQuery = q.Encode()
	return u.String()
}

// tokenMatches reports whether a callback token belongs to the payment.
func tokenMatches(p *model.Payment, token string) bool {
	if p == nil || p.ExternalRef == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(p.ExternalRef), []byte(token)) == 1
}
