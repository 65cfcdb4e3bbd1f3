package bybit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// signer produces the X-BAPI-* authentication headers for Bybit v5 requests.
// The signature is HMAC-SHA256(secret, timestamp+apiKey+recvWindow+payload)
// hex-encoded, where payload is the raw query string for GET requests and the
// raw JSON body for POST requests.
type signer struct {
	apiKey     string
	apiSecret  []byte
	recvWindow string
	now        func() time.Time
}

func newSigner(apiKey, apiSecret string, recvWindowMS int) *signer {
	return &signer{
		apiKey:     apiKey,
		apiSecret:  []byte(apiSecret),
		recvWindow: strconv.Itoa(recvWindowMS),
		now:        time.Now,
	}
}

func (s *signer) headers(payload string) map[string]string {
	ts := strconv.FormatInt(s.now().UnixMilli(), 10)
	return map[string]string{
		"X-BAPI-API-KEY":     s.apiKey,
		"X-BAPI-TIMESTAMP":   ts,
		"X-BAPI-RECV-WINDOW": s.recvWindow,
		"X-BAPI-SIGN":        s.signAt(ts, payload),
	}
}

func (s *signer) signAt(ts, payload string) string {
	mac := hmac.New(sha256.New, s.apiSecret)
	mac.Write([]byte(ts + s.apiKey + s.recvWindow + payload))
	return hex.EncodeToString(mac.Sum(nil))
}
