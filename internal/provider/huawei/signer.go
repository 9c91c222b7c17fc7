package huawei

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sort"
	"strings"
	"time"
)

const (
	signAlgorithm = "SDK-HMAC-SHA256"
	dateHeader    = "X-Sdk-Date"
	dateFormat    = "20060102T150405Z"
)

// signer implements the Huawei Cloud SDK-HMAC-SHA256 scheme. The canonical
// URI always ends in a slash and the signature covers the hex SHA-256 of the
// request body.
type signer struct {
	keyID  string
	secret string
	now    func() time.Time
}

func newSigner(keyID, secret string) *signer {
	return &signer{keyID: keyID, secret: secret, now: time.Now}
}

func (s *signer) sign(req *http.Request, body []byte) {
	timestamp := s.now().UTC().Format(dateFormat)
	req.Header.Set(dateHeader, timestamp)
	req.Header.Set("Host", req.URL.Host)

	names := []string{"host", "x-sdk-date"}
	if req.Header.Get("Content-Type") != "" {
		names = append(names, "content-type")
	}
	sort.Strings(names)

	var canonicalHeaders strings.Builder
	for _, name := range names {
		value := req.Header.Get(name)
		if name == "host" {
			value = req.URL.Host
		}
		canonicalHeaders.WriteString(name)
		canonicalHeaders.WriteString(":")
		canonicalHeaders.WriteString(strings.TrimSpace(value))
		canonicalHeaders.WriteString("\n")
	}
	signedHeaders := strings.Join(names, ";")

	uri := req.URL.EscapedPath()
	if !strings.HasSuffix(uri, "/") {
		uri += "/"
	}

	canonicalRequest := strings.Join([]string{
		req.Method,
		uri,
		canonicalQuery(req.URL.Query()),
		canonicalHeaders.String(),
		signedHeaders,
		sha256Hex(body),
	}, "\n")

	stringToSign := signAlgorithm + "\n" + timestamp + "\n" + sha256Hex([]byte(canonicalRequest))
	signature := hex.EncodeToString(hmacSHA256([]byte(s.secret), stringToSign))

	req.Header.Set("Authorization",
		signAlgorithm+" Access="+s.keyID+", SignedHeaders="+signedHeaders+", Signature="+signature)
}

func canonicalQuery(values map[string][]string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var pairs []string
	for _, k := range keys {
		vs := append([]string(nil), values[k]...)
		sort.Strings(vs)
		for _, v := range vs {
			pairs = append(pairs, percentEncode(k)+"="+percentEncode(v))
		}
	}
	return strings.Join(pairs, "&")
}

const upperhex = "0123456789ABCDEF"

func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&0xf])
		}
	}
	return b.String()
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func hmacSHA256(key []byte, msg string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msg))
	return mac.Sum(nil)
}
