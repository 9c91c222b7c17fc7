package dnspod

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"
)

const (
	signAlgorithm = "TC3-HMAC-SHA256"
	service       = "dnspod"
	signedHeaders = "content-type;host"
	contentType   = "application/json; charset=utf-8"
)

// signer implements the Tencent Cloud TC3-HMAC-SHA256 scheme: the signature
// covers a JSON body, and the signing key is derived by chaining HMACs over
// date, service and the literal "tc3_request".
type signer struct {
	secretID  string
	secretKey string
	now       func() time.Time
}

func newSigner(secretID, secretKey string) *signer {
	return &signer{secretID: secretID, secretKey: secretKey, now: time.Now}
}

// sign sets the TC3 headers for a POST with the given JSON body.
func (s *signer) sign(req *http.Request, action, version string, body []byte) {
	t := s.now().UTC()
	timestamp := strconv.FormatInt(t.Unix(), 10)
	date := t.Format("2006-01-02")
	host := req.URL.Host

	canonicalRequest := http.MethodPost + "\n" +
		"/\n" +
		"\n" +
		"content-type:" + contentType + "\n" +
		"host:" + host + "\n" +
		"\n" +
		signedHeaders + "\n" +
		sha256Hex(body)

	scope := date + "/" + service + "/tc3_request"
	stringToSign := signAlgorithm + "\n" +
		timestamp + "\n" +
		scope + "\n" +
		sha256Hex([]byte(canonicalRequest))

	secretDate := hmacSHA256([]byte("TC3"+s.secretKey), date)
	secretService := hmacSHA256(secretDate, service)
	secretSigning := hmacSHA256(secretService, "tc3_request")
	signature := hex.EncodeToString(hmacSHA256(secretSigning, stringToSign))

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Host", host)
	req.Header.Set("X-TC-Action", action)
	req.Header.Set("X-TC-Version", version)
	req.Header.Set("X-TC-Timestamp", timestamp)
	req.Header.Set("Authorization",
		signAlgorithm+" Credential="+s.secretID+"/"+scope+
			", SignedHeaders="+signedHeaders+
			", Signature="+signature)
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
