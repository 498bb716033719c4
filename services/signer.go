// services/signer.go
package services

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
)

// SignHeaderJSON is the metadata object the server re-serializes when it verifies
// a signature. Field order and the lack of whitespace are part of the wire format.
func SignHeaderJSON(platform, timestamp, vName string) string {
	return `{"platform":"` + platform + `","timestamp":"` + timestamp + `","dId":"","vName":"` + vName + `"}`
}

// Sign computes the request signature: md5hex(hmacSHA256hex(token, path+body+timestamp+headerJSON)).
// The same timestamp must be sent in the request headers.
func Sign(path, body, timestamp, token, platform, vName string) string {
	payload := path + body + timestamp + SignHeaderJSON(platform, timestamp, vName)

	mac := hmac.New(sha256.New, []byte(token))
	mac.Write([]byte(payload))
	hmacHex := hex.EncodeToString(mac.Sum(nil))

	sum := md5.Sum([]byte(hmacHex))
	return hex.EncodeToString(sum[:])
}
