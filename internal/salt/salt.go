package salt

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strconv"
)

// Compute derives the per-wallet salt: HMAC-SHA512 keyed with the app's secret
// key over the decimal string of the wallet index, 0x-prefixed. The same
// (secretKey, index) pair always yields the same salt, which is what lets the
// platform re-derive a deposit address without storing private keys.
func Compute(secretKey string, walletIndex int64) string {
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write([]byte(strconv.FormatInt(walletIndex, 10)))
	return "0x" + hex.EncodeToString(mac.Sum(nil))
}
