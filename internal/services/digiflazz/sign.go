package digiflazz

import (
	"crypto/md5"
	"encoding/hex"
)

const CmdPriceList = "pricelist"

// Sign returns the request signature md5(username + apiKey + cmd) as
// lowercase hex.
func Sign(username, apiKey, cmd string) string {
	sum := md5.Sum([]byte(username + apiKey + cmd))
	return hex.EncodeToString(sum[:])
}
