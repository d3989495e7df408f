package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

const TicketNumberPrefix = "TKT"

func GenerateCode(n int) (string, error) {
	// Make a slice of nBytes random bytes.
	byt := make([]byte, n)

	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	return strings.ToUpper(hex.EncodeToString(byt)), nil
}

// GenerateTicketNumber builds TKT-<base36 unix millis>-<6 hex chars>.
// Two numbers only collide if issued in the same millisecond with the
// same 24-bit suffix.
func GenerateTicketNumber(now time.Time) (string, error) {
	suffix, err := GenerateCode(3)
	if err != nil {
		return "", err
	}

	stamp := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	return TicketNumberPrefix + "-" + stamp + "-" + suffix, nil
}
