package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

func GenerateCode(n int) (string, error) {
	// Make a slice of n random bytes.
	byt := make([]byte, n)

	// Read into the slice.
	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	// Return the hexadecimal string.
	return strings.ToUpper(hex.EncodeToString(byt)), nil
}

// GenerateTicketNumber returns a unique human-readable ticket number.
func GenerateTicketNumber() (string, error) {
	code, err := GenerateCode(4)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("TKT-%d-%s", time.Now().UnixMilli(), code), nil
}

// GenerateQRFingerprint derives a ticket's QR payload from the booking id,
// ticket number and creation instant. The hash is not reversible to any
// secret material.
func GenerateQRFingerprint(bookingID, ticketNumber string) string {
	data := fmt.Sprintf("%s:%s:%d", bookingID, ticketNumber, time.Now().UnixMilli())
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}
