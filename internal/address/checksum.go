package address

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"

	syncerr "github.com/mrz1836/addrsync/pkg/errors"
)

// ChecksumLength is the length of an address checksum in hex characters.
const ChecksumLength = 8

// Checksum returns the display checksum for a raw hex address: the last
// four bytes of SHA3-256 over the decoded address bytes.
func Checksum(address string) (string, error) {
	raw, err := hex.DecodeString(address)
	if err != nil || len(address) != HexLength {
		return "", syncerr.WithDetails(syncerr.ErrInvalidAddressRecord, map[string]string{
			"address": address,
		})
	}

	sum := sha3.Sum256(raw)
	return hex.EncodeToString(sum[len(sum)-ChecksumLength/2:]), nil
}

// MustChecksum is Checksum for addresses already known to be valid.
// It panics on malformed input.
func MustChecksum(address string) string {
	sum, err := Checksum(address)
	if err != nil {
		panic(err)
	}
	return sum
}

// WithChecksum returns the address followed by its checksum.
func WithChecksum(address string) (string, error) {
	sum, err := Checksum(address)
	if err != nil {
		return "", err
	}
	return address + sum, nil
}

// ValidChecksum reports whether s is a raw address followed by its correct checksum.
func ValidChecksum(s string) bool {
	if len(s) != HexLength+ChecksumLength {
		return false
	}
	sum, err := Checksum(s[:HexLength])
	if err != nil {
		return false
	}
	return strings.EqualFold(sum, s[HexLength:])
}

// StripChecksum returns the raw address part of an address with checksum.
// Raw addresses are returned unchanged.
func StripChecksum(s string) string {
	if len(s) == HexLength+ChecksumLength {
		return s[:HexLength]
	}
	return s
}
