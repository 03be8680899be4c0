// Package id mints the opaque identifiers stored with users, loans and
// sanctions.
package id

import (
	"crypto/rand"
	"encoding/hex"
)

// DocIDLength matches the auto ids of the document store the loan records
// were first kept in, so old and new ids look alike.
const DocIDLength = 20

const docAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewID32 returns exactly 32 hex characters (no separators/prefixes).
func NewID32() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// NewDocID returns DocIDLength alphanumeric characters.
func NewDocID() string {
	out := make([]byte, 0, DocIDLength)
	buf := make([]byte, DocIDLength*2)
	for len(out) < DocIDLength {
		_, _ = rand.Read(buf)
		for _, b := range buf {
			// 248 is the largest multiple of 62 below 256; higher bytes would skew the draw
			if b >= 248 {
				continue
			}
			out = append(out, docAlphabet[int(b)%len(docAlphabet)])
			if len(out) == DocIDLength {
				break
			}
		}
	}
	return string(out)
}
