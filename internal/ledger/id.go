package ledger

import (
	"encoding/base32"

	"github.com/google/uuid"
)

// Crockford's base32 alphabet in ascending order, so encoded UUIDv7 values
// sort by creation time.
const idAlphabet = "0123456789abcdefghjkmnpqrstvwxyz"

var idEncoding = base32.NewEncoding(idAlphabet).WithPadding(base32.NoPadding)

// NewID returns a time-ordered 26 character identifier.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return idEncoding.EncodeToString(id[:])
}

// ShortID returns the random tail of id used in ledger file names.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[len(id)-8:]
}
