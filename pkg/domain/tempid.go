package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// tempIDPrefix marks client-generated identifiers for rows that have not yet
// been persisted. A temporary id is never a valid store primary key.
const tempIDPrefix = "tmp_"

// NewTempID returns a fresh temporary identifier for a pending row.
func NewTempID() string {
	return tempIDPrefix + ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader).String()
}

// IsTempID reports whether id is a client-generated temporary identifier.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, tempIDPrefix)
}
