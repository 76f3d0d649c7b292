package channel

import (
	"fmt"
	"strconv"
	"strings"
)

// ID identifies a channel. The numeric values match the minor numbers of the
// device nodes the channels were historically exposed as.
type ID int

const (
	// Encrypt rotates written bytes by +shift.
	Encrypt ID = 0
	// Decrypt rotates written bytes by -shift.
	Decrypt ID = 1
)

// IDs lists every known channel identity.
var IDs = []ID{Encrypt, Decrypt}

func (id ID) String() string {
	switch id {
	case Encrypt:
		return "encrypt"
	case Decrypt:
		return "decrypt"
	default:
		return fmt.Sprintf("channel(%d)", int(id))
	}
}

// Valid reports whether id names a known channel.
func (id ID) Valid() bool {
	return id == Encrypt || id == Decrypt
}

// ParseID parses a channel name ("encrypt", "decrypt") or minor number.
func ParseID(name string) (ID, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "encrypt":
		return Encrypt, nil
	case "decrypt":
		return Decrypt, nil
	}
	if n, err := strconv.Atoi(name); err == nil && ID(n).Valid() {
		return ID(n), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownChannel, name)
}
