// Package identifier provides collision-resistant, prefixed identifiers for
// tagging synchronization runs in logs and on-disk state.
package identifier

import (
	"errors"
	"regexp"
	"strings"

	"github.com/driftsync-io/driftsync/pkg/encoding"
	"github.com/driftsync-io/driftsync/pkg/random"
)

const (
	// PrefixSynchronization is the prefix used for synchronization run
	// identifiers.
	PrefixSynchronization = "sync"
	// PrefixMonitor is the prefix used for monitor session identifiers.
	PrefixMonitor = "mntr"

	// requiredPrefixLength is the required length for identifier prefixes.
	requiredPrefixLength = 4
	// targetBase62Length is the target length for the Base62-encoded portion
	// of the identifier. This is the maximum length that a byte array of
	// random.CollisionResistantLength bytes will take to encode in Base62,
	// computable for n bytes as ceil(n*8*ln(2)/ln(62)).
	targetBase62Length = 43
)

// matcher is a regular expression that matches identifiers.
var matcher = regexp.MustCompile("^[a-z]{4}_[0-9a-zA-Z]{43}$")

// New generates a new collision-resistant identifier with the specified
// prefix. The prefix must consist of four lowercase ASCII letters.
func New(prefix string) (string, error) {
	// Ensure that the prefix length is correct.
	if len(prefix) != requiredPrefixLength {
		return "", errors.New("incorrect prefix length")
	}

	// Ensure that each prefix character is allowed.
	for _, r := range prefix {
		if !('a' <= r && r <= 'z') {
			return "", errors.New("invalid prefix character")
		}
	}

	// Create the random value.
	value, err := random.New(random.CollisionResistantLength)
	if err != nil {
		return "", err
	}

	// Encode the random value using a Base62 encoding scheme. As a sanity
	// check, ensure that the encoded value doesn't exceed the target length.
	encoded := encoding.EncodeBase62(value)
	if len(encoded) > targetBase62Length {
		panic("encoded random data length longer than expected")
	}

	// Create a string builder.
	builder := &strings.Builder{}

	// Add the identifier prefix.
	builder.WriteString(prefix)

	// Add the separator.
	builder.WriteRune('_')

	// If the encoded value has a length less than the target length, then
	// left-pad it with the zero value of our Base62 alphabet, which happens
	// to be '0'.
	for i := targetBase62Length - len(encoded); i > 0; i-- {
		builder.WriteByte(encoding.Base62Alphabet[0])
	}

	// Write the encoded value.
	builder.WriteString(encoded)

	// Success.
	return builder.String(), nil
}

// IsValid determines whether or not a string is a valid identifier.
func IsValid(value string) bool {
	return matcher.MatchString(value)
}
