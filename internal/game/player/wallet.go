package player

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// PublicKeyLength is the account ID length accepted in wallet addresses.
const PublicKeyLength = 32

const checksumLength = 2

var checksumPrefix = []byte("SS58PRE")

// ErrInvalidAddress is wrapped by every address validation failure.
var ErrInvalidAddress = errors.New("invalid wallet address")

// Address is a decoded SS58 wallet address.
type Address struct {
	// Prefix is the network identifier, 0-16383.
	Prefix    uint16
	PublicKey [PublicKeyLength]byte
}

// ParseAddress decodes and verifies an SS58 address.
//
// Postcondition: Returns the decoded address, or an error wrapping
// ErrInvalidAddress if the encoding, prefix, length, or checksum is wrong.
func ParseAddress(s string) (Address, error) {
	raw, err := base58.Decode(s)
	if err != nil || len(raw) == 0 {
		return Address{}, fmt.Errorf("%w: not base58", ErrInvalidAddress)
	}

	var addr Address
	var prefixLen int
	switch b0 := raw[0]; {
	case b0 < 64:
		addr.Prefix, prefixLen = uint16(b0), 1
	case b0 < 128:
		if len(raw) < 2 {
			return Address{}, fmt.Errorf("%w: truncated prefix", ErrInvalidAddress)
		}
		b1 := raw[1]
		addr.Prefix = uint16(b0&0x3f)<<2 | uint16(b1>>6) | uint16(b1&0x3f)<<8
		prefixLen = 2
	default:
		return Address{}, fmt.Errorf("%w: reserved prefix byte %d", ErrInvalidAddress, b0)
	}

	if len(raw) != prefixLen+PublicKeyLength+checksumLength {
		return Address{}, fmt.Errorf("%w: length %d", ErrInvalidAddress, len(raw))
	}
	body := raw[:prefixLen+PublicKeyLength]
	want := checksum(body)
	if !bytes.Equal(raw[len(body):], want) {
		return Address{}, fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}
	copy(addr.PublicKey[:], raw[prefixLen:])
	return addr, nil
}

// ValidateAddress reports whether s is a well-formed SS58 address.
func ValidateAddress(s string) error {
	_, err := ParseAddress(s)
	return err
}

// String encodes the address in SS58 form.
func (a Address) String() string {
	var body []byte
	if a.Prefix < 64 {
		body = append(body, byte(a.Prefix))
	} else {
		p := a.Prefix & 0x3fff
		body = append(body,
			byte((p&0xfc)>>2)|0x40,
			byte(p>>8)|byte((p&0x03)<<6),
		)
	}
	body = append(body, a.PublicKey[:]...)
	return base58.Encode(append(body, checksum(body)...))
}

func checksum(body []byte) []byte {
	h, _ := blake2b.New512(nil)
	h.Write(checksumPrefix)
	h.Write(body)
	return h.Sum(nil)[:checksumLength]
}
