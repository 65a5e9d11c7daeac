// Package registry implements the core of the academy certificate registry:
// deterministic record addressing, the binary record layouts, the lifecycle
// error taxonomy, and the event payloads consumed by off-chain indexers.
// The package is pure; persistence lives in internal/database and the
// operations that tie both together live in internal/service.
package registry

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/takeyourtokenapp/tyt.app/internal/identity"
)

// AddressSize is the length of a record address in bytes.
const AddressSize = sha256.Size

// addressNamespace separates this registry's address space from any other
// SHA-256 keyed scheme.
const addressNamespace = "tyt:academy:sbt"

// Seed prefixes for the two record kinds.
var (
	configSeed      = []byte("config")
	certificateSeed = []byte("certificate")
)

// ErrNoValidAddress is returned when no bump in [0,255] produces an address
// outside the reserved space. With SHA-256 this is not expected to occur.
var ErrNoValidAddress = errors.New("no valid address for seeds")

// Address is the deterministic storage location of a record.
type Address [AddressSize]byte

// String returns a short hex form used in logs.
func (a Address) String() string {
	return fmt.Sprintf("%x", a[:])
}

// Bytes returns the address as a byte slice.
func (a Address) Bytes() []byte {
	return a[:]
}

// AddressForBump computes the address for a seed list and an explicit bump
// salt. Each seed is length-prefixed so seed boundaries cannot be shifted.
func AddressForBump(seeds [][]byte, bump uint8) Address {
	h := sha256.New()
	for _, seed := range seeds {
		h.Write([]byte{byte(len(seed))})
		h.Write(seed)
	}
	h.Write([]byte{bump})
	h.Write([]byte(addressNamespace))

	var addr Address
	copy(addr[:], h.Sum(nil))
	return addr
}

// DeriveAddress finds the canonical (address, bump) pair for a seed list. It
// walks bump salts from 255 down and returns the first address outside the
// reserved space. Addresses with a leading zero byte are reserved.
func DeriveAddress(seeds ...[]byte) (Address, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		addr := AddressForBump(seeds, uint8(bump))
		if addr[0] != 0x00 {
			return addr, uint8(bump), nil
		}
	}
	return Address{}, 0, ErrNoValidAddress
}

// VerifyAddress checks that a stored bump reproduces the given address for a
// seed list. This is the lookup-side half of the derivation contract: a
// record whose stored bump does not reproduce its own address is corrupt.
func VerifyAddress(addr Address, seeds [][]byte, bump uint8) bool {
	return AddressForBump(seeds, bump) == addr
}

// ConfigSeeds returns the seed list of the registry config singleton.
func ConfigSeeds() [][]byte {
	return [][]byte{configSeed}
}

// CertificateSeeds returns the seed list of the certificate record for a
// (owner, course) pair. The course id is encoded as 8 little-endian bytes.
func CertificateSeeds(owner identity.Identity, courseID uint64) [][]byte {
	course := make([]byte, 8)
	binary.LittleEndian.PutUint64(course, courseID)
	return [][]byte{certificateSeed, owner.Bytes(), course}
}

// ConfigAddress derives the fixed address of the registry config singleton.
func ConfigAddress() (Address, uint8, error) {
	return DeriveAddress(ConfigSeeds()...)
}

// CertificateAddress derives the address of the certificate record for a
// (owner, course) pair.
func CertificateAddress(owner identity.Identity, courseID uint64) (Address, uint8, error) {
	return DeriveAddress(CertificateSeeds(owner, courseID)...)
}
