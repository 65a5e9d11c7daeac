package registry

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/takeyourtokenapp/tyt.app/internal/identity"
)

// Level is the attainment level of a certificate.
type Level uint8

const (
	LevelBeginner     Level = 1
	LevelIntermediate Level = 2
	LevelAdvanced     Level = 3
)

// Valid reports whether the level is in the allowed domain {1,2,3}.
func (l Level) Valid() bool {
	return l >= LevelBeginner && l <= LevelAdvanced
}

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelBeginner:
		return "Beginner"
	case LevelIntermediate:
		return "Intermediate"
	case LevelAdvanced:
		return "Advanced"
	default:
		return fmt.Sprintf("Level(%d)", uint8(l))
	}
}

// Record kinds as stored alongside each record row.
const (
	KindCertificate = "certificate"
	KindConfig      = "config"
)

// DiscriminatorSize is the length of the record-type prefix.
const DiscriminatorSize = 8

// Encoded record sizes, discriminator included.
const (
	CertificateRecordSize = DiscriminatorSize + identity.Size + 8 + 1 + 8 + identity.Size + 1 + 1
	ConfigRecordSize      = DiscriminatorSize + identity.Size + 1 + 8
)

// discriminator returns the 8-byte type prefix for a record kind.
func discriminator(kind string) []byte {
	sum := sha256.Sum256([]byte("record:" + kind))
	return sum[:DiscriminatorSize]
}

var (
	certificateDiscriminator = discriminator(KindCertificate)
	configDiscriminator      = discriminator(KindConfig)
)

// Certificate is a soulbound course certificate. All fields except Revoked
// are frozen at issuance; Revoked may flip false to true exactly once.
type Certificate struct {
	Owner    identity.Identity `json:"owner"`
	CourseID uint64            `json:"course_id"`
	Level    Level             `json:"level"`
	IssuedAt int64             `json:"issued_at"`
	Issuer   identity.Identity `json:"issuer"`
	Bump     uint8             `json:"bump"`
	Revoked  bool              `json:"is_revoked"`
}

// Marshal encodes the certificate in its fixed binary layout:
// discriminator(8) owner(32) course_id(u64 LE) level(u8) issued_at(i64 LE)
// issuer(32) bump(u8) is_revoked(u8).
func (c *Certificate) Marshal() []byte {
	buf := make([]byte, 0, CertificateRecordSize)
	buf = append(buf, certificateDiscriminator...)
	buf = append(buf, c.Owner.Bytes()...)
	buf = binary.LittleEndian.AppendUint64(buf, c.CourseID)
	buf = append(buf, byte(c.Level))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(c.IssuedAt))
	buf = append(buf, c.Issuer.Bytes()...)
	buf = append(buf, c.Bump)
	if c.Revoked {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	return buf
}

// UnmarshalCertificate decodes a certificate record, checking the length and
// the discriminator prefix.
func UnmarshalCertificate(data []byte) (*Certificate, error) {
	if len(data) != CertificateRecordSize {
		return nil, fmt.Errorf("invalid certificate record size: got %d, want %d", len(data), CertificateRecordSize)
	}
	if !bytes.Equal(data[:DiscriminatorSize], certificateDiscriminator) {
		return nil, fmt.Errorf("invalid certificate record discriminator")
	}

	var c Certificate
	off := DiscriminatorSize
	copy(c.Owner[:], data[off:off+identity.Size])
	off += identity.Size
	c.CourseID = binary.LittleEndian.Uint64(data[off : off+8])
	off += 8
	c.Level = Level(data[off])
	off++
	c.IssuedAt = int64(binary.LittleEndian.Uint64(data[off : off+8]))
	off += 8
	copy(c.Issuer[:], data[off:off+identity.Size])
	off += identity.Size
	c.Bump = data[off]
	off++
	c.Revoked = data[off] != 0
	return &c, nil
}

// Config is the registry's singleton configuration record.
type Config struct {
	IssuerAuthority identity.Identity `json:"issuer_authority"`
	Bump            uint8             `json:"bump"`
	TotalIssued     uint64            `json:"total_issued"`
}

// Marshal encodes the config record: discriminator(8) issuer_authority(32)
// bump(u8) total_issued(u64 LE).
func (c *Config) Marshal() []byte {
	buf := make([]byte, 0, ConfigRecordSize)
	buf = append(buf, configDiscriminator...)
	buf = append(buf, c.IssuerAuthority.Bytes()...)
	buf = append(buf, c.Bump)
	buf = binary.LittleEndian.AppendUint64(buf, c.TotalIssued)
	return buf
}

// UnmarshalConfig decodes a config record.
func UnmarshalConfig(data []byte) (*Config, error) {
	if len(data) != ConfigRecordSize {
		return nil, fmt.Errorf("invalid config record size: got %d, want %d", len(data), ConfigRecordSize)
	}
	if !bytes.Equal(data[:DiscriminatorSize], configDiscriminator) {
		return nil, fmt.Errorf("invalid config record discriminator")
	}

	var c Config
	off := DiscriminatorSize
	copy(c.IssuerAuthority[:], data[off:off+identity.Size])
	off += identity.Size
	c.Bump = data[off]
	off++
	c.TotalIssued = binary.LittleEndian.Uint64(data[off : off+8])
	return &c, nil
}
