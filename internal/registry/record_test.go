package registry

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel(t *testing.T) {
	assert.True(t, LevelBeginner.Valid())
	assert.True(t, LevelIntermediate.Valid())
	assert.True(t, LevelAdvanced.Valid())
	assert.False(t, Level(0).Valid())
	assert.False(t, Level(4).Valid())

	assert.Equal(t, "Beginner", LevelBeginner.String())
	assert.Equal(t, "Advanced", LevelAdvanced.String())
}

func TestCertificateLayout(t *testing.T) {
	cert := &Certificate{
		Owner:    testIdentity(t, 0xAA),
		CourseID: 0x0102030405060708,
		Level:    LevelIntermediate,
		IssuedAt: 1700000000,
		Issuer:   testIdentity(t, 0xBB),
		Bump:     254,
		Revoked:  true,
	}

	data := cert.Marshal()
	require.Len(t, data, CertificateRecordSize)

	// Field offsets are fixed for on-wire compatibility.
	assert.Equal(t, certificateDiscriminator, data[0:8])
	assert.Equal(t, cert.Owner.Bytes(), data[8:40])
	assert.Equal(t, uint64(0x0102030405060708), binary.LittleEndian.Uint64(data[40:48]))
	assert.Equal(t, byte(LevelIntermediate), data[48])
	assert.Equal(t, uint64(1700000000), binary.LittleEndian.Uint64(data[49:57]))
	assert.Equal(t, cert.Issuer.Bytes(), data[57:89])
	assert.Equal(t, byte(254), data[89])
	assert.Equal(t, byte(1), data[90])

	decoded, err := UnmarshalCertificate(data)
	require.NoError(t, err)
	assert.Equal(t, cert, decoded)
}

func TestUnmarshalCertificateErrors(t *testing.T) {
	t.Run("Rejects short record", func(t *testing.T) {
		_, err := UnmarshalCertificate(make([]byte, 10))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid certificate record size")
	})

	t.Run("Rejects wrong discriminator", func(t *testing.T) {
		cfg := &Config{Bump: 255}
		padded := append(cfg.Marshal(), make([]byte, CertificateRecordSize-ConfigRecordSize)...)
		_, err := UnmarshalCertificate(padded)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "discriminator")
	})
}

func TestConfigLayout(t *testing.T) {
	cfg := &Config{
		IssuerAuthority: testIdentity(t, 0xCC),
		Bump:            253,
		TotalIssued:     99,
	}

	data := cfg.Marshal()
	require.Len(t, data, ConfigRecordSize)

	assert.Equal(t, configDiscriminator, data[0:8])
	assert.Equal(t, cfg.IssuerAuthority.Bytes(), data[8:40])
	assert.Equal(t, byte(253), data[40])
	assert.Equal(t, uint64(99), binary.LittleEndian.Uint64(data[41:49]))

	decoded, err := UnmarshalConfig(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, decoded)
}

func TestErrorTaxonomy(t *testing.T) {
	assert.Equal(t, Code(1), ErrUnauthorized.Code)
	assert.Equal(t, Code(2), ErrInvalidLevel.Code)
	assert.Equal(t, Code(3), ErrCertificateExists.Code)
	assert.Equal(t, Code(4), ErrCertificateRevoked.Code)

	regErr, ok := AsError(ErrInvalidLevel)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidLevel, regErr.Code)

	_, ok = AsError(assert.AnError)
	assert.False(t, ok)
}
