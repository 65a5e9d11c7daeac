// Package service implements the business logic of the academy registry: the
// certificate lifecycle operations and user account management.
package service

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/takeyourtokenapp/tyt.app/internal/database"
	"github.com/takeyourtokenapp/tyt.app/internal/database/models"
	"github.com/takeyourtokenapp/tyt.app/internal/identity"
	"github.com/takeyourtokenapp/tyt.app/internal/metrics"
	"github.com/takeyourtokenapp/tyt.app/internal/registry"
)

// ErrNotInitialized is returned by operations that need the registry config
// before initialize has run.
var ErrNotInitialized = errors.New("registry not initialized")

// ErrAlreadyInitialized is returned when initialize finds the config
// singleton's address occupied.
var ErrAlreadyInitialized = errors.New("registry already initialized")

// RegistryService executes the certificate lifecycle operations. Every write
// operation is a single database transaction: record resolution, authority
// and state checks, mutation, and the outbox append commit atomically.
type RegistryService struct {
	db      *database.Database
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewRegistryService creates a new registry service
func NewRegistryService(db *database.Database, m *metrics.Metrics) *RegistryService {
	return &RegistryService{
		db:      db,
		metrics: m,
		now:     time.Now,
	}
}

// Initialize creates the registry config singleton. Any signer may call it;
// it fails if the singleton already exists. No event is emitted; this is a
// one-time bootstrap.
func (s *RegistryService) Initialize(authority identity.Identity) (*registry.Config, error) {
	addr, bump, err := registry.ConfigAddress()
	if err != nil {
		return nil, fmt.Errorf("failed to derive config address: %w", err)
	}

	cfg := &registry.Config{
		IssuerAuthority: authority,
		Bump:            bump,
		TotalIssued:     0,
	}

	err = s.db.WithTx(func(tx *sql.Tx) error {
		now := s.now()
		return s.db.CreateRecordTx(tx, &models.Record{
			Address:   addr.Bytes(),
			Kind:      registry.KindConfig,
			Bump:      bump,
			Data:      cfg.Marshal(),
			CreatedAt: now,
			UpdatedAt: now,
		})
	})
	if err != nil {
		if errors.Is(err, database.ErrRecordExists) {
			return nil, ErrAlreadyInitialized
		}
		return nil, fmt.Errorf("failed to create registry config: %w", err)
	}

	return cfg, nil
}

// Config returns the registry configuration singleton.
func (s *RegistryService) Config() (*registry.Config, error) {
	addr, _, err := registry.ConfigAddress()
	if err != nil {
		return nil, fmt.Errorf("failed to derive config address: %w", err)
	}

	rec, err := s.db.GetRecord(addr.Bytes())
	if err != nil {
		if errors.Is(err, database.ErrRecordNotFound) {
			return nil, ErrNotInitialized
		}
		return nil, err
	}
	return registry.UnmarshalConfig(rec.Data)
}

// loadConfigTx resolves the config singleton inside a write transaction,
// locking the row so a concurrent rotation or issuance cannot interleave with
// the read-modify-write.
func (s *RegistryService) loadConfigTx(tx *sql.Tx) (*registry.Config, registry.Address, error) {
	addr, _, err := registry.ConfigAddress()
	if err != nil {
		return nil, registry.Address{}, fmt.Errorf("failed to derive config address: %w", err)
	}

	rec, err := s.db.GetRecordForUpdateTx(tx, addr.Bytes())
	if err != nil {
		if errors.Is(err, database.ErrRecordNotFound) {
			return nil, addr, ErrNotInitialized
		}
		return nil, addr, err
	}

	cfg, err := registry.UnmarshalConfig(rec.Data)
	if err != nil {
		return nil, addr, fmt.Errorf("corrupt config record: %w", err)
	}
	return cfg, addr, nil
}

// loadCertificateTx resolves a certificate by its (owner, course) derived
// address and verifies address integrity: the stored bump must reproduce the
// address and the embedded fields must match the seeds.
func (s *RegistryService) loadCertificateTx(tx *sql.Tx, owner identity.Identity, courseID uint64) (*registry.Certificate, registry.Address, error) {
	addr, _, err := registry.CertificateAddress(owner, courseID)
	if err != nil {
		return nil, registry.Address{}, fmt.Errorf("failed to derive certificate address: %w", err)
	}

	rec, err := s.db.GetRecordForUpdateTx(tx, addr.Bytes())
	if err != nil {
		return nil, addr, err
	}

	cert, err := registry.UnmarshalCertificate(rec.Data)
	if err != nil {
		return nil, addr, fmt.Errorf("corrupt certificate record: %w", err)
	}

	seeds := registry.CertificateSeeds(owner, courseID)
	if !registry.VerifyAddress(addr, seeds, cert.Bump) || !cert.Owner.Equal(owner) || cert.CourseID != courseID {
		return nil, addr, fmt.Errorf("certificate record does not match derivation seeds")
	}
	return cert, addr, nil
}

// appendEventTx marshals a payload and appends it to the outbox.
func (s *RegistryService) appendEventTx(tx *sql.Tx, eventType registry.EventType, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return s.db.AppendEventTx(tx, string(eventType), data, s.now())
}

// Issue allocates a new certificate for (user, courseID). The caller must be
// the current issuer authority; the level must be in {1,2,3}; the derived
// address must be free.
func (s *RegistryService) Issue(caller, user identity.Identity, courseID uint64, level registry.Level) (*registry.Certificate, error) {
	var cert *registry.Certificate

	err := s.db.WithTx(func(tx *sql.Tx) error {
		cfg, cfgAddr, err := s.loadConfigTx(tx)
		if err != nil {
			return err
		}
		if !cfg.IssuerAuthority.Equal(caller) {
			return registry.ErrUnauthorized
		}
		if !level.Valid() {
			return registry.ErrInvalidLevel
		}

		addr, bump, err := registry.CertificateAddress(user, courseID)
		if err != nil {
			return fmt.Errorf("failed to derive certificate address: %w", err)
		}

		issuedAt := s.now()
		cert = &registry.Certificate{
			Owner:    user,
			CourseID: courseID,
			Level:    level,
			IssuedAt: issuedAt.Unix(),
			Issuer:   caller,
			Bump:     bump,
			Revoked:  false,
		}

		err = s.db.CreateRecordTx(tx, &models.Record{
			Address:   addr.Bytes(),
			Kind:      registry.KindCertificate,
			Bump:      bump,
			Data:      cert.Marshal(),
			CreatedAt: issuedAt,
			UpdatedAt: issuedAt,
		})
		if err != nil {
			if errors.Is(err, database.ErrRecordExists) {
				return registry.ErrCertificateExists
			}
			return err
		}

		cfg.TotalIssued++
		if err := s.db.UpdateRecordDataTx(tx, cfgAddr.Bytes(), cfg.Marshal(), issuedAt); err != nil {
			return fmt.Errorf("failed to update issuance counter: %w", err)
		}

		return s.appendEventTx(tx, registry.EventCertificateIssued, registry.CertificateIssuedEvent{
			User:     user,
			CourseID: courseID,
			Level:    level,
			IssuedAt: cert.IssuedAt,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.CertificatesIssued.Inc()
	return cert, nil
}

// Verify reports whether (user, courseID) holds a non-revoked certificate.
// Fails with database.ErrRecordNotFound if no certificate exists.
func (s *RegistryService) Verify(user identity.Identity, courseID uint64) (bool, error) {
	cert, err := s.GetInfo(user, courseID)
	if err != nil {
		return false, err
	}
	return !cert.Revoked, nil
}

// GetInfo returns the full certificate record for (user, courseID).
func (s *RegistryService) GetInfo(user identity.Identity, courseID uint64) (*registry.Certificate, error) {
	addr, _, err := registry.CertificateAddress(user, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to derive certificate address: %w", err)
	}

	rec, err := s.db.GetRecord(addr.Bytes())
	if err != nil {
		return nil, err
	}
	return registry.UnmarshalCertificate(rec.Data)
}

// Revoke marks the certificate of (user, courseID) as revoked. The caller
// must be the current issuer authority. Revoking an already revoked
// certificate is idempotent and emits a duplicate event.
func (s *RegistryService) Revoke(caller, user identity.Identity, courseID uint64) (*registry.Certificate, error) {
	var cert *registry.Certificate

	err := s.db.WithTx(func(tx *sql.Tx) error {
		cfg, _, err := s.loadConfigTx(tx)
		if err != nil {
			return err
		}
		if !cfg.IssuerAuthority.Equal(caller) {
			return registry.ErrUnauthorized
		}

		var addr registry.Address
		cert, addr, err = s.loadCertificateTx(tx, user, courseID)
		if err != nil {
			return err
		}

		cert.Revoked = true
		if err := s.db.UpdateRecordDataTx(tx, addr.Bytes(), cert.Marshal(), s.now()); err != nil {
			return err
		}

		return s.appendEventTx(tx, registry.EventCertificateRevoked, registry.CertificateRevokedEvent{
			User:     cert.Owner,
			CourseID: cert.CourseID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.CertificatesRevoked.Inc()
	return cert, nil
}

// Burn destroys the certificate of (owner, courseID). Only the certificate
// owner may burn it; both active and revoked certificates can be burned. The
// event is appended before the record is deleted so indexers observe the
// final state; the address becomes free for a later re-issue.
func (s *RegistryService) Burn(caller, owner identity.Identity, courseID uint64) (*registry.Certificate, error) {
	var cert *registry.Certificate

	err := s.db.WithTx(func(tx *sql.Tx) error {
		var addr registry.Address
		var err error
		cert, addr, err = s.loadCertificateTx(tx, owner, courseID)
		if err != nil {
			return err
		}
		if !cert.Owner.Equal(caller) {
			return registry.ErrUnauthorized
		}

		if err := s.appendEventTx(tx, registry.EventCertificateBurned, registry.CertificateBurnedEvent{
			User:     cert.Owner,
			CourseID: cert.CourseID,
		}); err != nil {
			return err
		}

		return s.db.DeleteRecordTx(tx, addr.Bytes())
	})
	if err != nil {
		return nil, err
	}

	s.metrics.CertificatesBurned.Inc()
	return cert, nil
}

// UpdateAuthority atomically replaces the issuer authority. The caller must
// be the current authority. Certificates issued before the rotation keep
// their historical issuer field.
func (s *RegistryService) UpdateAuthority(caller, newAuthority identity.Identity) (*registry.Config, error) {
	var cfg *registry.Config

	err := s.db.WithTx(func(tx *sql.Tx) error {
		var cfgAddr registry.Address
		var err error
		cfg, cfgAddr, err = s.loadConfigTx(tx)
		if err != nil {
			return err
		}
		if !cfg.IssuerAuthority.Equal(caller) {
			return registry.ErrUnauthorized
		}

		oldAuthority := cfg.IssuerAuthority
		cfg.IssuerAuthority = newAuthority
		if err := s.db.UpdateRecordDataTx(tx, cfgAddr.Bytes(), cfg.Marshal(), s.now()); err != nil {
			return err
		}

		return s.appendEventTx(tx, registry.EventIssuerAuthorityUpdated, registry.IssuerAuthorityUpdatedEvent{
			OldAuthority: oldAuthority,
			NewAuthority: newAuthority,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AuthorityRotations.Inc()
	return cfg, nil
}

// Maximum and default page sizes for the event feed.
const (
	maxEventLimit     = 1000
	defaultEventLimit = 100
)

// Events returns up to limit outbox events after the given cursor.
func (s *RegistryService) Events(afterID int64, limit int) ([]*models.Event, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}
	return s.db.ListEvents(afterID, limit)
}
