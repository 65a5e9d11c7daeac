package registry

import "github.com/takeyourtokenapp/tyt.app/internal/identity"

// EventType names an entry in the registry event stream. The stream is
// append-only and consumed by off-chain indexers; the core never reads it
// back.
type EventType string

const (
	EventCertificateIssued      EventType = "CertificateIssued"
	EventCertificateRevoked     EventType = "CertificateRevoked"
	EventCertificateBurned      EventType = "CertificateBurned"
	EventIssuerAuthorityUpdated EventType = "IssuerAuthorityUpdated"
)

// CertificateIssuedEvent is emitted once per successful issuance.
type CertificateIssuedEvent struct {
	User     identity.Identity `json:"user"`
	CourseID uint64            `json:"course_id"`
	Level    Level             `json:"level"`
	IssuedAt int64             `json:"issued_at"`
}

// CertificateRevokedEvent is emitted when the issuer authority revokes a
// certificate. Re-revocation emits a duplicate event; indexers treat the
// transition as idempotent.
type CertificateRevokedEvent struct {
	User     identity.Identity `json:"user"`
	CourseID uint64            `json:"course_id"`
}

// CertificateBurnedEvent is emitted before the record is destroyed so
// indexers observe the final state.
type CertificateBurnedEvent struct {
	User     identity.Identity `json:"user"`
	CourseID uint64            `json:"course_id"`
}

// IssuerAuthorityUpdatedEvent records an authority rotation. Certificates
// issued before the rotation keep their historical issuer.
type IssuerAuthorityUpdatedEvent struct {
	OldAuthority identity.Identity `json:"old_authority"`
	NewAuthority identity.Identity `json:"new_authority"`
}
