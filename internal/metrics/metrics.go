// Package metrics exposes Prometheus collectors for registry operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the registry's Prometheus counters.
type Metrics struct {
	CertificatesIssued  prometheus.Counter
	CertificatesRevoked prometheus.Counter
	CertificatesBurned  prometheus.Counter
	AuthorityRotations  prometheus.Counter
}

// New registers and returns the registry counters. A nil registerer yields
// metrics that are counted but never exported, which tests rely on.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CertificatesIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "academy_certificates_issued_total",
			Help: "Total number of certificates issued",
		}),
		CertificatesRevoked: factory.NewCounter(prometheus.CounterOpts{
			Name: "academy_certificates_revoked_total",
			Help: "Total number of certificate revocations",
		}),
		CertificatesBurned: factory.NewCounter(prometheus.CounterOpts{
			Name: "academy_certificates_burned_total",
			Help: "Total number of certificates burned",
		}),
		AuthorityRotations: factory.NewCounter(prometheus.CounterOpts{
			Name: "academy_authority_rotations_total",
			Help: "Total number of issuer authority rotations",
		}),
	}
}
