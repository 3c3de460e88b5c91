package configs

import (
	"time"

	"promo-ops/internal/core/domain"
)

// Policy holds the organization-level payment configuration. Payment may be
// "allocation" (pay for commitment) or "delivery" (pay for delivered,
// capped at the commitment); anything else falls back to "delivery".
type Policy struct {
	Payment   string `env:"PAYMENT" envDefault:"delivery"`
	TermsDays int    `env:"TERMS_DAYS" envDefault:"30"`
}

// PaymentPolicy normalises the configured settlement basis.
func (c Policy) PaymentPolicy() domain.PaymentPolicy {
	p := domain.PaymentPolicy(c.Payment)
	if !p.Valid() {
		return domain.PayOnDelivery
	}
	return p
}

// PaymentTerms returns the payment-terms window as a duration.
func (c Policy) PaymentTerms() time.Duration {
	return time.Duration(c.TermsDays) * 24 * time.Hour
}
