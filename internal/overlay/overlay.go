// Package overlay derives which single blocking overlay, if any, the
// client must render. Priority is fixed; generic errors never block.
package overlay

import "founderframe/internal/model"

// Kind identifies a blocking overlay.
type Kind string

const (
	None        Kind = ""
	VerifyEmail Kind = "verify_email"
	Quota       Kind = "quota_exceeded"
	MissingKey  Kind = "missing_credential"
	ConfigError Kind = "configuration_error"
)

// Flags are the error conditions an overlay can be derived from.
type Flags struct {
	VerificationPending bool
	QuotaExceeded       bool
	MissingCredential   bool
	ConfigurationError  bool
	Step                model.WizardStep
}

// Select picks at most one blocking overlay in fixed priority order.
// Verification always wins. The missing-credential overlay is
// suppressed on the landing and auth steps, where no generation can be
// attempted yet.
func Select(f Flags) Kind {
	switch {
	case f.VerificationPending:
		return VerifyEmail
	case f.QuotaExceeded:
		return Quota
	case f.MissingCredential && f.Step != model.StepLanding && f.Step != model.StepAuth:
		return MissingKey
	case f.ConfigurationError:
		return ConfigError
	}
	return None
}
