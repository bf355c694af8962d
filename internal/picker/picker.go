// Package picker implements the optional credential-selection
// capability. Deployments without a picker URL simply run without the
// capability, and credential failures become configuration errors.
package picker

import (
	"context"

	"github.com/sirupsen/logrus"
)

// URLPicker points users at an external key-selection page. Opening it
// is fire and forget: there is no confirmation that a key was actually
// chosen, so callers must treat the result as optimistic and reconcile
// on the next generation call.
type URLPicker struct {
	url string
}

// New returns a picker for the given URL, or nil when the capability is
// not configured.
func New(url string) *URLPicker {
	if url == "" {
		return nil
	}
	return &URLPicker{url: url}
}

func (p *URLPicker) Open(ctx context.Context) error {
	logrus.WithField("url", p.url).Info("redirecting to credential picker")
	return nil
}

// URL exposes the picker target for clients that render the redirect.
func (p *URLPicker) URL() string {
	return p.url
}
