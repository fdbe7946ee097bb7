package service

import "errors"

var (
	// ErrNotConfigured: no integration row exists.
	ErrNotConfigured = errors.New("vk integration not configured")

	// ErrIntegrationOff: manual trigger against an integration in
	// mode "off".
	ErrIntegrationOff = errors.New("vk integration is switched off")

	// ErrInvalidMode: mode value outside off/auto/manual.
	ErrInvalidMode = errors.New("mode must be one of: off, auto, manual")
)
