// Package notifications sends run outcome alerts.
//
// The ntfy implementation posts a short plain-text message to the configured
// topic URL when a run completes, suspends for a screen recording, or aborts.
// Without a topic the service is a no-op, so callers never need to check
// whether alerts are enabled.
package notifications
