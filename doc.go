// Package identity provides the account and session subsystem for
// Taskvine: invite-only signup with Discord guild gating, local and
// OAuth login strategies, server-side sessions, and the email
// verification and password reset flows.
//
// The root package wires the domain packages (session, provider,
// signup, gateway, mailer) to the bun-backed repositories and exposes
// the fiber HTTP controller. Subpackages depend only on their own
// small interfaces, never on this package.
package identity
