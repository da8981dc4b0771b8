// Package notifier relays short texts to a chat.
//
// Delivery is synchronous: the caller blocks while the text is rate limited,
// sent and retried with exponential backoff. Identical texts to the same
// target can be suppressed for a configurable window.
//
// # Transport
//
// The service delegates delivery to a transport.Sender (the Telegram adapter
// in production, a fake in tests).
//
// # History
//
// For debugging, the service keeps a small in-memory history of recently
// attempted notifications and mirrors each outcome into the audit store when
// one is configured.
package notifier
