// Package poller runs the poll-check-notify loop.
//
// One goroutine owns the PollState: it asks the homework API for changes
// since the last known timestamp, turns the newest record into a verdict
// message and hands it to the notifier. Any failure inside an iteration is
// logged and relayed, then the loop sleeps until the next schedule slot.
package poller
