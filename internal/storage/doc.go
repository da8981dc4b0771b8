// Package storage provides a minimal append-only audit log.
//
// It records notification deliveries and poll outcomes so an operator can
// see what the bot did. The poll state itself is never stored.
package storage
