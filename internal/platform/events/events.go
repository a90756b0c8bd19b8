// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package events publishes session lifecycle notifications to a message broker.

Downstream consumers (audit trail, security alerts) subscribe to a durable
queue. Publishing is best effort: the authentication flow never fails because
the broker is unavailable.
*/
package events

import (
	"context"
	"sync"
	"time"
)

// # Event Types

// Type names a session transition.
type Type string

const (
	SessionCreated Type = "session.created"
	SessionRotated Type = "session.rotated"
	SessionDeleted Type = "session.deleted"
)

// SessionEvent describes one transition of a principal's session.
type SessionEvent struct {
	Type        Type      `json:"type"`
	Kind        string    `json:"kind"`
	SessionID   string    `json:"session_id"`
	PrincipalID int64     `json:"principal_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher delivers session events to subscribers.
type Publisher interface {
	Publish(context context.Context, event SessionEvent) error
	Close() error
}

// # Noop

// Noop discards every event. It is used when no broker is configured.
type Noop struct{}

// Publish implements [Publisher].
func (Noop) Publish(context.Context, SessionEvent) error { return nil }

// Close implements [Publisher].
func (Noop) Close() error { return nil }

// # Memory

// Memory keeps published events in memory for inspection in tests.
type Memory struct {
	mu     sync.Mutex
	events []SessionEvent
}

// Publish implements [Publisher].
func (memory *Memory) Publish(_ context.Context, event SessionEvent) error {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	memory.events = append(memory.events, event)
	return nil
}

// Close implements [Publisher].
func (memory *Memory) Close() error { return nil }

// Events returns a copy of everything published so far.
func (memory *Memory) Events() []SessionEvent {
	memory.mu.Lock()
	defer memory.mu.Unlock()
	return append([]SessionEvent(nil), memory.events...)
}
