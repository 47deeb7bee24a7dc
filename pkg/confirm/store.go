// Package confirm implements the confirmation ticket store that backs Medium
// risk tool calls: a human must approve or reject a pending call before the
// dispatcher forwards it to the backend.
package confirm

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tinyland-inc/mcpgatewayd/pkg/config"
)

var (
	ErrNotFound = errors.New("confirmation not found")
	ErrExpired  = errors.New("confirmation expired")
	ErrResolved = errors.New("confirmation already resolved")
)

// Ticket is one pending Medium risk tool call awaiting human approval.
type Ticket struct {
	ID              string           `json:"id"`
	ServerID        string           `json:"server_id"`
	Method          string           `json:"method"`
	ToolName        string           `json:"tool_name"`
	Arguments       json.RawMessage  `json:"arguments,omitempty"`
	RiskLevel       config.RiskLevel `json:"risk_level"`
	RiskDescription string           `json:"risk_description"`
	CreatedAt       time.Time        `json:"created_at"`
	ExpiresAt       time.Time        `json:"expires_at"`

	resolved bool
	approved bool
}

// Expired reports whether now is past the ticket's expiry, regardless of
// whether anything has observed that fact yet.
func (t *Ticket) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Store holds pending tickets in memory. There is no background sweeper;
// expiry is evaluated lazily by whichever call notices it first, which
// matches the spec's unspecified persistence (confirmations do not survive a
// restart, and stale tickets cost nothing to leave in the map until looked
// up again).
type Store struct {
	ttl time.Duration

	mu      sync.Mutex
	tickets map[string]*Ticket
}

// New builds a Store whose tickets live for ttl from creation.
func New(ttl time.Duration) *Store {
	return &Store{ttl: ttl, tickets: make(map[string]*Ticket)}
}

// Create mints a new ticket for the given pending call.
func (s *Store) Create(serverID, method, toolName string, riskLevel config.RiskLevel, arguments json.RawMessage) *Ticket {
	now := time.Now()
	t := &Ticket{
		ID:              uuid.NewString(),
		ServerID:        serverID,
		Method:          method,
		ToolName:        toolName,
		Arguments:       arguments,
		RiskLevel:       riskLevel,
		RiskDescription: riskLevel.Description(),
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.ttl),
	}

	s.mu.Lock()
	s.tickets[t.ID] = t
	s.mu.Unlock()
	return t
}

// Get returns the ticket for id if it exists and has not expired.
func (s *Store) Get(id string) (*Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	if t.Expired(time.Now()) {
		return nil, ErrExpired
	}
	return t, nil
}

// Resolve marks id approved or rejected. A ticket may only be resolved once;
// resolving an expired or already-resolved ticket fails.
func (s *Store) Resolve(id string, approve bool) (*Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	if t.Expired(time.Now()) {
		return nil, ErrExpired
	}
	if t.resolved {
		return nil, ErrResolved
	}
	t.resolved = true
	t.approved = approve
	return t, nil
}

// Approved reports whether a resolved ticket was approved. Callers must only
// consult this after a successful Resolve/Get path confirms resolution.
func (t *Ticket) Approved() bool { return t.resolved && t.approved }

// Resolved reports whether a human has acted on this ticket yet.
func (t *Ticket) Resolved() bool { return t.resolved }

// Pending lists every ticket that is neither resolved nor expired, ordered
// by creation time, for the confirm REPL and GET /confirmations.
func (s *Store) Pending() []*Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	out := make([]*Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		if !t.resolved && !t.Expired(now) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
