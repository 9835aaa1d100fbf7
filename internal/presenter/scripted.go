package presenter

import (
	"context"
	"sync"

	"smartdocs/internal/reconcile"
)

// Scripted answers every comparison without interaction: per-section
// decisions first, Default otherwise. It backs --accept-all and --reject-all.
type Scripted struct {
	Default   reconcile.Decision
	Decisions map[string]reconcile.Decision

	mu   sync.Mutex
	seen []string
}

func (s *Scripted) Present(ctx context.Context, cmp reconcile.Comparison) (reconcile.Decision, error) {
	if err := ctx.Err(); err != nil {
		return reconcile.Reject, err
	}
	s.mu.Lock()
	s.seen = append(s.seen, cmp.Key)
	s.mu.Unlock()

	if d, ok := s.Decisions[cmp.Key]; ok {
		return d, nil
	}
	return s.Default, nil
}

// Seen returns the section keys presented so far, in order.
func (s *Scripted) Seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.seen...)
}
