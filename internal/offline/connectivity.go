package offline

import (
	"context"
	"log"
	"sync/atomic"
	"time"
)

// Connectivity is the environment's online/offline signal. It is advisory:
// the checkout pipeline still treats a failed remote write as offline even
// when Online reports true.
type Connectivity interface {
	Online() bool
}

// Signal is a probe-backed Connectivity flag. Watch flips it whenever the
// probe result changes and logs the transition.
type Signal struct {
	online atomic.Bool
	probe  func(ctx context.Context) error
}

func NewSignal(probe func(ctx context.Context) error) *Signal {
	s := &Signal{probe: probe}
	s.online.Store(true)
	return s
}

func (s *Signal) Online() bool {
	return s.online.Load()
}

func (s *Signal) SetOnline(online bool) {
	was := s.online.Swap(online)
	if was == online {
		return
	}
	if online {
		log.Println("[offline] connectivity restored")
	} else {
		log.Println("[offline] connectivity lost, queueing sales locally")
	}
}

// Watch probes on the given interval until ctx is cancelled.
func (s *Signal) Watch(ctx context.Context, interval time.Duration) {
	if s.probe == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := s.probe(probeCtx)
			cancel()
			s.SetOnline(err == nil)
		}
	}
}
