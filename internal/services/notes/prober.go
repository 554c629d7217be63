package notes

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Prober periodically pings the remote and feeds the result into a
// Connectivity. Only transient failures count as offline: any HTTP answer
// proves the remote is reachable.
type Prober struct {
	pinger   Pinger
	conn     Connectivity
	interval time.Duration
	log      *slog.Logger
}

// NewProber creates a new prober
func NewProber(p Pinger, conn Connectivity, interval time.Duration, log *slog.Logger) *Prober {
	return &Prober{pinger: p, conn: conn, interval: interval, log: log}
}

// Run probes immediately and then every interval until ctx is done.
func (p *Prober) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Probe(ctx)
		}
	}
}

// Probe runs a single reachability check.
func (p *Prober) Probe(ctx context.Context) {
	err := p.pinger.Ping(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil && errors.Is(err, ErrTransient) {
		p.log.Debug("remote unreachable", "error", err)
		p.conn.SetOnline(false)
		return
	}
	p.conn.SetOnline(true)
}
