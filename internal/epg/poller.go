package epg

import (
	"context"
	"time"

	"github.com/iptvdeck/iptvdeck/internal/cache"
)

// Poller owns the scheduling the Engine deliberately does not: it re-fetches
// one channel's window every RefreshEvery and recomputes progress every
// ProgressEvery, until its context is cancelled. The UI layer runs one Poller
// per visible channel.
type Poller struct {
	Engine        *Engine
	ChannelID     string
	RefreshEvery  time.Duration // default 2m
	ProgressEvery time.Duration // default 30s

	// OnUpdate fires after every window refresh with the fresh now/next.
	OnUpdate func(NowNext)
	// OnProgress fires on the progress cadence; current is nil in a gap.
	OnProgress func(current *Listing, percent int)
}

// Run blocks until ctx is cancelled. Fetch failures keep the previous window;
// the poller never gives up on a channel.
func (p *Poller) Run(ctx context.Context) {
	refreshEvery := p.RefreshEvery
	if refreshEvery <= 0 {
		refreshEvery = 2 * time.Minute
	}
	progressEvery := p.ProgressEvery
	if progressEvery <= 0 {
		progressEvery = 30 * time.Second
	}

	window, err := p.Engine.Window(ctx, p.ChannelID, cache.Options{})
	if err == nil {
		p.publish(window)
	}

	refresh := time.NewTicker(refreshEvery)
	defer refresh.Stop()
	progress := time.NewTicker(progressEvery)
	defer progress.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-refresh.C:
			fresh, err := p.Engine.Window(ctx, p.ChannelID, cache.Options{ForceRefresh: true})
			if err != nil {
				p.Engine.log.Debug().Str("channel", p.ChannelID).Err(err).Msg("epg refresh failed; keeping previous window")
				continue
			}
			window = fresh
			p.publish(window)
		case <-progress.C:
			p.publishProgress(window)
		}
	}
}

func (p *Poller) publish(window []Listing) {
	nn := CurrentAndNext(window, p.Engine.now().Unix())
	if p.OnUpdate != nil {
		p.OnUpdate(nn)
	}
	p.publishProgress(window)
}

func (p *Poller) publishProgress(window []Listing) {
	if p.OnProgress == nil {
		return
	}
	now := p.Engine.now().Unix()
	nn := CurrentAndNext(window, now)
	if nn.Current == nil {
		p.OnProgress(nil, 0)
		return
	}
	p.OnProgress(nn.Current, ProgressPercent(*nn.Current, now))
}
