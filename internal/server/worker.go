package server

import (
	"context"
	"log/slog"
	"time"
)

// runFrames advances the driver once per frame interval until ctx is done.
// Each tick passes the measured wall time since the previous frame, so a
// stalled tick catches up in one capped step.
func (s *Server) runFrames(ctx context.Context) {
	ticker := time.NewTicker(s.opts.FrameInterval)
	defer ticker.Stop()

	slog.Debug("Frame loop started", "interval", s.opts.FrameInterval)
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			slog.Debug("Frame loop stopped")
			return
		case now := <-ticker.C:
			s.driver.Frame(now.Sub(last))
			last = now
		}
	}
}
