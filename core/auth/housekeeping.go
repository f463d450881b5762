package auth

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shenulal/telematics-io-manager/core/store"
	"github.com/shenulal/telematics-io-manager/core/utils"
)

// SessionHousekeeper periodically marks session records whose expiry has
// passed as revoked-by-system. Records are never deleted; the sweep only
// makes the expired state explicit and countable.
type SessionHousekeeper struct {
	sessions store.SessionStore
	schedule string
	logger   *utils.Logger
	onSweep  func(revoked int64)
	cron     *cron.Cron
}

func NewSessionHousekeeper(sessions store.SessionStore, schedule string, logger *utils.Logger, onSweep func(int64)) *SessionHousekeeper {
	if schedule == "" {
		schedule = "@hourly"
	}
	return &SessionHousekeeper{sessions: sessions, schedule: schedule, logger: logger, onSweep: onSweep}
}

func (h *SessionHousekeeper) Start() error {
	c := cron.New()
	if _, err := c.AddFunc(h.schedule, h.sweep); err != nil {
		return err
	}
	h.cron = c
	c.Start()
	return nil
}

func (h *SessionHousekeeper) Stop() {
	if h.cron != nil {
		h.cron.Stop()
	}
}

func (h *SessionHousekeeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := h.sessions.RevokeExpired(ctx, time.Now().UTC())
	if err != nil {
		if h.logger != nil {
			h.logger.Errorf("session housekeeping sweep failed: %v", err)
		}
		return
	}
	if n > 0 && h.logger != nil {
		h.logger.Printf("session housekeeping revoked %d expired sessions", n)
	}
	if h.onSweep != nil {
		h.onSweep(n)
	}
}
