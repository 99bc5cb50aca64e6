package services

import (
	"context"
	"log"
	"time"

	"github.com/Abdayemco/xzity-dispatch-backend/internal/lifecycle"
	"github.com/Abdayemco/xzity-dispatch-backend/internal/models"
	"github.com/Abdayemco/xzity-dispatch-backend/pkg/utils"
	"gorm.io/gorm"
)

// Sweeper is the recurring cleanup task. It re-evaluates open rides against
// the time-window policies and forces terminal transitions: a 5-minute pass
// for stuck accepted/in-progress rides and an hourly pass for per-category
// deadlines. The decisions come from lifecycle.Sweep with an injected clock;
// this type only schedules, applies, and logs.
type Sweeper struct {
	DB  *gorm.DB
	Hub *Hub

	StuckInterval    time.Duration
	DeadlineInterval time.Duration
}

// NewSweeper creates a sweeper with the default cadence.
func NewSweeper(db *gorm.DB, hub *Hub) *Sweeper {
	return &Sweeper{
		DB:               db,
		Hub:              hub,
		StuckInterval:    5 * time.Minute,
		DeadlineInterval: time.Hour,
	}
}

// Run blocks, firing the two passes on their tickers. Start it from main
// with `go sweeper.Run()`.
func (s *Sweeper) Run() {
	stuck := time.NewTicker(s.StuckInterval)
	deadline := time.NewTicker(s.DeadlineInterval)
	defer stuck.Stop()
	defer deadline.Stop()

	for {
		select {
		case <-stuck.C:
			if _, err := s.SweepStuck(time.Now().UTC()); err != nil {
				log.Printf("Sweeper: stuck pass failed: %v", err)
			}
		case <-deadline.C:
			if _, err := s.SweepDeadlines(time.Now().UTC()); err != nil {
				log.Printf("Sweeper: deadline pass failed: %v", err)
			}
		}
	}
}

// SweepStuck cancels rides that sat in accepted or in_progress past the
// stuck-ride age. Returns the number of rides closed.
func (s *Sweeper) SweepStuck(now time.Time) (int, error) {
	snapshots, err := s.loadOpen([]string{models.RideStatusAccepted, models.RideStatusInProgress})
	if err != nil {
		return 0, err
	}

	applied := s.apply(now, lifecycle.Sweep(now, snapshots),
		lifecycle.ReasonStuckAccepted, lifecycle.ReasonStuckInProgress)

	if err := s.reconcileBusyDrivers(); err != nil {
		log.Printf("Sweeper: busy-driver reconcile failed: %v", err)
	}

	if applied > 0 {
		log.Printf("Sweeper: cancelled %d stuck ride(s)", applied)
	}
	return applied, nil
}

// SweepDeadlines cancels open rides past their per-category deadline.
func (s *Sweeper) SweepDeadlines(now time.Time) (int, error) {
	snapshots, err := s.loadOpen(models.OpenStatuses())
	if err != nil {
		return 0, err
	}

	applied := s.apply(now, lifecycle.Sweep(now, snapshots), lifecycle.ReasonDeadlineExpired)

	if applied > 0 {
		log.Printf("Sweeper: cancelled %d expired ride(s)", applied)
	}
	return applied, nil
}

func (s *Sweeper) loadOpen(statuses []string) ([]lifecycle.RideSnapshot, error) {
	var rides []models.Ride
	if err := s.DB.Where("status IN ?", statuses).Find(&rides).Error; err != nil {
		return nil, err
	}

	snapshots := make([]lifecycle.RideSnapshot, 0, len(rides))
	for _, r := range rides {
		snapshots = append(snapshots, lifecycle.RideSnapshot{
			ID:          r.ID,
			Status:      r.Status,
			ServiceKind: r.ServiceKind,
			CustomerID:  r.CustomerID,
			DriverID:    r.DriverID,
			RequestedAt: r.RequestedAt,
			ScheduledAt: r.ScheduledAt,
			AcceptedAt:  r.AcceptedAt,
			StartedAt:   r.StartedAt,
		})
	}
	return snapshots, nil
}

// apply executes forced transitions whose reason is in the accept set. Each
// ride is its own transaction; one bad row never blocks the batch. The
// UPDATE re-checks the from-status, so a ride that moved on through a normal
// transition since the query is skipped, which also makes re-runs no-ops.
func (s *Sweeper) apply(now time.Time, forced []lifecycle.ForcedTransition, reasons ...lifecycle.SweepReason) int {
	accepted := make(map[lifecycle.SweepReason]bool, len(reasons))
	for _, r := range reasons {
		accepted[r] = true
	}

	applied := 0
	for _, f := range forced {
		if !accepted[f.Reason] {
			continue
		}

		moved := false
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Ride{}).
				Where("id = ? AND status = ?", f.RideID, f.From).
				Updates(map[string]interface{}{
					"status":       f.To,
					"driver_id":    nil,
					"cancelled_at": now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				// Already moved by a normal transition or a previous run.
				return nil
			}
			moved = true

			if f.DriverID != nil {
				return ReleaseDriverIfIdle(tx, *f.DriverID)
			}
			return nil
		})
		if err != nil {
			log.Printf("Sweeper: failed to close ride %d (%s): %v", f.RideID, f.Reason, err)
			continue
		}
		if !moved {
			continue
		}
		applied++

		s.notifyForcedCancel(f)
	}
	return applied
}

// reconcileBusyDrivers clears is_busy for drivers with no accepted or
// in_progress ride left, so a missed release cannot strand a driver.
func (s *Sweeper) reconcileBusyDrivers() error {
	return s.DB.Exec(`
		UPDATE driver_statuses SET is_busy = false
		WHERE is_busy = true
		AND NOT EXISTS (
			SELECT 1 FROM rides
			WHERE rides.driver_id = driver_statuses.driver_id
			AND rides.status IN ('accepted', 'in_progress')
			AND rides.deleted_at IS NULL
		)`).Error
}

// notifyForcedCancel tells the parties, best effort only.
func (s *Sweeper) notifyForcedCancel(f lifecycle.ForcedTransition) {
	update := RideStatusUpdate{
		RideID:  f.RideID,
		Status:  f.To,
		Message: "Your request timed out and was cancelled",
	}
	if s.Hub != nil {
		s.Hub.SendRideStatus(f.CustomerID, update)
		if f.DriverID != nil {
			s.Hub.SendRideStatus(*f.DriverID, update)
		}
	}

	// SMS reaches customers whose app is closed by the time the deadline hits
	var customer models.User
	if err := s.DB.First(&customer, f.CustomerID).Error; err == nil && customer.PhoneNumber != "" {
		phone, rideID := customer.PhoneNumber, f.RideID
		go func() {
			if err := utils.SendRideCancelledSMS(phone, rideID); err != nil {
				log.Printf("Sweeper: failed to send cancel SMS for ride %d: %v", rideID, err)
			}
		}()
	}

	if RedisClient != nil {
		ctx := context.Background()
		if err := PublishRideUpdate(ctx, f.RideID, f.To, map[string]interface{}{
			"reason": string(f.Reason),
		}); err != nil {
			log.Printf("Sweeper: failed to publish update for ride %d: %v", f.RideID, err)
		}
	}
}
