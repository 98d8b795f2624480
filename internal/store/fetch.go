package store

import (
	"context"
	"sync"
	"time"

	"github.com/kestrelhq/kestrel-sync/internal/gateway"
	"github.com/kestrelhq/kestrel-sync/internal/model"
)

// LoadInitial performs the startup fan-out: notifications always, devices
// and/or rooms depending on the active view. Each fetch fails independently;
// a failure is logged and toasted but never blocks the others, so a
// partially reachable backend still yields a partially populated dashboard.
func (s *Store) LoadInitial(ctx context.Context) {
	view := s.ActiveView()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.refreshNotifications(ctx); err != nil {
			s.reportFetchFailure("notifications", err)
		}
	}()

	if view == ViewDevices || view == ViewAll {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.refreshDevices(ctx); err != nil {
				s.reportFetchFailure("devices", err)
			}
		}()
	}
	if view == ViewRooms || view == ViewAll {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.refreshRooms(ctx); err != nil {
				s.reportFetchFailure("rooms", err)
			}
		}()
	}
	wg.Wait()
}

// Run drives the polling loop until the context is cancelled. One tick runs
// immediately; subsequent ticks follow the configured interval.
func (s *Store) Run(ctx context.Context) {
	s.logger.Info("polling started", "interval", s.interval)
	s.pollTick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("polling stopped")
			return
		case <-ticker.C:
			s.pollTick(ctx)
		}
	}
}

// pollTick refreshes the collections the active view needs, then the latest
// sensor values. Re-entry is guarded: a tick that would overlap a still
// running one, or land inside a toggle window, is skipped entirely rather
// than queued. Polling resumes on the next interval after the window closes.
func (s *Store) pollTick(ctx context.Context) {
	if !s.tryBeginPoll() {
		s.logger.Debug("poll tick skipped", "toggling", s.toggling())
		return
	}
	defer s.endPoll()

	view := s.ActiveView()

	if view == ViewDevices || view == ViewAll {
		if err := s.refreshDevices(ctx); err != nil {
			s.reportFetchFailure("devices", err)
		}
	}
	if view == ViewRooms || view == ViewAll {
		if err := s.refreshRooms(ctx); err != nil {
			s.reportFetchFailure("rooms", err)
		}
	}
	if err := s.refreshNotifications(ctx); err != nil {
		s.reportFetchFailure("notifications", err)
	}
	if err := s.RefreshLatestValues(ctx); err != nil {
		s.reportFetchFailure("sensor values", err)
	}
}

// tryBeginPoll claims the poll guard. It fails when a tick is already
// running or a toggle window is open.
func (s *Store) tryBeginPoll() bool {
	s.flagMu.Lock()
	defer s.flagMu.Unlock()
	if s.polling || s.toggles > 0 {
		return false
	}
	s.polling = true
	return true
}

// endPoll releases the poll guard.
func (s *Store) endPoll() {
	s.flagMu.Lock()
	s.polling = false
	s.flagMu.Unlock()
}

// refreshDevices re-fetches the device list and merges it into the canonical
// collection.
func (s *Store) refreshDevices(ctx context.Context) error {
	incoming, err := s.gw.Devices(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.devices = mergeDeviceLists(s.devices, incoming)
	count := len(s.devices)
	s.mu.Unlock()

	s.logger.Debug("devices refreshed", "count", count)
	return nil
}

// refreshRooms re-fetches the room list. Rooms carry no value fields that
// could regress, so the incoming list replaces the collection.
func (s *Store) refreshRooms(ctx context.Context) error {
	incoming, err := s.gw.Rooms(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.rooms = incoming
	count := len(s.rooms)
	s.mu.Unlock()

	s.logger.Debug("rooms refreshed", "count", count)
	return nil
}

// refreshNotifications re-fetches the notification feed. Locally appended
// alerts that the backend does not know about are preserved in front of the
// fetched feed.
func (s *Store) refreshNotifications(ctx context.Context) error {
	incoming, err := s.gw.Notifications(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	known := make(map[string]struct{}, len(incoming))
	for _, n := range incoming {
		known[n.ID] = struct{}{}
	}
	merged := make([]model.Notification, 0, len(incoming)+len(s.notifications))
	for _, n := range s.notifications {
		if n.Local {
			if _, ok := known[n.ID]; !ok {
				merged = append(merged, n)
			}
		}
	}
	merged = append(merged, incoming...)
	changed := !notificationsEqual(s.notifications, merged)
	s.notifications = merged
	snapshot := make([]model.Notification, len(merged))
	copy(snapshot, merged)
	s.mu.Unlock()

	if changed {
		s.publishNotifications(snapshot)
	}
	return nil
}

// RefreshLatestValues fetches the most recent reading per sensor and merges
// the values into the canonical sensor collection, then evaluates threshold
// crossings (see alerts.go).
func (s *Store) RefreshLatestValues(ctx context.Context) error {
	points, err := s.gw.LatestSensorData(ctx, gateway.DataFilter{})
	if err != nil {
		return err
	}
	s.applyLatestValues(points)
	return nil
}

// reportFetchFailure logs a failed fan-out slice and raises a toast. The
// corresponding collection is left unchanged; siblings proceed.
func (s *Store) reportFetchFailure(what string, err error) {
	s.logger.Warn("fetch failed", "collection", what, "error", err)
	s.notifier.Toast(model.NotificationError, "Could not refresh "+what)
}

// notificationsEqual compares two notification lists by id and read flag,
// the only fields whose change is worth a publish.
func notificationsEqual(a, b []model.Notification) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Read != b[i].Read {
			return false
		}
	}
	return true
}
