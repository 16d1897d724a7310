package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/relatoapp/relato/pkg/observability"
)

// Directory resolves recipient sets for the policy helpers. Implemented by
// PostgresDirectory against the users and report_assignments tables.
type Directory interface {
	AdminIDs(ctx context.Context, orgID int64) ([]int64, error)
	ActiveUserIDs(ctx context.Context, orgID int64) ([]int64, error)
	ActiveAssigneeIDs(ctx context.Context, reportID int64) ([]int64, error)
}

// Service is the notification fan-out engine.
type Service struct {
	store     Store
	registry  *Registry
	transport Transport
	directory Directory
	logger    *observability.Logger
	metrics   *observability.Metrics
}

// NewService wires the notification service. transport may be nil until the
// realtime hub starts; recipients are then reached on their next login.
func NewService(store Store, registry *Registry, directory Directory, logger *observability.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		store:     store,
		registry:  registry,
		directory: directory,
		logger:    logger,
		metrics:   metrics,
	}
}

// SetTransport attaches the live push transport. Called once at startup,
// before the server accepts connections.
func (s *Service) SetTransport(t Transport) {
	s.transport = t
}

// Create persists a notification for one recipient and pushes it live when
// the recipient is connected. Returns (nil, nil) when the recipient's
// preference suppresses the type.
func (s *Service) Create(ctx context.Context, userID int64, p Payload) (*Notification, error) {
	if !p.Type.Valid() {
		return nil, fmt.Errorf("unknown notification type %q", p.Type)
	}

	enabled, err := s.store.PreferenceEnabled(ctx, userID, p.Type)
	if err != nil {
		return nil, err
	}
	if !enabled {
		if s.metrics != nil {
			s.metrics.NotificationsSuppressedTotal.Inc()
		}
		return nil, nil
	}

	n := &Notification{
		UserID:   userID,
		ReportID: p.ReportID,
		Type:     p.Type,
		Title:    p.Title,
		Message:  p.Message,
		Data:     p.Data,
	}
	if err := s.store.Create(ctx, n); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.NotificationsCreatedTotal.WithLabelValues(string(p.Type)).Inc()
	}

	s.push(userID, EventNew, n)
	return n, nil
}

// push emits an event to the recipient's live connection, if any. A push
// to a stale connection is logged and skipped; the persisted record stands.
func (s *Service) push(userID int64, event string, data interface{}) {
	if s.transport == nil || s.registry == nil {
		return
	}
	connID, ok := s.registry.ConnID(userID)
	if !ok {
		if s.metrics != nil {
			s.metrics.NotificationPushTotal.WithLabelValues("offline").Inc()
		}
		return
	}
	if err := s.transport.Emit(connID, event, data); err != nil {
		if s.metrics != nil {
			s.metrics.NotificationPushTotal.WithLabelValues("stale").Inc()
		}
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"user_id": userID,
			"conn_id": connID,
			"event":   event,
		}).Debug("live push skipped, connection stale")
		s.registry.Unbind(connID)
		return
	}
	if s.metrics != nil {
		s.metrics.NotificationPushTotal.WithLabelValues("delivered").Inc()
	}
}

// NotifyMany fans a payload out to each user id independently. One
// recipient's failure never blocks the others; callers inspect the
// per-recipient results.
func (s *Service) NotifyMany(ctx context.Context, userIDs []int64, p Payload) []DeliveryResult {
	results := make([]DeliveryResult, 0, len(userIDs))
	for _, userID := range userIDs {
		res := DeliveryResult{UserID: userID}
		n, err := s.Create(ctx, userID, p)
		switch {
		case err != nil:
			res.Err = err
			s.logger.WithError(err).WithField("user_id", userID).
				Error("notification delivery failed")
		case n == nil:
			res.Suppressed = true
		default:
			res.NotificationID = n.ID
		}
		results = append(results, res)
	}
	return results
}

// NotifyAssignees delivers a payload to a report's active assignees,
// excluding the acting user.
func (s *Service) NotifyAssignees(ctx context.Context, reportID, actorID int64, p Payload) ([]DeliveryResult, error) {
	assignees, err := s.directory.ActiveAssigneeIDs(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve assignees for report %d: %w", reportID, err)
	}
	return s.NotifyMany(ctx, exclude(assignees, actorID), p), nil
}

// MarkRead marks one notification read and confirms over the live
// connection. Already-read rows are a no-op, not an error; rows owned by
// another user read as ErrNotFound.
func (s *Service) MarkRead(ctx context.Context, id, userID int64) error {
	changed, err := s.store.MarkRead(ctx, id, userID)
	if err != nil {
		return err
	}
	if !changed {
		_, err := s.store.GetByID(ctx, id, userID)
		return err
	}
	s.push(userID, EventRead, map[string]interface{}{"id": id})
	return nil
}

// MarkAllRead marks every unread notification for the user.
func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	count, err := s.store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.push(userID, EventReadAll, map[string]interface{}{"count": count})
	}
	return count, nil
}

// ListResult pairs a notification page with the user's unread total.
type ListResult struct {
	Notifications []*Notification `json:"notifications"`
	UnreadCount   int             `json:"unread_count"`
}

// ListForUser returns a page of the user's notifications plus the unread
// count.
func (s *Service) ListForUser(ctx context.Context, userID int64, limit, offset int, unreadOnly bool) (*ListResult, error) {
	notifications, err := s.store.ListForUser(ctx, userID, limit, offset, unreadOnly)
	if err != nil {
		return nil, err
	}
	unread, err := s.store.UnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if notifications == nil {
		notifications = []*Notification{}
	}
	return &ListResult{Notifications: notifications, UnreadCount: unread}, nil
}

// UpsertPreference stores a per-type opt-in/opt-out.
func (s *Service) UpsertPreference(ctx context.Context, p *Preference) error {
	if !p.Type.Valid() {
		return fmt.Errorf("unknown notification type %q", p.Type)
	}
	return s.store.UpsertPreference(ctx, p)
}

// ListPreferences returns the user's stored preference rows.
func (s *Service) ListPreferences(ctx context.Context, userID int64) ([]*Preference, error) {
	return s.store.ListPreferences(ctx, userID)
}

// PurgeOlderThan deletes notifications older than the retention window.
// Scheduled by the host binaries, not by the service.
func (s *Service) PurgeOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	count, err := s.store.PurgeOlderThan(ctx, time.Now().UTC().Add(-retention))
	if err != nil {
		return 0, err
	}
	if count > 0 {
		if s.metrics != nil {
			s.metrics.NotificationsPurgedTotal.Add(float64(count))
		}
		s.logger.WithField("count", count).Info("purged old notifications")
	}
	return count, nil
}

func exclude(ids []int64, skip int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != skip {
			out = append(out, id)
		}
	}
	return out
}
