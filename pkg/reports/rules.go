package reports

import "time"

// AuthorizeEdit decides whether a user may fully edit a report at the
// given instant. Active assignees always may; the creator only inside
// EditWindow after creation, and afterwards gets ErrEditWindowClosed,
// which directs them to the history thread. Everyone else gets
// ErrNotAllowed.
func AuthorizeEdit(r *Report, userID int64, isActiveAssignee bool, now time.Time) error {
	if isActiveAssignee {
		return nil
	}
	if r.CreatedBy == userID {
		if now.Sub(r.CreatedAt) <= EditWindow {
			return nil
		}
		return ErrEditWindowClosed
	}
	return ErrNotAllowed
}
