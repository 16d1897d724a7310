// Package reports is the maintenance-report workflow: the report records,
// their assignment list, and the append-only history thread. The edit rule
// lives here: the creator may rewrite a report freely for 24 hours after
// creation; active assignees may edit at any time; once the window closes
// the creator is pointed at the history thread instead.
package reports
