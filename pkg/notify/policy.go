package notify

import (
	"context"
	"fmt"
)

// Policy helpers. Each one computes a recipient set by business rule and
// hands it to the generic primitives; the rules can change without
// touching the fan-out mechanism.

// ReportCreated tells an organization's admins about a new report. For
// high and critical priorities every active user of the organization is
// included as well.
func (s *Service) ReportCreated(ctx context.Context, orgID, reportID, actorID int64, title, priority string) ([]DeliveryResult, error) {
	recipients, err := s.directory.AdminIDs(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve admins for org %d: %w", orgID, err)
	}
	if priority == "alta" || priority == "critica" {
		all, err := s.directory.ActiveUserIDs(ctx, orgID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve users for org %d: %w", orgID, err)
		}
		recipients = union(recipients, all)
	}

	return s.NotifyMany(ctx, exclude(recipients, actorID), Payload{
		Type:     TypeNewReport,
		Title:    "Novo relatório",
		Message:  fmt.Sprintf("Relatório criado: %s", title),
		ReportID: &reportID,
	}), nil
}

// InspectionCreated tells an organization's admins about a new generator
// inspection.
func (s *Service) InspectionCreated(ctx context.Context, orgID, actorID int64, equipmentName string) ([]DeliveryResult, error) {
	admins, err := s.directory.AdminIDs(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve admins for org %d: %w", orgID, err)
	}
	return s.NotifyMany(ctx, exclude(admins, actorID), Payload{
		Type:    TypeNewInspection,
		Title:   "Nova inspeção de gerador",
		Message: fmt.Sprintf("Inspeção registrada para %s", equipmentName),
	}), nil
}

// AnalyzerCreated tells an organization's admins about a new analyzer
// record.
func (s *Service) AnalyzerCreated(ctx context.Context, orgID, actorID int64, analyzerName string) ([]DeliveryResult, error) {
	admins, err := s.directory.AdminIDs(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve admins for org %d: %w", orgID, err)
	}
	return s.NotifyMany(ctx, exclude(admins, actorID), Payload{
		Type:    TypeNewAnalyzer,
		Title:   "Novo analisador",
		Message: fmt.Sprintf("Analisador cadastrado: %s", analyzerName),
	}), nil
}

// StatusChanged tells a report's active assignees (minus the actor) about
// a status transition.
func (s *Service) StatusChanged(ctx context.Context, reportID, actorID int64, title, newStatus string) ([]DeliveryResult, error) {
	return s.NotifyAssignees(ctx, reportID, actorID, Payload{
		Type:     TypeStatusChange,
		Title:    "Mudança de status",
		Message:  fmt.Sprintf("%s agora está %s", title, newStatus),
		ReportID: &reportID,
	})
}

// HistoryAdded tells a report's active assignees (minus the actor) about a
// new history entry.
func (s *Service) HistoryAdded(ctx context.Context, reportID, actorID int64, title string) ([]DeliveryResult, error) {
	return s.NotifyAssignees(ctx, reportID, actorID, Payload{
		Type:     TypeNewHistory,
		Title:    "Novo histórico",
		Message:  fmt.Sprintf("Novo histórico em %s", title),
		ReportID: &reportID,
	})
}

// AssigneesChanged tells newly assigned users about their assignment.
func (s *Service) AssigneesChanged(ctx context.Context, reportID, actorID int64, title string, addedUserIDs []int64) []DeliveryResult {
	return s.NotifyMany(ctx, exclude(addedUserIDs, actorID), Payload{
		Type:     TypeNewAssignment,
		Title:    "Nova atribuição",
		Message:  fmt.Sprintf("Você foi atribuído a %s", title),
		ReportID: &reportID,
	})
}

func union(a, b []int64) []int64 {
	seen := make(map[int64]struct{}, len(a)+len(b))
	out := make([]int64, 0, len(a)+len(b))
	for _, ids := range [][]int64{a, b} {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
