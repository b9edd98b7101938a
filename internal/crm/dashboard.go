package crm

import (
	"context"

	apperrors "crm-assistant/internal/common/errors"
	"crm-assistant/internal/models"
)

func (s *Service) Dashboard(ctx context.Context, caller models.Identity) (*models.Dashboard, error) {
	scope, err := s.readScope(ctx, caller)
	if err != nil {
		return nil, err
	}
	stats, err := s.deps.Store.DealStageStats(ctx, scope)
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError("deal stage stats", err)
	}
	return BuildDashboard(stats), nil
}

// BuildDashboard orders per-stage stats canonically. The count list skips
// stages without deals; the value list keeps every stage.
func BuildDashboard(stats []models.StageCount) *models.Dashboard {
	byStage := make(map[string]models.StageCount, len(stats))
	for _, sc := range stats {
		byStage[sc.Stage] = sc
	}

	d := &models.Dashboard{
		DealsByStage:     []models.StageCount{},
		DealValueByStage: make([]models.StageCount, 0, len(models.DealStages)),
	}
	for _, stage := range models.DealStages {
		sc := byStage[stage]
		sc.Stage = stage
		if sc.Count > 0 {
			d.DealsByStage = append(d.DealsByStage, sc)
		}
		d.DealValueByStage = append(d.DealValueByStage, sc)
		d.TotalDeals += sc.Count
		d.TotalPipelineValue += sc.Value
	}
	return d
}
