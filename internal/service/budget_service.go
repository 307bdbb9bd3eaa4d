package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nusakarya/projectledger/internal/budget"
	"github.com/nusakarya/projectledger/internal/model"
)

// CategorySpend is measured actual/committed spend for one category:
// actual from PO totals whose deliveries were received or completed,
// committed from approved/pending POs not yet received.
type CategorySpend struct {
	Category  string
	Actual    float64
	Committed float64
}

type BudgetReadRepository interface {
	PlannedByCategory(ctx context.Context, projectID string) ([]budget.CategoryInput, error)
	SpendByCategory(ctx context.Context, projectID string) ([]CategorySpend, error)
	HistoricalSpend(ctx context.Context, projectID, timeframe string) ([]float64, error)
}

type BudgetWorkbookGenerator interface {
	GenerateBudgetWorkbook(project model.Project, report budget.Report) ([]byte, error)
}

type BudgetService struct {
	repo     BudgetReadRepository
	projects ProjectReader
	excel    BudgetWorkbookGenerator
	now      func() time.Time
}

func NewBudgetService(repo BudgetReadRepository, projects ProjectReader, excel BudgetWorkbookGenerator) *BudgetService {
	return &BudgetService{repo: repo, projects: projects, excel: excel, now: time.Now}
}

type BudgetMonitoringResult struct {
	Report   budget.Report  `json:"report"`
	Metadata BudgetMetadata `json:"metadata"`
}

type BudgetMetadata struct {
	ProjectID       string    `json:"projectId"`
	ProjectName     string    `json:"projectName"`
	ProjectProgress float64   `json:"projectProgress"`
	Timeframe       string    `json:"timeframe"`
	CategoryCount   int       `json:"categoryCount"`
	GeneratedAt     time.Time `json:"generatedAt"`
}

// Monitor builds the variance report for a project. When no tracking data
// exists the engine substitutes the progress-based estimate; the result is
// tagged so the caller can tell estimated figures from measured ones.
func (s *BudgetService) Monitor(ctx context.Context, projectID, timeframe string) (*BudgetMonitoringResult, error) {
	timeframe = normalizeTimeframe(timeframe)

	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	planned, err := s.repo.PlannedByCategory(ctx, projectID)
	if err != nil {
		return nil, err
	}
	spend, err := s.repo.SpendByCategory(ctx, projectID)
	if err != nil {
		return nil, err
	}
	history, err := s.repo.HistoricalSpend(ctx, projectID, timeframe)
	if err != nil {
		return nil, err
	}

	inputs := mergeSpend(planned, spend)
	report := budget.Compute(inputs, len(spend) > 0, project.Progress, timeframe, history)

	return &BudgetMonitoringResult{
		Report: report,
		Metadata: BudgetMetadata{
			ProjectID:       project.ID,
			ProjectName:     project.Name,
			ProjectProgress: project.Progress,
			Timeframe:       timeframe,
			CategoryCount:   len(report.Categories),
			GeneratedAt:     s.now(),
		},
	}, nil
}

type BudgetExportResult struct {
	FileName string
	Content  []byte
}

// Export renders the monitoring report as an Excel workbook.
func (s *BudgetService) Export(ctx context.Context, projectID, timeframe string) (*BudgetExportResult, error) {
	result, err := s.Monitor(ctx, projectID, timeframe)
	if err != nil {
		return nil, err
	}
	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	content, err := s.excel.GenerateBudgetWorkbook(*project, result.Report)
	if err != nil {
		return nil, err
	}
	fileName := fmt.Sprintf("budget-%s-%s.xlsx", projectID, s.now().Format("20060102"))
	return &BudgetExportResult{FileName: fileName, Content: content}, nil
}

func mergeSpend(planned []budget.CategoryInput, spend []CategorySpend) []budget.CategoryInput {
	index := make(map[string]int, len(planned))
	for i, cat := range planned {
		index[cat.Category] = i
	}
	for _, row := range spend {
		if pos, ok := index[row.Category]; ok {
			planned[pos].Actual += row.Actual
			planned[pos].Committed += row.Committed
		}
	}
	return planned
}

func normalizeTimeframe(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "week":
		return "week"
	case "quarter":
		return "quarter"
	case "year":
		return "year"
	default:
		return "month"
	}
}
