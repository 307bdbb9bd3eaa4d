package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/nusakarya/projectledger/internal/model"
)

// maxNumberAttempts bounds the collision-retry loop shared by the project
// code generator and the certificate/invoice numbering.
const maxNumberAttempts = 10

type ProjectRepository interface {
	Get(ctx context.Context, id string) (*model.Project, error)
	Exists(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, project *model.Project) error
	Update(ctx context.Context, project *model.Project) error
	CountCodesWithPrefix(ctx context.Context, prefix string) (int64, error)
	CodeExists(ctx context.Context, code string) (bool, error)
}

// CascadeTx is one transactional scope for project deletion. Each step
// reports how many rows it removed; an error anywhere rolls the whole
// transaction back.
type CascadeTx interface {
	DeleteReceipts(projectID string) (int64, error)
	DeletePurchaseOrders(projectID string) (int64, error)
	DeleteCertificates(projectID string) (int64, error)
	DeleteBudgetLines(projectID string) (int64, error)
	DeleteTeamMembers(projectID string) (int64, error)
	DeleteMilestones(projectID string) (int64, error)
	DeleteDocuments(projectID string) (int64, error)
	DeleteProject(projectID string) (int64, error)
}

type CascadeStore interface {
	InTransaction(ctx context.Context, fn func(tx CascadeTx) error) error
}

type ProjectService struct {
	repo    ProjectRepository
	cascade CascadeStore
	now     func() time.Time
}

func NewProjectService(repo ProjectRepository, cascade CascadeStore) *ProjectService {
	return &ProjectService{repo: repo, cascade: cascade, now: time.Now}
}

type CreateProjectInput struct {
	Name           string
	ClientName     string
	Location       string
	SubsidiaryCode string
	Budget         float64
	StartDate      *time.Time
	EndDate        *time.Time
	Principal      model.Principal
}

func (s *ProjectService) Create(ctx context.Context, input CreateProjectInput) (*model.Project, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrValidation)
	}
	sub, err := normalizeSubsidiaryCode(input.SubsidiaryCode)
	if err != nil {
		return nil, err
	}

	now := s.now()
	code := s.GenerateProjectCode(ctx, sub, now.Year())

	project := &model.Project{
		ID:             code,
		Name:           strings.TrimSpace(input.Name),
		ClientName:     input.ClientName,
		Location:       input.Location,
		SubsidiaryCode: sub,
		Budget:         input.Budget,
		Status:         model.ProjectStatusPlanning,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		CreatedBy:      input.Principal.Identity(),
		UpdatedBy:      input.Principal.Identity(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// GenerateProjectCode allocates the next <year><subsidiary><seq> code.
// The sequence is the count of existing codes under the year+subsidiary
// prefix plus one, with a bounded retry on collision and a timestamp-based
// fallback when the generator itself fails.
func (s *ProjectService) GenerateProjectCode(ctx context.Context, subsidiaryCode string, year int) string {
	prefix := fmt.Sprintf("%04d%s", year, subsidiaryCode)

	count, err := s.repo.CountCodesWithPrefix(ctx, prefix)
	if err != nil {
		return s.fallbackCode()
	}

	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		code := fmt.Sprintf("%s%03d", prefix, count+1+int64(attempt))
		taken, err := s.repo.CodeExists(ctx, code)
		if err != nil {
			return s.fallbackCode()
		}
		if !taken {
			return code
		}
	}
	return s.fallbackCode()
}

func (s *ProjectService) fallbackCode() string {
	return fmt.Sprintf("PRJ-%s", s.now().Format("20060102150405"))
}

func (s *ProjectService) Get(ctx context.Context, id string) (*model.Project, error) {
	return s.repo.Get(ctx, id)
}

// Delete removes the project and all seven dependent record kinds in one
// all-or-nothing transaction, leaf tables first.
func (s *ProjectService) Delete(ctx context.Context, projectID string) (*model.DeletedCounts, error) {
	exists, err := s.repo.Exists(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	var counts model.DeletedCounts
	err = s.cascade.InTransaction(ctx, func(tx CascadeTx) error {
		steps := []struct {
			run  func(string) (int64, error)
			dest *int64
		}{
			{tx.DeleteReceipts, &counts.DeliveryReceipts},
			{tx.DeletePurchaseOrders, &counts.PurchaseOrders},
			{tx.DeleteCertificates, &counts.Certificates},
			{tx.DeleteBudgetLines, &counts.BudgetLines},
			{tx.DeleteTeamMembers, &counts.TeamMembers},
			{tx.DeleteMilestones, &counts.Milestones},
			{tx.DeleteDocuments, &counts.Documents},
			{tx.DeleteProject, &counts.Project},
		}
		for _, step := range steps {
			n, err := step.run(projectID)
			if err != nil {
				return err
			}
			*step.dest = n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &counts, nil
}

func normalizeSubsidiaryCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) != 3 {
		return "", fmt.Errorf("%w: subsidiary code must be exactly 3 letters", ErrValidation)
	}
	for _, r := range code {
		if !unicode.IsLetter(r) {
			return "", fmt.Errorf("%w: subsidiary code must be letters only", ErrValidation)
		}
	}
	return code, nil
}
