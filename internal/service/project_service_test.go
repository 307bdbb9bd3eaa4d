package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nusakarya/projectledger/internal/model"
)

type fakeProjectRepo struct {
	projects map[string]*model.Project
	countErr error
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{projects: map[string]*model.Project{}}
}

func (f *fakeProjectRepo) Get(_ context.Context, id string) (*model.Project, error) {
	project, ok := f.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *project
	return &copied, nil
}

func (f *fakeProjectRepo) Exists(_ context.Context, id string) (bool, error) {
	_, ok := f.projects[id]
	return ok, nil
}

func (f *fakeProjectRepo) Create(_ context.Context, project *model.Project) error {
	copied := *project
	f.projects[project.ID] = &copied
	return nil
}

func (f *fakeProjectRepo) Update(_ context.Context, project *model.Project) error {
	copied := *project
	f.projects[project.ID] = &copied
	return nil
}

func (f *fakeProjectRepo) CountCodesWithPrefix(_ context.Context, prefix string) (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	var count int64
	for id := range f.projects {
		if len(id) >= len(prefix) && id[:len(prefix)] == prefix {
			count++
		}
	}
	return count, nil
}

func (f *fakeProjectRepo) CodeExists(_ context.Context, code string) (bool, error) {
	_, ok := f.projects[code]
	return ok, nil
}

type fakeCascadeStore struct {
	counts  map[string]int64
	failAt  string
	deleted []string
}

func (f *fakeCascadeStore) InTransaction(_ context.Context, fn func(tx CascadeTx) error) error {
	shadow := &fakeCascadeTx{store: f}
	if err := fn(shadow); err != nil {
		// Rolled back: nothing the steps did survives.
		shadow.applied = nil
		return err
	}
	f.deleted = shadow.applied
	return nil
}

type fakeCascadeTx struct {
	store   *fakeCascadeStore
	applied []string
}

func (t *fakeCascadeTx) step(name string) (int64, error) {
	if t.store.failAt == name {
		return 0, errors.New("constraint violation on " + name)
	}
	t.applied = append(t.applied, name)
	return t.store.counts[name], nil
}

func (t *fakeCascadeTx) DeleteReceipts(string) (int64, error)       { return t.step("receipts") }
func (t *fakeCascadeTx) DeletePurchaseOrders(string) (int64, error) { return t.step("orders") }
func (t *fakeCascadeTx) DeleteCertificates(string) (int64, error)   { return t.step("certificates") }
func (t *fakeCascadeTx) DeleteBudgetLines(string) (int64, error)    { return t.step("budget") }
func (t *fakeCascadeTx) DeleteTeamMembers(string) (int64, error)    { return t.step("team") }
func (t *fakeCascadeTx) DeleteMilestones(string) (int64, error)     { return t.step("milestones") }
func (t *fakeCascadeTx) DeleteDocuments(string) (int64, error)      { return t.step("documents") }
func (t *fakeCascadeTx) DeleteProject(string) (int64, error)        { return t.step("project") }

func newProjectServiceForTest(repo *fakeProjectRepo, cascade *fakeCascadeStore, at time.Time) *ProjectService {
	svc := NewProjectService(repo, cascade)
	svc.now = func() time.Time { return at }
	return svc
}

func TestProjectCreate(t *testing.T) {
	repo := newFakeProjectRepo()
	at := time.Date(2025, time.February, 3, 8, 0, 0, 0, time.UTC)
	svc := newProjectServiceForTest(repo, &fakeCascadeStore{}, at)

	project, err := svc.Create(context.Background(), CreateProjectInput{
		Name:           "  Harbor Logistics Depot  ",
		ClientName:     "PT Pelindo",
		SubsidiaryCode: "hdl",
		Budget:         5_000_000_000,
		Principal:      testPrincipal,
	})
	require.NoError(t, err)

	assert.Equal(t, "2025HDL001", project.ID)
	assert.Equal(t, "Harbor Logistics Depot", project.Name)
	assert.Equal(t, "HDL", project.SubsidiaryCode)
	assert.Equal(t, model.ProjectStatusPlanning, project.Status)
}

func TestProjectCreate_Validation(t *testing.T) {
	repo := newFakeProjectRepo()
	svc := newProjectServiceForTest(repo, &fakeCascadeStore{}, time.Now())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateProjectInput{Name: " ", SubsidiaryCode: "HDL", Principal: testPrincipal})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, CreateProjectInput{Name: "X", SubsidiaryCode: "HD", Principal: testPrincipal})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, CreateProjectInput{Name: "X", SubsidiaryCode: "H1L", Principal: testPrincipal})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGenerateProjectCode_SequenceContinues(t *testing.T) {
	repo := newFakeProjectRepo()
	repo.projects["2025HDL001"] = &model.Project{ID: "2025HDL001"}
	repo.projects["2025HDL002"] = &model.Project{ID: "2025HDL002"}
	repo.projects["2025TRK001"] = &model.Project{ID: "2025TRK001"}
	at := time.Date(2025, time.February, 3, 8, 0, 0, 0, time.UTC)
	svc := newProjectServiceForTest(repo, &fakeCascadeStore{}, at)

	code := svc.GenerateProjectCode(context.Background(), "HDL", 2025)
	assert.Equal(t, "2025HDL003", code)
}

func TestGenerateProjectCode_CollisionRetries(t *testing.T) {
	repo := newFakeProjectRepo()
	// A gap in the sequence makes the count-derived candidate collide:
	// two codes exist, but the next one up (003) is already taken.
	repo.projects["2025HDL002"] = &model.Project{ID: "2025HDL002"}
	repo.projects["2025HDL003"] = &model.Project{ID: "2025HDL003"}
	svc := newProjectServiceForTest(repo, &fakeCascadeStore{}, time.Now())

	code := svc.GenerateProjectCode(context.Background(), "HDL", 2025)
	assert.Equal(t, "2025HDL004", code)
}

func TestGenerateProjectCode_FallbackOnRepoError(t *testing.T) {
	repo := newFakeProjectRepo()
	repo.countErr = errors.New("connection reset")
	at := time.Date(2025, time.February, 3, 8, 30, 15, 0, time.UTC)
	svc := newProjectServiceForTest(repo, &fakeCascadeStore{}, at)

	code := svc.GenerateProjectCode(context.Background(), "HDL", 2025)
	assert.Equal(t, "PRJ-20250203083015", code)
}

func TestProjectDelete_CountsReported(t *testing.T) {
	repo := newFakeProjectRepo()
	repo.projects["2025HDL001"] = &model.Project{ID: "2025HDL001"}
	cascade := &fakeCascadeStore{counts: map[string]int64{
		"receipts": 2, "orders": 3, "certificates": 4, "budget": 12,
		"team": 5, "milestones": 6, "documents": 1, "project": 1,
	}}
	svc := newProjectServiceForTest(repo, cascade, time.Now())

	counts, err := svc.Delete(context.Background(), "2025HDL001")
	require.NoError(t, err)

	assert.Equal(t, int64(2), counts.DeliveryReceipts)
	assert.Equal(t, int64(3), counts.PurchaseOrders)
	assert.Equal(t, int64(4), counts.Certificates)
	assert.Equal(t, int64(12), counts.BudgetLines)
	assert.Equal(t, int64(5), counts.TeamMembers)
	assert.Equal(t, int64(6), counts.Milestones)
	assert.Equal(t, int64(1), counts.Documents)
	assert.Equal(t, int64(1), counts.Project)

	// Leaf tables first, the project row last.
	assert.Equal(t, []string{
		"receipts", "orders", "certificates", "budget",
		"team", "milestones", "documents", "project",
	}, cascade.deleted)
}

func TestProjectDelete_AllOrNothing(t *testing.T) {
	repo := newFakeProjectRepo()
	repo.projects["2025HDL001"] = &model.Project{ID: "2025HDL001"}
	cascade := &fakeCascadeStore{failAt: "documents"}
	svc := newProjectServiceForTest(repo, cascade, time.Now())

	counts, err := svc.Delete(context.Background(), "2025HDL001")
	require.Error(t, err)
	assert.Nil(t, counts)
	assert.Empty(t, cascade.deleted)
}

func TestProjectDelete_UnknownProject(t *testing.T) {
	svc := newProjectServiceForTest(newFakeProjectRepo(), &fakeCascadeStore{}, time.Now())

	_, err := svc.Delete(context.Background(), "2099XXX001")
	assert.ErrorIs(t, err, ErrNotFound)
}
