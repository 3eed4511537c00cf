package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/stackscope/internal/apperr"
	"github.com/starford/stackscope/internal/graph"
	"github.com/starford/stackscope/internal/models"
	"github.com/starford/stackscope/internal/testutil"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newCoordinator(t *testing.T, p *testutil.Project, opts ...Option) (*Coordinator, *graph.Store) {
	t.Helper()
	store := testutil.TestStore(t, graph.WithClock(testutil.TickingClock(epoch, time.Second)))
	base := []Option{
		WithUISource(p.UI),
		WithBackendSource(p.Backend),
		WithContractsPath(p.ContractsPath),
		WithWorkers(2),
		WithCache(64, 0),
		WithLogger(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))),
	}
	c, err := New(store, append(base, opts...)...)
	require.NoError(t, err)
	return c, store
}

func TestNew_RequiresASource(t *testing.T) {
	_, err := New(testutil.TestStore(t))
	assert.Error(t, err)
}

func TestRun_SampleProject(t *testing.T) {
	p := testutil.SampleProject(t)
	c, store := newCoordinator(t, p)
	ctx := context.Background()

	sum, err := c.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, sum.FilesScanned)
	assert.Equal(t, 3, sum.UIFiles)
	assert.Equal(t, 1, sum.BackendFiles)
	assert.Zero(t, sum.ExtractionErrors)
	assert.Zero(t, sum.PersistenceErrors)
	assert.Equal(t, 10, sum.Entities)
	assert.Equal(t, 6, sum.Relationships)
	assert.Equal(t, 3, sum.APIMappings)
	assert.Zero(t, sum.ValidationLinks)
	assert.Equal(t, 1, sum.ReferentialWarnings, "call outside any widget")
	assert.Equal(t, 3, sum.Contracts)
	assert.Equal(t, map[string]int{
		"missing_backend_endpoints":     1,
		"backend_without_contract":      1,
		"contracts_not_used_in_flutter": 1,
		"method_mismatches":             1,
	}, sum.Gaps)

	st, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, st.Entities)
	assert.Equal(t, map[string]int{
		"ui_component":     2,
		"state_container":  1,
		"api_endpoint":     2,
		"data_model":       2,
		"service_function": 3,
	}, st.EntitiesByType)
	assert.Equal(t, map[string]int{"dart": 3, "python": 7}, st.EntitiesByLanguage)
	assert.Equal(t, map[string]int{"calls": 3, "uses": 2, "extends": 1}, st.RelationshipsByType)
	assert.Equal(t, 3, st.APIMappings)
}

func TestRun_Relationships(t *testing.T) {
	p := testutil.SampleProject(t)
	c, _ := newCoordinator(t, p)
	ctx := context.Background()
	_, err := c.Run(ctx)
	require.NoError(t, err)

	profile := models.EntityID(models.EntityUIComponent, "ProfilePage", "lib/login.dart")
	called, err := c.RelatedEntities(ctx, profile, models.RelCalls)
	require.NoError(t, err)
	require.Len(t, called, 2)
	assert.Equal(t, "create_user", called[0].Name)
	assert.Equal(t, "list_users", called[1].Name)

	login := models.EntityID(models.EntityUIComponent, "LoginPage", "lib/login.dart")
	used, err := c.RelatedEntities(ctx, login, models.RelUses)
	require.NoError(t, err)
	require.Len(t, used, 1)
	assert.Equal(t, "AuthBloc", used[0].Name)

	listUsers := models.EndpointID("list_users", "GET", "/users", "app/users.py")
	svc, err := c.RelatedEntities(ctx, listUsers, models.RelUses)
	require.NoError(t, err)
	require.Len(t, svc, 1)
	assert.Equal(t, "fetch_users", svc[0].Name)

	admin := models.EntityID(models.EntityDataModel, "AdminCreate", "app/users.py")
	parents, err := c.RelatedEntities(ctx, admin, models.RelExtends)
	require.NoError(t, err)
	require.Len(t, parents, 1)
	assert.Equal(t, "UserCreate", parents[0].Name)

	mappings, err := c.APIMappings(ctx, profile, "")
	require.NoError(t, err)
	require.Len(t, mappings, 2)
	for _, m := range mappings {
		assert.Equal(t, models.MappingTypeAPICall, m.MappingType)
		assert.InDelta(t, 0.8, m.Confidence(), 1e-9)
	}

	createUser := models.EndpointID("create_user", "POST", "/users", "app/users.py")
	callers, err := c.APIMappings(ctx, "", createUser)
	require.NoError(t, err)
	assert.Len(t, callers, 2)
}

func TestRun_IsIdempotent(t *testing.T) {
	p := testutil.SampleProject(t)
	c, store := newCoordinator(t, p)
	ctx := context.Background()

	first, err := c.Run(ctx)
	require.NoError(t, err)
	id := models.EndpointID("list_users", "GET", "/users", "app/users.py")
	before, err := store.Entity(ctx, id)
	require.NoError(t, err)
	statsBefore, err := store.Stats(ctx)
	require.NoError(t, err)

	second, err := c.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Entities, second.Entities)
	assert.Equal(t, first.Relationships, second.Relationships)
	assert.Equal(t, 4, second.CacheHits)

	after, err := store.Entity(ctx, id)
	require.NoError(t, err)
	statsAfter, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, statsBefore, statsAfter)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
	assert.True(t, after.CreatedAt.Equal(before.CreatedAt))
	assert.Equal(t, before.Metadata, after.Metadata)
}

func TestRun_ExtractionErrorsDoNotAbort(t *testing.T) {
	p := testutil.SampleProject(t)
	testutil.WriteFile(t, p.BackendDir, "app/broken.py", "def broken(:\n    pass\n")
	c, _ := newCoordinator(t, p)

	sum, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, sum.FilesScanned)
	assert.Equal(t, 1, sum.ExtractionErrors)
	require.Len(t, sum.FileErrors, 1)
	assert.Equal(t, "app/broken.py", sum.FileErrors[0].Path)
	assert.Equal(t, 10, sum.Entities)
}

func TestRun_ContractsFailureIsSoft(t *testing.T) {
	p := testutil.SampleProject(t)
	c, _ := newCoordinator(t, p, WithContractsPath(filepath.Join(t.TempDir(), "missing.yaml")))

	sum, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, sum.ContractsError)
	assert.Zero(t, sum.Contracts)
	assert.Equal(t, 2, sum.Gaps["backend_without_contract"])
}

func TestRun_StaleEntitiesKeptByDefault(t *testing.T) {
	p := testutil.SampleProject(t)
	c, store := newCoordinator(t, p)
	ctx := context.Background()
	_, err := c.Run(ctx)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(p.UIDir, "lib", "auth_bloc.dart")))
	sum, err := c.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, sum.Pruned)

	_, err = store.Entity(ctx, models.EntityID(models.EntityStateContainer, "AuthBloc", "lib/auth_bloc.dart"))
	assert.NoError(t, err)
}

func TestRun_PruneStale(t *testing.T) {
	p := testutil.SampleProject(t)
	c, store := newCoordinator(t, p, WithPruneStale(true))
	ctx := context.Background()
	_, err := c.Run(ctx)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(p.UIDir, "lib", "auth_bloc.dart")))
	sum, err := c.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Pruned)

	_, err = store.Entity(ctx, models.EntityID(models.EntityStateContainer, "AuthBloc", "lib/auth_bloc.dart"))
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	st, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9, st.Entities)
	assert.Equal(t, 1, st.RelationshipsByType["uses"], "only the route to service edge is left")
}

func TestRun_EvictsCacheForRemovedFiles(t *testing.T) {
	p := testutil.SampleProject(t)
	c, _ := newCoordinator(t, p)
	ctx := context.Background()
	_, err := c.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, c.uiCache.Len())

	require.NoError(t, os.Remove(filepath.Join(p.UIDir, "lib", "auth_bloc.dart")))
	_, err = c.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/api.dart", "lib/login.dart"}, sortedCopy(c.uiCache.Keys()))
	assert.Equal(t, 1, c.beCache.Len())
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func TestRun_ValidationLinks(t *testing.T) {
	p := &testutil.Project{}
	p.UIDir, p.UI = testutil.TestTree(t, map[string]string{
		"lib/signup.dart": `class SignupPage extends StatelessWidget {
  Widget build(BuildContext context) {
    return TextFormField(validator: (value) {
      if (!value.contains('@')) return 'Invalid email';
      return null;
    });
  }
}
`,
	})
	p.BackendDir, p.Backend = testutil.TestTree(t, map[string]string{
		"app/forms.py": `class SignupIn(BaseModel):
    email: str

    @field_validator("email")
    def email_format(cls, v):
        return v


def validate_email(value):
    return value


def _validate_email_domain(value):
    return value
`,
	})
	c, _ := newCoordinator(t, p)
	ctx := context.Background()

	sum, err := c.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.ValidationLinks)
	assert.Zero(t, sum.ReferentialWarnings)

	page := models.EntityID(models.EntityUIComponent, "SignupPage", "lib/signup.dart")
	used, err := c.RelatedEntities(ctx, page, models.RelUses)
	require.NoError(t, err)
	names := []string{}
	for _, e := range used {
		names = append(names, e.Name)
	}
	assert.ElementsMatch(t, []string{"SignupIn", "validate_email"}, names)
}

func TestRun_Cancelled(t *testing.T) {
	p := testutil.SampleProject(t)
	c, _ := newCoordinator(t, p)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGapReport_RunsWhenNothingRan(t *testing.T) {
	p := testutil.SampleProject(t)
	c, _ := newCoordinator(t, p)
	assert.Nil(t, c.LastSummary())

	rep, err := c.GapReport(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.MethodMismatches, 1)
	assert.Equal(t, "PATCH", rep.MethodMismatches[0].ContractMethod)
	assert.Equal(t, []string{"GET", "POST"}, rep.MethodMismatches[0].BackendMethods)
	require.Len(t, rep.MissingBackendEndpoints, 1)
	assert.Equal(t, "/orders", rep.MissingBackendEndpoints[0].Path)
	assert.NotNil(t, c.LastSummary())
}

func TestSearch_FindsEntityDocuments(t *testing.T) {
	p := testutil.SampleProject(t)
	c, _ := newCoordinator(t, p)
	ctx := context.Background()
	_, err := c.Run(ctx)
	require.NoError(t, err)

	hits, err := c.Search(ctx, "fetch_users", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	ids := map[string]bool{}
	for _, h := range hits {
		ids[h.EntityID] = true
	}
	assert.True(t, ids[models.EntityID(models.EntityServiceFunction, "fetch_users", "app/users.py")])
}

func TestWatch_RerunsOnChange(t *testing.T) {
	p := testutil.SampleProject(t)
	c, store := newCoordinator(t, p, WithWatchDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var runs []*Summary
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Watch(ctx, func(sum *Summary, err error) {
			if err != nil {
				return
			}
			mu.Lock()
			runs = append(runs, sum)
			mu.Unlock()
		})
	}()

	time.Sleep(100 * time.Millisecond)
	testutil.WriteFile(t, p.UIDir, "lib/settings.dart", `class SettingsPage extends StatelessWidget {
  Widget build(BuildContext context) => Text('settings');
}
`)

	id := models.EntityID(models.EntityUIComponent, "SettingsPage", "lib/settings.dart")
	testutil.Eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, err := store.Entity(context.Background(), id)
		return err == nil
	}, "watcher did not analyse the new file")

	mu.Lock()
	assert.NotEmpty(t, runs)
	mu.Unlock()

	cancel()
	<-done
}
