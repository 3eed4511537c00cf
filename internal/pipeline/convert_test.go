package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/stackscope/internal/backendextract"
	"github.com/starford/stackscope/internal/models"
	"github.com/starford/stackscope/internal/uiextract"
)

func TestUIEntities_ComponentMetadata(t *testing.T) {
	res := uiextract.Extract(`class HomePage extends StatelessWidget {
  Widget build(BuildContext context) {
    client.get('/feed');
    return Text('home');
  }
}
`, "lib/home.dart")

	ents, errs := uiEntities(res)
	require.Empty(t, errs)
	require.Len(t, ents, 1)
	e := ents[0]
	assert.Equal(t, models.EntityUIComponent, e.Type)
	assert.Equal(t, models.LanguageDart, e.Language)
	assert.Equal(t, "stateless", e.Metadata["widget_type"])
	assert.Equal(t, float64(1), e.Metadata["line_start"])
	assert.Equal(t, float64(6), e.Metadata["line_end"])
	assert.Equal(t, []any{"GET /feed"}, e.Metadata["api_endpoints"])
}

func TestBackendEntities_EmptyPathRouteIsKept(t *testing.T) {
	res := &backendextract.Result{
		File:   "app/items.py",
		Routes: []backendextract.Route{{Name: "dynamic", Method: "GET", Path: ""}},
	}
	ents, errs := backendEntities(res)
	require.Empty(t, errs)
	require.Len(t, ents, 1)
	assert.Equal(t, "", ents[0].Metadata["path"])
}

func TestBackendEntities_StackedDecoratorsKeepBothEndpoints(t *testing.T) {
	res, err := backendextract.New().Extract([]byte(`@router.get("/items")
@router.post("/items")
def items():
    return []
`), "app/items.py")
	require.NoError(t, err)

	ents, errs := backendEntities(res)
	require.Empty(t, errs)
	ids := map[string]string{}
	for _, e := range ents {
		if e.Type == models.EntityAPIEndpoint {
			ids[e.Metadata["method"].(string)] = e.ID
		}
	}
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids["GET"], ids["POST"])
	assert.Equal(t, models.EndpointID("items", "POST", "/items", "app/items.py"), ids["POST"])
}

func TestDocument(t *testing.T) {
	e, err := models.NewEntity(models.EntityAPIEndpoint, "list_users", "app/users.py", models.LanguagePython, map[string]any{
		"method":       "GET",
		"path":         "/users",
		"dependencies": []string{"db"},
		"line":         3,
	})
	require.NoError(t, err)

	doc := document(e)
	assert.Equal(t, e.ID, doc.EntityID)
	assert.Equal(t, "list_users", doc.Title)
	assert.Equal(t, "api_endpoint list_users python app/users.py\ndependencies: db\nmethod: GET\npath: /users\n", doc.Body)
}
