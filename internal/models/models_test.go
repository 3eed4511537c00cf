package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/stackscope/internal/apperr"
)

func TestEntityID_Deterministic(t *testing.T) {
	a := EntityID(EntityUIComponent, "LoginPage", "lib/login.dart")
	b := EntityID(EntityUIComponent, "LoginPage", "lib/login.dart")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, EntityID(EntityStateContainer, "LoginPage", "lib/login.dart"))
	assert.NotEqual(t, a, EntityID(EntityUIComponent, "LoginPage", "lib/other.dart"))
}

func TestNewEntity_MetadataRules(t *testing.T) {
	_, err := NewEntity(EntityUIComponent, "LoginPage", "lib/login.dart", LanguageDart, map[string]any{
		"widget_type": "stateless",
		"line_start":  3,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	e, err := NewEntity(EntityUIComponent, "LoginPage", "lib/login.dart", LanguageDart, map[string]any{
		"widget_type":  "stateless",
		"line_start":   3,
		"line_end":     9,
		"dependencies": []string{"Text"},
	})
	require.NoError(t, err)
	assert.Equal(t, float64(3), e.Metadata["line_start"])
	assert.Equal(t, []any{"Text"}, e.Metadata["dependencies"])
}

func TestNewEntity_UnknownType(t *testing.T) {
	_, err := NewEntity("widget", "X", "x.dart", LanguageDart, nil)
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestNewEntity_EndpointNeedsMethodAndPath(t *testing.T) {
	_, err := NewEntity(EntityAPIEndpoint, "list_users", "app/users.py", LanguagePython, map[string]any{"method": "GET"})
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	_, err = NewEntity(EntityAPIEndpoint, "list_users", "app/users.py", LanguagePython, map[string]any{"method": "GET", "path": "/users"})
	assert.NoError(t, err)

	_, err = NewEntity(EntityAPIEndpoint, "dynamic", "app/users.py", LanguagePython, map[string]any{"method": "GET", "path": ""})
	assert.NoError(t, err)
}

func TestEndpointID_MethodAndPathAreDistinct(t *testing.T) {
	get := EndpointID("items", "GET", "/items", "app/items.py")
	post := EndpointID("items", "POST", "/items", "app/items.py")
	assert.NotEqual(t, get, post)
	assert.NotEqual(t, get, EndpointID("items", "GET", "/items/{id}", "app/items.py"))
	assert.Equal(t, get, EndpointID("items", "get", "/items", "app/items.py"))

	e, err := NewEntity(EntityAPIEndpoint, "items", "app/items.py", LanguagePython, map[string]any{"method": "POST", "path": "/items"})
	require.NoError(t, err)
	assert.Equal(t, post, e.ID)
}

func TestNewRelationship_RejectsSelfEdge(t *testing.T) {
	_, err := NewRelationship("a", "a", RelCalls, nil)
	assert.ErrorIs(t, err, apperr.ErrSelfReference)

	r, err := NewRelationship("a", "b", RelCalls, map[string]any{"confidence": 0.8})
	require.NoError(t, err)
	assert.Equal(t, RelationshipID("a", "b", RelCalls), r.ID)
	assert.NotEqual(t, r.ID, RelationshipID("b", "a", RelCalls))
}

func TestParseTypes(t *testing.T) {
	et, err := ParseEntityType("data_model")
	require.NoError(t, err)
	assert.Equal(t, EntityDataModel, et)

	_, err = ParseRelationshipType("owns")
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestAPIMapping_Confidence(t *testing.T) {
	m := APIMapping{Metadata: map[string]any{"confidence": 0.8}}
	assert.InDelta(t, 0.8, m.Confidence(), 1e-9)
	assert.Zero(t, APIMapping{}.Confidence())
}

func TestCallSiteID(t *testing.T) {
	a := CallSiteID("lib/main.dart", 12)
	assert.Equal(t, a, CallSiteID("lib/main.dart", 12))
	assert.NotEqual(t, a, CallSiteID("lib/main.dart", 13))
	assert.NotEqual(t, a, EntityID(EntityUIComponent, "12", "lib/main.dart"))
}
