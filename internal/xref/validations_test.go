package xref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/stackscope/internal/backendextract"
	"github.com/starford/stackscope/internal/uiextract"
)

func check(body string) uiextract.Validator {
	return uiextract.Validator{Body: body, File: "lib/signup.dart", Line: 12, Owner: "SignupPage"}
}

func TestBuildValidations_SharedKeyword(t *testing.T) {
	links := BuildValidations(
		[]uiextract.Validator{check("if (!value.contains('@')) return 'Invalid Email';")},
		[]backendextract.Validator{
			{Name: "validate_email", File: "app/forms.py"},
			{Name: "validate_phone", File: "app/forms.py"},
		},
	)
	require.Len(t, links, 1)
	assert.Equal(t, "validate_email", links[0].Validator.Name)
	assert.Equal(t, "email", links[0].Keyword)
	assert.Equal(t, ValidationSimilarity, links[0].Similarity)
}

func TestBuildValidations_NoSharedKeyword(t *testing.T) {
	links := BuildValidations(
		[]uiextract.Validator{check("return value.isEmpty ? 'required' : null;")},
		[]backendextract.Validator{{Name: "name_not_empty", Owner: "UserCreate"}},
	)
	assert.Empty(t, links)
}

func TestBuildValidations_EveryPairIsKept(t *testing.T) {
	links := BuildValidations(
		[]uiextract.Validator{
			check("if (value.length < 8) return 'too short';"),
			check("if (value == null) return 'Phone required';"),
		},
		[]backendextract.Validator{
			{Name: "check_length"},
			{Name: "phone_required", Owner: "ContactIn"},
		},
	)
	require.Len(t, links, 2)
	assert.Equal(t, "check_length", links[0].Validator.Name)
	assert.Equal(t, "length", links[0].Keyword)
	assert.Equal(t, "phone_required", links[1].Validator.Name)
	assert.Equal(t, "phone", links[1].Keyword)
}

func TestValidationLinkMetadata(t *testing.T) {
	l := ValidationLink{
		Check:      check("return 'required';"),
		Validator:  backendextract.Validator{Name: "required_name", Owner: "UserCreate"},
		Keyword:    "required",
		Similarity: ValidationSimilarity,
	}
	md := l.Metadata()
	assert.Equal(t, "validation", md["via"])
	assert.Equal(t, "required", md["keyword"])
	assert.Equal(t, "UserCreate", md["validator_of"])
	assert.Equal(t, 0.7, md["similarity"])
	assert.Equal(t, 12, md["check_line"])
}
