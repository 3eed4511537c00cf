// Package models defines the entity graph types shared by the extractors,
// the graph store and the reconciliation reports.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/stackscope/internal/apperr"
)

// EntityType discriminates the kind of code construct an Entity describes.
type EntityType string

const (
	EntityUIComponent     EntityType = "ui_component"
	EntityStateContainer  EntityType = "state_container"
	EntityAPIEndpoint     EntityType = "api_endpoint"
	EntityDataModel       EntityType = "data_model"
	EntityServiceFunction EntityType = "service_function"
)

// EntityTypes lists every known entity type in a stable order.
var EntityTypes = []EntityType{
	EntityUIComponent,
	EntityStateContainer,
	EntityAPIEndpoint,
	EntityDataModel,
	EntityServiceFunction,
}

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	for _, known := range EntityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseEntityType converts s into an EntityType.
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(s)
	if !t.Valid() {
		return "", fmt.Errorf("models: entity type %q: %w", s, apperr.ErrInvalid)
	}
	return t, nil
}

// Source languages.
const (
	LanguageDart   = "dart"
	LanguagePython = "python"
)

// Data model kinds stored under the "model_kind" metadata key.
const (
	ModelKindSchema      = "schema"
	ModelKindPersistence = "persistence"
)

// Entity is one discovered code construct.
type Entity struct {
	ID        string         `json:"id"`
	Type      EntityType     `json:"type"`
	Name      string         `json:"name"`
	FilePath  string         `json:"file_path"`
	Language  string         `json:"language"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("stackscope.entity-graph"))

func deriveID(parts ...string) string {
	return uuid.NewSHA1(idNamespace, []byte(strings.Join(parts, "\x00"))).String()
}

// EntityID returns the deterministic id for (type, name, file path).
func EntityID(t EntityType, name, filePath string) string {
	return deriveID("entity", string(t), name, filePath)
}

// EndpointID returns the id of an api_endpoint entity. A handler stacked
// under several route decorators yields one entity per method and path.
func EndpointID(name, method, path, filePath string) string {
	return deriveID("entity", string(EntityAPIEndpoint), name, filePath, strings.ToUpper(method), path)
}

// metadataRules holds the keys every entity of a given type must carry.
var metadataRules = map[EntityType][]*validation.KeyRules{
	EntityUIComponent: {
		validation.Key("widget_type", validation.Required, validation.In("stateless", "stateful")),
		validation.Key("line_start", validation.Required),
		validation.Key("line_end", validation.Required),
	},
	EntityStateContainer: {
		validation.Key("container_type", validation.Required, validation.In("bloc", "cubit")),
	},
	EntityAPIEndpoint: {
		validation.Key("method", validation.Required),
		// A route whose path is not a literal is kept with an empty path.
		validation.Key("path", validation.NotNil),
	},
	EntityDataModel: {
		validation.Key("model_kind", validation.Required, validation.In(ModelKindSchema, ModelKindPersistence)),
	},
	EntityServiceFunction: {},
}

// NewEntity builds an Entity with a derived id after checking the
// type-specific metadata keys. Metadata is normalised through JSON so the
// value held in memory matches what the store returns.
func NewEntity(t EntityType, name, filePath, language string, metadata map[string]any) (Entity, error) {
	if !t.Valid() {
		return Entity{}, fmt.Errorf("models: entity type %q: %w", t, apperr.ErrInvalid)
	}
	if name == "" || filePath == "" {
		return Entity{}, fmt.Errorf("models: %s entity needs name and file path: %w", t, apperr.ErrInvalid)
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	keys := make([]*validation.KeyRules, 0, len(metadataRules[t]))
	keys = append(keys, metadataRules[t]...)
	if err := validation.Validate(metadata, validation.Map(keys...).AllowExtraKeys()); err != nil {
		return Entity{}, fmt.Errorf("models: %s %q metadata: %v: %w", t, name, err, apperr.ErrInvalid)
	}
	normalized, err := NormalizeMetadata(metadata)
	if err != nil {
		return Entity{}, err
	}
	id := EntityID(t, name, filePath)
	if t == EntityAPIEndpoint {
		id = EndpointID(name, fmt.Sprint(metadata["method"]), fmt.Sprint(metadata["path"]), filePath)
	}
	return Entity{
		ID:       id,
		Type:     t,
		Name:     name,
		FilePath: filePath,
		Language: language,
		Metadata: normalized,
	}, nil
}

// NormalizeMetadata round-trips m through JSON.
func NormalizeMetadata(m map[string]any) (map[string]any, error) {
	if m == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("models: encode metadata: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("models: decode metadata: %w", err)
	}
	return out, nil
}
