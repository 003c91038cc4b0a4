package graph

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zero-day-ai/graphask/internal/types"
)

func schemaHandler(cypher string, params map[string]any) (QueryResult, error) {
	switch {
	case strings.Contains(cypher, "nodeTypeProperties"):
		return QueryResult{Records: []map[string]any{
			{"nodeLabels": []any{"Person"}, "propertyName": "name", "propertyTypes": []any{"String"}},
			{"nodeLabels": []any{"Person"}, "propertyName": "age", "propertyTypes": []any{"Long"}},
			{"nodeLabels": []any{"Restaurant"}, "propertyName": "cuisine", "propertyTypes": []any{"String"}},
			{"nodeLabels": []any{"Tag"}, "propertyName": nil, "propertyTypes": nil},
		}}, nil
	case strings.Contains(cypher, "relTypeProperties"):
		return QueryResult{Records: []map[string]any{
			{"relType": ":`VISITED`", "propertyName": "rating", "propertyTypes": []any{"Long"}},
			{"relType": ":`KNOWS`", "propertyName": nil, "propertyTypes": nil},
		}}, nil
	default:
		return QueryResult{Records: []map[string]any{
			{"from": "Person", "rel": "VISITED", "to": "Restaurant"},
			{"from": "Person", "rel": "KNOWS", "to": "Person"},
		}}, nil
	}
}

func TestIntrospect(t *testing.T) {
	ctx := context.Background()
	mock := NewMockGraphClient()
	require.NoError(t, mock.Connect(ctx))
	mock.SetQueryHandler(schemaHandler)

	schema, err := Introspect(ctx, mock, IntrospectOptions{})
	require.NoError(t, err)

	require.Len(t, schema.Nodes, 3)
	assert.Equal(t, "Person", schema.Nodes[0].Label)
	assert.Len(t, schema.Nodes[0].Properties, 2)
	assert.Equal(t, "Tag", schema.Nodes[2].Label)
	assert.Empty(t, schema.Nodes[2].Properties)

	require.Len(t, schema.RelationshipTypes, 2)
	assert.Equal(t, "KNOWS", schema.RelationshipTypes[0].Type)
	assert.Equal(t, "VISITED", schema.RelationshipTypes[1].Type)

	require.Len(t, schema.Patterns, 2)
	assert.Equal(t, Pattern{From: "Person", Type: "KNOWS", To: "Person"}, schema.Patterns[0])

	rendered := schema.String()
	assert.Contains(t, rendered, "Person {name: String, age: Long}")
	assert.Contains(t, rendered, "VISITED {rating: Long}")
	assert.NotContains(t, rendered, "KNOWS {")
	assert.Contains(t, rendered, "(:Person)-[:VISITED]->(:Restaurant)")
}

func TestIntrospect_PropagatesErrors(t *testing.T) {
	ctx := context.Background()
	mock := NewMockGraphClient()

	_, err := Introspect(ctx, mock, IntrospectOptions{})
	require.Error(t, err)
	assert.Equal(t, ErrCodeGraphSchemaFailed, types.CodeOf(err))
}

func TestSchemaDescriptor_StringNil(t *testing.T) {
	var s *SchemaDescriptor
	assert.Equal(t, "", s.String())
}
