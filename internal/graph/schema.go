package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zero-day-ai/graphask/internal/types"
)

// PropertySchema describes one property and the value types observed for it.
type PropertySchema struct {
	Name  string   `json:"name" yaml:"name"`
	Types []string `json:"types" yaml:"types"`
}

// LabelSchema describes the properties carried by nodes with a label.
type LabelSchema struct {
	Label      string           `json:"label" yaml:"label"`
	Properties []PropertySchema `json:"properties" yaml:"properties"`
}

// RelationshipTypeSchema describes the properties carried by a relationship type.
type RelationshipTypeSchema struct {
	Type       string           `json:"type" yaml:"type"`
	Properties []PropertySchema `json:"properties" yaml:"properties"`
}

// Pattern is one (:From)-[:Type]->(:To) shape observed in the data.
type Pattern struct {
	From string `json:"from" yaml:"from"`
	Type string `json:"type" yaml:"type"`
	To   string `json:"to" yaml:"to"`
}

// SchemaDescriptor is an immutable description of what a graph contains.
// It is built once per engine and shared read-only across concurrent calls.
type SchemaDescriptor struct {
	Nodes             []LabelSchema            `json:"nodes" yaml:"nodes"`
	RelationshipTypes []RelationshipTypeSchema `json:"relationship_types" yaml:"relationship_types"`
	Patterns          []Pattern                `json:"patterns" yaml:"patterns"`
}

// String renders the schema in the compact form used inside prompts.
func (s *SchemaDescriptor) String() string {
	if s == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("Node properties:\n")
	for _, n := range s.Nodes {
		fmt.Fprintf(&b, "%s {%s}\n", n.Label, renderProperties(n.Properties))
	}

	b.WriteString("Relationship properties:\n")
	for _, r := range s.RelationshipTypes {
		if len(r.Properties) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s {%s}\n", r.Type, renderProperties(r.Properties))
	}

	b.WriteString("The relationships:\n")
	for _, p := range s.Patterns {
		fmt.Fprintf(&b, "(:%s)-[:%s]->(:%s)\n", p.From, p.Type, p.To)
	}

	return strings.TrimRight(b.String(), "\n")
}

func renderProperties(props []PropertySchema) string {
	parts := make([]string, 0, len(props))
	for _, p := range props {
		parts = append(parts, fmt.Sprintf("%s: %s", p.Name, strings.Join(p.Types, "|")))
	}
	return strings.Join(parts, ", ")
}

const (
	nodePropertiesQuery = `CALL db.schema.nodeTypeProperties()
YIELD nodeLabels, propertyName, propertyTypes
RETURN nodeLabels, propertyName, propertyTypes`

	relPropertiesQuery = `CALL db.schema.relTypeProperties()
YIELD relType, propertyName, propertyTypes
RETURN relType, propertyName, propertyTypes`

	patternsQuery = `MATCH (a)-[r]->(b)
WITH DISTINCT head(labels(a)) AS from, type(r) AS rel, head(labels(b)) AS to
WHERE from IS NOT NULL AND to IS NOT NULL
RETURN from, rel, to
LIMIT $limit`
)

// IntrospectOptions bounds schema discovery on large graphs.
type IntrospectOptions struct {
	// MaxPatterns caps the number of distinct relationship patterns returned.
	MaxPatterns int
}

// Introspect builds a SchemaDescriptor from the database's own schema procedures.
func Introspect(ctx context.Context, client GraphClient, opts IntrospectOptions) (*SchemaDescriptor, error) {
	if opts.MaxPatterns <= 0 {
		opts.MaxPatterns = 200
	}

	nodeRes, err := client.ReadQuery(ctx, nodePropertiesQuery, nil, 0)
	if err != nil {
		return nil, types.WrapError(ErrCodeGraphSchemaFailed, "failed to read node properties", err)
	}

	relRes, err := client.ReadQuery(ctx, relPropertiesQuery, nil, 0)
	if err != nil {
		return nil, types.WrapError(ErrCodeGraphSchemaFailed, "failed to read relationship properties", err)
	}

	patRes, err := client.ReadQuery(ctx, patternsQuery, map[string]any{"limit": opts.MaxPatterns}, opts.MaxPatterns)
	if err != nil {
		return nil, types.WrapError(ErrCodeGraphSchemaFailed, "failed to read relationship patterns", err)
	}

	schema := &SchemaDescriptor{}

	labels := make(map[string][]PropertySchema)
	for _, row := range nodeRes.Records {
		labelList := toStrings(row["nodeLabels"])
		name, _ := row["propertyName"].(string)
		for _, label := range labelList {
			if _, ok := labels[label]; !ok {
				labels[label] = nil
			}
			if name != "" {
				labels[label] = append(labels[label], PropertySchema{Name: name, Types: toStrings(row["propertyTypes"])})
			}
		}
	}
	for _, label := range sortedKeys(labels) {
		schema.Nodes = append(schema.Nodes, LabelSchema{Label: label, Properties: labels[label]})
	}

	rels := make(map[string][]PropertySchema)
	for _, row := range relRes.Records {
		relType, _ := row["relType"].(string)
		relType = cleanRelType(relType)
		if relType == "" {
			continue
		}
		if _, ok := rels[relType]; !ok {
			rels[relType] = nil
		}
		if name, _ := row["propertyName"].(string); name != "" {
			rels[relType] = append(rels[relType], PropertySchema{Name: name, Types: toStrings(row["propertyTypes"])})
		}
	}
	for _, relType := range sortedKeys(rels) {
		schema.RelationshipTypes = append(schema.RelationshipTypes, RelationshipTypeSchema{Type: relType, Properties: rels[relType]})
	}

	for _, row := range patRes.Records {
		from, _ := row["from"].(string)
		rel, _ := row["rel"].(string)
		to, _ := row["to"].(string)
		if from == "" || rel == "" || to == "" {
			continue
		}
		schema.Patterns = append(schema.Patterns, Pattern{From: from, Type: rel, To: to})
	}
	sort.Slice(schema.Patterns, func(i, j int) bool {
		a, b := schema.Patterns[i], schema.Patterns[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.To < b.To
	})

	return schema, nil
}

// cleanRelType turns the procedure's ":`KNOWS`" form into "KNOWS".
func cleanRelType(s string) string {
	s = strings.TrimPrefix(s, ":")
	return strings.Trim(s, "`")
}

func toStrings(v any) []string {
	switch val := v.(type) {
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{val}
	default:
		return nil
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
