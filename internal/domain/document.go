package domain

import (
	"fmt"
	"time"
)

// IndexDocument is the flattened projection of an Entity held by a search
// backend. ID always equals the source entity's id.
type IndexDocument struct {
	ID       string
	Category Category
	Fields   map[string]any
}

const FieldCreatedAt = "created_at"

// Project flattens an entity into its IndexDocument. Fields carries every
// text field, every filter field and created_at.
func Project(e Entity) IndexDocument {
	var (
		fields  map[string]any
		created time.Time
	)

	switch v := e.(type) {
	case *UserProfile:
		created = v.CreatedAt
		fields = map[string]any{
			"name":       v.Name,
			"headline":   v.Headline,
			"bio":        v.Bio,
			"company":    v.Company,
			"skills":     nonNil(v.Skills),
			"role":       v.Role,
			"department": v.Department,
		}
	case *Group:
		created = v.CreatedAt
		fields = map[string]any{
			"title":       v.Title,
			"description": v.Description,
			"tags":        nonNil(v.Tags),
			"type":        v.Type,
			"privacy":     v.Privacy,
		}
	case *Event:
		created = v.CreatedAt
		fields = map[string]any{
			"title":       v.Title,
			"description": v.Description,
			"location":    v.Location,
			"category":    v.Category,
		}
	case *KnowledgePost:
		created = v.CreatedAt
		fields = map[string]any{
			"title":    v.Title,
			"body":     v.Body,
			"tags":     nonNil(v.Tags),
			"category": v.Category,
			"company":  v.Company,
		}
	default:
		panic(fmt.Sprintf("domain: unhandled entity type %T", e))
	}
	fields[FieldCreatedAt] = created.UTC()

	return IndexDocument{
		ID:       e.EntityID(),
		Category: e.EntityCategory(),
		Fields:   fields,
	}
}

// CreatedAt returns the document's creation time, or the zero time when
// it is missing.
func (d IndexDocument) CreatedAt() time.Time {
	t, _ := d.Fields[FieldCreatedAt].(time.Time)
	return t
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
