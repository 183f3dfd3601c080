package cache

import "github.com/Devdarshananandhan/campusconnect-sub000/internal/domain"

// Entry is the serializable form of a SearchResult. Entities are kept in
// typed slices so they decode back into their concrete variants.
type Entry struct {
	Categories []domain.Category       `json:"categories"`
	Users      []*domain.UserProfile   `json:"users,omitempty"`
	Groups     []*domain.Group         `json:"groups,omitempty"`
	Events     []*domain.Event         `json:"events,omitempty"`
	Posts      []*domain.KnowledgePost `json:"posts,omitempty"`
	Total      int                     `json:"total"`
	Mode       domain.Mode             `json:"mode"`
}

// NewEntry flattens r.
func NewEntry(r *domain.SearchResult) *Entry {
	e := &Entry{Total: r.Total, Mode: r.Mode}
	for _, cat := range domain.Categories {
		entities, ok := r.PerCategory[cat]
		if !ok {
			continue
		}
		e.Categories = append(e.Categories, cat)
		for _, ent := range entities {
			switch v := ent.(type) {
			case *domain.UserProfile:
				e.Users = append(e.Users, v)
			case *domain.Group:
				e.Groups = append(e.Groups, v)
			case *domain.Event:
				e.Events = append(e.Events, v)
			case *domain.KnowledgePost:
				e.Posts = append(e.Posts, v)
			}
		}
	}
	return e
}

// Result rebuilds the SearchResult. Every recorded category is present,
// empty or not.
func (e *Entry) Result() *domain.SearchResult {
	r := &domain.SearchResult{
		PerCategory: make(map[domain.Category][]domain.Entity, len(e.Categories)),
		Total:       e.Total,
		Mode:        e.Mode,
	}
	for _, cat := range e.Categories {
		out := []domain.Entity{}
		switch cat {
		case domain.CategoryUsers:
			for _, v := range e.Users {
				out = append(out, v)
			}
		case domain.CategoryGroups:
			for _, v := range e.Groups {
				out = append(out, v)
			}
		case domain.CategoryEvents:
			for _, v := range e.Events {
				out = append(out, v)
			}
		case domain.CategoryKnowledge:
			for _, v := range e.Posts {
				out = append(out, v)
			}
		}
		r.PerCategory[cat] = out
	}
	return r
}
