package domain

import (
	"fmt"
	"time"

	"github.com/Devdarshananandhan/campusconnect-sub000/pkg/database"
	"gorm.io/gorm"
)

// UserProfileModel is the GORM model for user_profiles table.
type UserProfileModel struct {
	ID         string               `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name       string               `gorm:"type:varchar(120);not null" json:"name"`
	Headline   string               `gorm:"type:varchar(200)" json:"headline"`
	Bio        string               `gorm:"type:text" json:"bio"`
	Company    string               `gorm:"type:varchar(120)" json:"company"`
	Skills     database.StringArray `gorm:"type:text" json:"skills"`
	Role       string               `gorm:"type:varchar(30);index" json:"role"`
	Department string               `gorm:"type:varchar(120);index" json:"department"`
	AvatarURL  string               `gorm:"type:varchar(500)" json:"avatar_url"`
	CreatedAt  time.Time            `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt       `gorm:"index" json:"deleted_at"`
}

func (UserProfileModel) TableName() string {
	return "user_profiles"
}

// GroupModel is the GORM model for groups table.
type GroupModel struct {
	ID          string               `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title       string               `gorm:"type:varchar(200);not null" json:"title"`
	Description string               `gorm:"type:text" json:"description"`
	Tags        database.StringArray `gorm:"type:text" json:"tags"`
	Type        string               `gorm:"type:varchar(30);index" json:"type"`
	Privacy     string               `gorm:"type:varchar(20);index" json:"privacy"`
	OwnerID     string               `gorm:"type:varchar(36)" json:"owner_id"`
	MemberCount int                  `gorm:"default:0" json:"member_count"`
	CreatedAt   time.Time            `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt       `gorm:"index" json:"deleted_at"`
}

func (GroupModel) TableName() string {
	return "groups"
}

// EventModel is the GORM model for events table.
type EventModel struct {
	ID          string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title       string         `gorm:"type:varchar(200);not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Location    string         `gorm:"type:varchar(200)" json:"location"`
	Category    string         `gorm:"type:varchar(50);index" json:"category"`
	OrganizerID string         `gorm:"type:varchar(36)" json:"organizer_id"`
	StartsAt    time.Time      `json:"starts_at"`
	CreatedAt   time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

func (EventModel) TableName() string {
	return "events"
}

// KnowledgePostModel is the GORM model for knowledge_posts table.
type KnowledgePostModel struct {
	ID        string               `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title     string               `gorm:"type:varchar(200);not null" json:"title"`
	Body      string               `gorm:"type:text" json:"body"`
	Tags      database.StringArray `gorm:"type:text" json:"tags"`
	Category  string               `gorm:"type:varchar(50);index" json:"category"`
	Company   string               `gorm:"type:varchar(120);index" json:"company"`
	AuthorID  string               `gorm:"type:varchar(36)" json:"author_id"`
	Upvotes   int                  `gorm:"default:0" json:"upvotes"`
	CreatedAt time.Time            `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt       `gorm:"index" json:"deleted_at"`
}

func (KnowledgePostModel) TableName() string {
	return "knowledge_posts"
}

// Model is implemented by the four table models.
type Model interface {
	TableName() string
	ToEntity() Entity
	IsDeleted() bool
}

func (m *UserProfileModel) ToEntity() Entity {
	return &UserProfile{
		ID:         m.ID,
		Name:       m.Name,
		Headline:   m.Headline,
		Bio:        m.Bio,
		Company:    m.Company,
		Skills:     []string(m.Skills),
		Role:       m.Role,
		Department: m.Department,
		AvatarURL:  m.AvatarURL,
		CreatedAt:  m.CreatedAt,
	}
}

func (m *GroupModel) ToEntity() Entity {
	return &Group{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Tags:        []string(m.Tags),
		Type:        m.Type,
		Privacy:     m.Privacy,
		OwnerID:     m.OwnerID,
		MemberCount: m.MemberCount,
		CreatedAt:   m.CreatedAt,
	}
}

func (m *EventModel) ToEntity() Entity {
	return &Event{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Location:    m.Location,
		Category:    m.Category,
		OrganizerID: m.OrganizerID,
		StartsAt:    m.StartsAt,
		CreatedAt:   m.CreatedAt,
	}
}

func (m *KnowledgePostModel) ToEntity() Entity {
	return &KnowledgePost{
		ID:        m.ID,
		Title:     m.Title,
		Body:      m.Body,
		Tags:      []string(m.Tags),
		Category:  m.Category,
		Company:   m.Company,
		AuthorID:  m.AuthorID,
		Upvotes:   m.Upvotes,
		CreatedAt: m.CreatedAt,
	}
}

func (m *UserProfileModel) IsDeleted() bool   { return m.DeletedAt.Valid }
func (m *GroupModel) IsDeleted() bool         { return m.DeletedAt.Valid }
func (m *EventModel) IsDeleted() bool         { return m.DeletedAt.Valid }
func (m *KnowledgePostModel) IsDeleted() bool { return m.DeletedAt.Valid }

// NewModel returns an empty model for the category's table.
func NewModel(c Category) (Model, error) {
	switch c {
	case CategoryUsers:
		return &UserProfileModel{}, nil
	case CategoryGroups:
		return &GroupModel{}, nil
	case CategoryEvents:
		return &EventModel{}, nil
	case CategoryKnowledge:
		return &KnowledgePostModel{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
}

// ToModel converts a domain entity to its table model.
func ToModel(e Entity) Model {
	switch v := e.(type) {
	case *UserProfile:
		return &UserProfileModel{
			ID:         v.ID,
			Name:       v.Name,
			Headline:   v.Headline,
			Bio:        v.Bio,
			Company:    v.Company,
			Skills:     database.StringArray(v.Skills),
			Role:       v.Role,
			Department: v.Department,
			AvatarURL:  v.AvatarURL,
			CreatedAt:  v.CreatedAt,
		}
	case *Group:
		return &GroupModel{
			ID:          v.ID,
			Title:       v.Title,
			Description: v.Description,
			Tags:        database.StringArray(v.Tags),
			Type:        v.Type,
			Privacy:     v.Privacy,
			OwnerID:     v.OwnerID,
			MemberCount: v.MemberCount,
			CreatedAt:   v.CreatedAt,
		}
	case *Event:
		return &EventModel{
			ID:          v.ID,
			Title:       v.Title,
			Description: v.Description,
			Location:    v.Location,
			Category:    v.Category,
			OrganizerID: v.OrganizerID,
			StartsAt:    v.StartsAt,
			CreatedAt:   v.CreatedAt,
		}
	case *KnowledgePost:
		return &KnowledgePostModel{
			ID:        v.ID,
			Title:     v.Title,
			Body:      v.Body,
			Tags:      database.StringArray(v.Tags),
			Category:  v.Category,
			Company:   v.Company,
			AuthorID:  v.AuthorID,
			Upvotes:   v.Upvotes,
			CreatedAt: v.CreatedAt,
		}
	default:
		panic(fmt.Sprintf("domain: unhandled entity type %T", e))
	}
}

// Models lists one zero value per table, for migrations.
func Models() []interface{} {
	return []interface{}{
		&UserProfileModel{},
		&GroupModel{},
		&EventModel{},
		&KnowledgePostModel{},
	}
}
