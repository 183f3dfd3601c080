package domain

import "time"

// Entity is one of UserProfile, Group, Event or KnowledgePost. The set is
// closed: only types in this package implement it.
type Entity interface {
	EntityID() string
	EntityCategory() Category
	isEntity()
}

// UserProfile is a student, alumni or faculty profile.
type UserProfile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Headline   string    `json:"headline"`
	Bio        string    `json:"bio"`
	Company    string    `json:"company"`
	Skills     []string  `json:"skills"`
	Role       string    `json:"role"`
	Department string    `json:"department"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Group is a club, study group or interest community.
type Group struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Type        string    `json:"type"`
	Privacy     string    `json:"privacy"`
	OwnerID     string    `json:"owner_id"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Event is a scheduled campus event.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Category    string    `json:"category"`
	OrganizerID string    `json:"organizer_id"`
	StartsAt    time.Time `json:"starts_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// KnowledgePost is an interview experience, guide or article.
type KnowledgePost struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags"`
	Category  string    `json:"category"`
	Company   string    `json:"company"`
	AuthorID  string    `json:"author_id"`
	Upvotes   int       `json:"upvotes"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *UserProfile) EntityID() string         { return u.ID }
func (u *UserProfile) EntityCategory() Category { return CategoryUsers }
func (*UserProfile) isEntity()                  {}

func (g *Group) EntityID() string         { return g.ID }
func (g *Group) EntityCategory() Category { return CategoryGroups }
func (*Group) isEntity()                  {}

func (e *Event) EntityID() string         { return e.ID }
func (e *Event) EntityCategory() Category { return CategoryEvents }
func (*Event) isEntity()                  {}

func (p *KnowledgePost) EntityID() string         { return p.ID }
func (p *KnowledgePost) EntityCategory() Category { return CategoryKnowledge }
func (*KnowledgePost) isEntity()                  {}
