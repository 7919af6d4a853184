package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post type values with special handling.
const (
	PostTypeEvents = "Events"
	PostTypeAll    = "All"
)

// Coords is an optional map position for a post.
type Coords struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Post is a bulletin board entry. Events additionally carry capacity and location.
type Post struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	Type          string    `gorm:"size:64;not null;index" json:"type"`
	Title         string    `gorm:"size:255;not null" json:"title"`
	Body          string    `gorm:"type:text;not null" json:"body"`
	Thumbnail     *string   `json:"thumbnail"`
	Location      string    `gorm:"size:255;not null;default:''" json:"location"`
	Capacity      int       `gorm:"not null;default:0" json:"capacity"`
	Lat           *float64  `json:"-"`
	Lng           *float64  `json:"-"`
	FeedbackScore int       `gorm:"not null;default:0" json:"feedbackScore"`
	UserID        string    `gorm:"type:uuid;not null;index" json:"userId"`
	User          *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt     time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	Coords *Coords   `gorm:"-" json:"coords"`
	Tags   []PostTag `gorm:"-" json:"tags"`

	// Computed at query time.
	FirstName        string `gorm:"->;-:migration" json:"firstName,omitempty"`
	LastName         string `gorm:"->;-:migration" json:"lastName,omitempty"`
	LikeCount        int64  `gorm:"->;-:migration" json:"likeCount"`
	UsersCheckedIn   int64  `gorm:"->;-:migration" json:"usersCheckedIn"`
	TotalComments    int64  `gorm:"->;-:migration" json:"totalComments"`
	UserLikeCount    int64  `gorm:"->;-:migration" json:"-"`
	UserCheckinCount int64  `gorm:"->;-:migration" json:"-"`
	UserReportCount  int64  `gorm:"->;-:migration" json:"-"`

	DoesUserLike    bool `gorm:"-" json:"doesUserLike"`
	IsUserCheckedIn bool `gorm:"-" json:"isUserCheckedIn"`
	DidUserReport   bool `gorm:"-" json:"didUserReport"`
}

// BeforeCreate assigns a UUID and flattens Coords into the stored columns.
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.FlattenCoords()
	return nil
}

// BeforeSave keeps the stored columns in sync with Coords.
func (p *Post) BeforeSave(_ *gorm.DB) error {
	p.FlattenCoords()
	return nil
}

// AfterFind rebuilds Coords from the stored columns.
func (p *Post) AfterFind(_ *gorm.DB) error {
	p.loadCoords()
	return nil
}

// FlattenCoords copies Coords into the stored lat/lng columns.
func (p *Post) FlattenCoords() {
	if p.Coords == nil {
		p.Lat, p.Lng = nil, nil
		return
	}
	lat, lng := p.Coords.Lat, p.Coords.Lng
	p.Lat, p.Lng = &lat, &lng
}

func (p *Post) loadCoords() {
	if p.Lat == nil || p.Lng == nil {
		p.Coords = nil
		return
	}
	p.Coords = &Coords{Lat: *p.Lat, Lng: *p.Lng}
}

// DeriveFlags turns the per-requester counts into booleans.
func (p *Post) DeriveFlags() {
	p.DoesUserLike = p.UserLikeCount > 0
	p.IsUserCheckedIn = p.UserCheckinCount > 0
	p.DidUserReport = p.UserReportCount > 0
	p.loadCoords()
	if p.Tags == nil {
		p.Tags = []PostTag{}
	}
}

// IsEvent reports whether the post is a capacity-bounded event.
func (p *Post) IsEvent() bool {
	return p.Type == PostTypeEvents
}
