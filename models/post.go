package models

import "time"

// Post is a text entry written by a user.
// Deleting the author deletes the post; deleting the group only clears GroupID.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	AuthorID  uint      `gorm:"index;not null" json:"author_id"`
	Author    *User     `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author,omitempty"`
	GroupID   *uint     `gorm:"index" json:"group_id"`
	Group     *Group    `gorm:"foreignKey:GroupID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"group,omitempty"`
	Image     string    `gorm:"size:255" json:"image"` // relative to the media root, e.g. posts/cat.gif
	CreatedAt time.Time `gorm:"<-:create;index" json:"created_at"`
}

// String returns the first 15 characters of the text.
func (p *Post) String() string {
	r := []rune(p.Text)
	if len(r) > 15 {
		r = r[:15]
	}
	return string(r)
}
