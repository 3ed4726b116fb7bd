package models

import "time"

// Comment is a reply to a post. Comments have no edit path.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index;not null" json:"post_id"`
	Post      *Post     `gorm:"foreignKey:PostID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	AuthorID  uint      `gorm:"index;not null" json:"author_id"`
	Author    *User     `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author,omitempty"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"<-:create;index" json:"created_at"`
}

// String returns the first 15 characters of the text.
func (c *Comment) String() string {
	r := []rune(c.Text)
	if len(r) > 15 {
		r = r[:15]
	}
	return string(r)
}
