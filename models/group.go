package models

// Group is a community posts can optionally belong to. Its slug appears in URLs and has no
// update path once created.
type Group struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Slug        string `gorm:"size:100;not null;uniqueIndex" json:"slug"`
	Description string `gorm:"type:text;not null" json:"description"`
}

func (g *Group) String() string {
	return g.Title
}
