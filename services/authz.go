package services

import "github.com/cppla/yatube/models"

// CanEdit reports whether actor may edit post: only its author can.
func CanEdit(post *models.Post, actor *models.User) bool {
	return actor != nil && post != nil && post.AuthorID == actor.ID
}

// CanComment reports whether actor may comment. Any signed-in user may comment on any post.
func CanComment(actor *models.User) bool {
	return actor != nil
}

// CanFollow reports whether actor may start following target.
func CanFollow(actor, target *models.User, alreadyFollowing bool) bool {
	if actor == nil || target == nil {
		return false
	}
	return actor.ID != target.ID && !alreadyFollowing
}
