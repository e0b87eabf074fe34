package model

// Tag is a category label attached to volunteer actions (M:N via the
// action_tags join table).  Tag names are unique.
type Tag struct {
	ID   uint64
	Name string
}
