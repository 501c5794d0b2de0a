package mf

// PostType is the content bucket a record files under. It is derived from
// the record's present properties and never stored.
type PostType string

const (
	TypeLikes     PostType = "likes"
	TypeBookmarks PostType = "bookmarks"
	TypeCheckins  PostType = "checkins"
	TypeRSVP      PostType = "rsvp"
	TypePhotos    PostType = "photos"
	TypeArticles  PostType = "articles"
	TypeWatched   PostType = "watched"
	TypeRead      PostType = "read"
	TypeListen    PostType = "listen"
	TypePlay      PostType = "play"
	TypeNotes     PostType = "notes"
)

// classifyRules is evaluated in order; the first matching predicate wins.
// An rsvp only counts when paired with a reply target, and photo is checked
// after the reply-shaped types but before the generic article fallback.
var classifyRules = []struct {
	match func(*Record) bool
	t     PostType
}{
	{func(r *Record) bool { return r.Has("like-of") }, TypeLikes},
	{func(r *Record) bool { return r.Has("bookmark-of") }, TypeBookmarks},
	{func(r *Record) bool {
		v, _ := r.Get("checkin")
		return len(Sequence(v)) > 0
	}, TypeCheckins},
	{func(r *Record) bool { return r.Has("rsvp") && r.Has("in-reply-to") }, TypeRSVP},
	{func(r *Record) bool { return r.Has("photo") }, TypePhotos},
	{func(r *Record) bool { return r.Has("name") }, TypeArticles},
	{func(r *Record) bool { return r.Has("watch-of") }, TypeWatched},
	{func(r *Record) bool { return r.Has("read-of") }, TypeRead},
	{func(r *Record) bool { return r.Has("listen-of") }, TypeListen},
	{func(r *Record) bool { return r.Has("play-of") }, TypePlay},
}

// Classify derives the post type for a record. A nil or empty record has no
// type (not notes); a record with no recognized properties is a note.
func Classify(r *Record) PostType {
	if r.Empty() {
		return ""
	}
	for _, rule := range classifyRules {
		if rule.match(r) {
			return rule.t
		}
	}
	return TypeNotes
}
