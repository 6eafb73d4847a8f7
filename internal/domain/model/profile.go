package model

// Profile is a viewer's preference snapshot, built per request.
// The zero value is usable and behaves like the anonymous profile.
type Profile struct {
	ViewerID      string
	Categories    map[string]struct{}
	Subcategories map[string]struct{}
	Seen          map[string]struct{}
	Liked         map[string]struct{}
}

// AnonymousProfile returns the empty profile used when no viewer is known
// or the viewer's history could not be loaded.
func AnonymousProfile() Profile {
	return Profile{
		Categories:    map[string]struct{}{},
		Subcategories: map[string]struct{}{},
		Seen:          map[string]struct{}{},
		Liked:         map[string]struct{}{},
	}
}

// NewProfile builds a profile for viewerID from plain id lists.
func NewProfile(viewerID string, categories, seen, liked []string) Profile {
	p := AnonymousProfile()
	p.ViewerID = viewerID
	p.AddCategories(categories...)
	p.AddSeen(seen...)
	p.AddLiked(liked...)
	return p
}

func addAll(set *map[string]struct{}, ids []string) {
	if *set == nil {
		*set = make(map[string]struct{}, len(ids))
	}
	for _, id := range ids {
		if id != "" {
			(*set)[id] = struct{}{}
		}
	}
}

// AddCategories records category ids. Empty ids are ignored.
func (p *Profile) AddCategories(ids ...string) { addAll(&p.Categories, ids) }

// AddSubcategories records subcategory ids. Empty ids are ignored.
func (p *Profile) AddSubcategories(ids ...string) { addAll(&p.Subcategories, ids) }

// AddSeen marks ids as already seen.
func (p *Profile) AddSeen(ids ...string) { addAll(&p.Seen, ids) }

// AddLiked marks ids as liked.
func (p *Profile) AddLiked(ids ...string) { addAll(&p.Liked, ids) }

func (p Profile) HasCategory(id string) bool {
	if id == "" {
		return false
	}
	_, ok := p.Categories[id]
	return ok
}

func (p Profile) HasSubcategory(id string) bool {
	if id == "" {
		return false
	}
	_, ok := p.Subcategories[id]
	return ok
}

func (p Profile) HasSeen(id string) bool {
	_, ok := p.Seen[id]
	return ok
}

func (p Profile) HasLiked(id string) bool {
	_, ok := p.Liked[id]
	return ok
}

// Anonymous reports whether the profile has no viewer.
func (p Profile) Anonymous() bool { return p.ViewerID == "" }

// HasPreferences reports whether any category or subcategory preference is known.
func (p Profile) HasPreferences() bool { return len(p.Categories)+len(p.Subcategories) > 0 }
