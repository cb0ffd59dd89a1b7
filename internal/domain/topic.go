package domain

import "time"

// Section is an ordered list of rationale points under a heading.
type Section struct {
	Title  string   `json:"title" validate:"max=200"`
	Points []string `json:"points" validate:"max=50,dive,max=2000"`
}

// Example is a titled code sample.
type Example struct {
	Title string `json:"title" validate:"max=200"`
	Code  string `json:"code" validate:"max=20000"`
}

// Practices lists best-practice notes with a closing remark.
type Practices struct {
	Title      string   `json:"title" validate:"max=200"`
	Points     []string `json:"points" validate:"max=50,dive,max=2000"`
	Conclusion string   `json:"conclusion" validate:"max=2000"`
}

// TopicDraft is the author-supplied content of a topic.
type TopicDraft struct {
	Title    string    `json:"title" validate:"required,max=200"`
	Path     string    `json:"path" validate:"omitempty,startswith=/,max=200"`
	Intro    string    `json:"intro" validate:"max=5000"`
	Why      Section   `json:"why"`
	Examples []Example `json:"examples" validate:"max=50,dive"`
	Best     Practices `json:"best"`
}

// Topic is one learning article of the catalog.
type Topic struct {
	TopicDraft

	ID        string
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TopicPatch carries the fields of a partial topic update; nil fields are left untouched.
type TopicPatch struct {
	Title    *string    `json:"title"`
	Path     *string    `json:"path"`
	Intro    *string    `json:"intro"`
	Why      *Section   `json:"why"`
	Examples *[]Example `json:"examples"`
	Best     *Practices `json:"best"`
}

// Empty reports whether the patch changes nothing.
func (p TopicPatch) Empty() bool {
	return p.Title == nil && p.Path == nil && p.Intro == nil &&
		p.Why == nil && p.Examples == nil && p.Best == nil
}

// Apply copies the present fields of the patch onto draft.
func (p TopicPatch) Apply(draft *TopicDraft) {
	if p.Title != nil {
		draft.Title = *p.Title
	}
	if p.Path != nil {
		draft.Path = *p.Path
	}
	if p.Intro != nil {
		draft.Intro = *p.Intro
	}
	if p.Why != nil {
		draft.Why = *p.Why
	}
	if p.Examples != nil {
		draft.Examples = *p.Examples
	}
	if p.Best != nil {
		draft.Best = *p.Best
	}
}
