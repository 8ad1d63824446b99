package tag

import "strings"

// List is an insertion-ordered, de-duplicated collection of tags.
type List struct {
	tags []Tag
	seen map[string]bool
}

// NewList returns an empty list.
func NewList() *List {
	return &List{seen: make(map[string]bool)}
}

// ParseList splits a comma-joined ReviewTags cell into a List.
func ParseList(s string) *List {
	l := NewList()
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		l.Add(Parse(part))
	}
	return l
}

// Add appends t unless an identical tag is already present.
func (l *List) Add(tags ...Tag) {
	for _, t := range tags {
		key := t.String()
		if key == "" || l.seen[key] {
			continue
		}
		l.seen[key] = true
		l.tags = append(l.tags, t)
	}
}

// Has reports whether the exact tag is present.
func (l *List) Has(t Tag) bool {
	return l.seen[t.String()]
}

// HasKind reports whether any tag of the given kind is present.
func (l *List) HasKind(k Kind) bool {
	for _, t := range l.tags {
		if t.Kind == k {
			return true
		}
	}
	return false
}

// SourcesOf returns the source names of every tag of the given kind,
// in insertion order.
func (l *List) SourcesOf(k Kind) []string {
	var out []string
	for _, t := range l.tags {
		if t.Kind == k && t.Source != "" {
			out = append(out, t.Source)
		}
	}
	return out
}

// Tags returns the tags in insertion order.
func (l *List) Tags() []Tag {
	return l.tags
}

// Len returns the number of tags.
func (l *List) Len() int { return len(l.tags) }

// Join renders the storage form: comma-joined, insertion-ordered.
func (l *List) Join() string {
	parts := make([]string, 0, len(l.tags))
	for _, t := range l.tags {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, ", ")
}

// CarrySticky re-appends sticky tags from a previous ReviewTags value that
// are not already present.
func (l *List) CarrySticky(previous string) {
	for _, t := range ParseList(previous).Tags() {
		if t.Sticky() {
			l.Add(t)
		}
	}
}

// Confidence is the per-row match confidence level.
type Confidence string

const (
	ConfidenceNone   Confidence = ""
	ConfidenceLow    Confidence = "LOW"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceHigh   Confidence = "HIGH"
)
