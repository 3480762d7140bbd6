package enums

import "fmt"

// PostType distinguishes lost-item reports from found-item reports.
type PostType string

const (
	PostTypeLost  PostType = "lost"
	PostTypeFound PostType = "found"
)

var validPostTypes = []PostType{
	PostTypeLost,
	PostTypeFound,
}

// String implements fmt.Stringer.
func (p PostType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PostType.
func (p PostType) IsValid() bool {
	for _, candidate := range validPostTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePostType converts raw input into a PostType.
func ParsePostType(value string) (PostType, error) {
	for _, candidate := range validPostTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid post type %q", value)
}
