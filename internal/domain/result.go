package domain

import "strings"

// Value is a payload flowing into an input port: a single scalar (text, URL or
// data URI) or a list of scalars for multi-edge ports and list producers.
type Value struct {
	Text  string   `json:"text,omitempty"`
	Items []string `json:"items,omitempty"`
}

// TextValue wraps a scalar
func TextValue(s string) Value {
	return Value{Text: s}
}

// ListValue wraps a list
func ListValue(items []string) Value {
	return Value{Items: items}
}

// IsZero reports whether the value carries nothing
func (v Value) IsZero() bool {
	return v.Text == "" && len(v.Items) == 0
}

// String returns the scalar, or the first item of a list
func (v Value) String() string {
	if v.Text != "" {
		return v.Text
	}
	if len(v.Items) > 0 {
		return v.Items[0]
	}
	return ""
}

// Strings returns the value as a list
func (v Value) Strings() []string {
	if len(v.Items) > 0 {
		return v.Items
	}
	if v.Text != "" {
		return []string{v.Text}
	}
	return nil
}

// IsMedia reports whether s looks like a media handle rather than prose
func IsMedia(s string) bool {
	return strings.HasPrefix(s, "data:") || strings.HasPrefix(s, "http")
}

// Result is what a node execution produces. Kind tags the payload so readers
// do not have to guess the shape of Value and List.
type Result struct {
	Kind       ResourceType `json:"kind"`
	Value      string       `json:"value,omitempty"`
	List       []string     `json:"list,omitempty"`
	AudioTrack string       `json:"audioTrack,omitempty"`
}

// TextResult creates a text result
func TextResult(s string) Result {
	return Result{Kind: ResourceText, Value: s}
}

// MediaResult creates an image, video or audio result
func MediaResult(kind ResourceType, handle string) Result {
	return Result{Kind: kind, Value: handle}
}

// ListResult creates a result exposing both a primary value and a list
func ListResult(kind ResourceType, primary string, list []string) Result {
	return Result{Kind: kind, Value: primary, List: list}
}

// PassThrough returns the received value unchanged
func PassThrough(kind ResourceType, v Value) Result {
	return Result{Kind: kind, Value: v.Text, List: v.Items}
}

// IsEmpty reports whether the result carries no payload
func (r Result) IsEmpty() bool {
	return r.Value == "" && len(r.List) == 0
}
