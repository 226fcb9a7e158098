package wiki

import (
	"encoding/json"
	"strings"
)

// IconKind tags how an icon value should be rendered.
type IconKind int

const (
	IconNone IconKind = iota
	IconBuiltin
	IconURL
	IconInlineVector
	IconDataURI
)

func (k IconKind) String() string {
	switch k {
	case IconBuiltin:
		return "builtin"
	case IconURL:
		return "url"
	case IconInlineVector:
		return "svg"
	case IconDataURI:
		return "data-uri"
	default:
		return "none"
	}
}

// DefaultIcon is assigned to menus synthesized for top-level pages.
const DefaultIcon = "guide"

// BuiltinIcons lists the icon names the UI ships with.
var BuiltinIcons = []string{"user", "wallet", "star", "guide", "clock"}

// Icon is a menu icon classified once when it enters the system. Value is the
// raw string with surrounding whitespace trimmed, and is what JSON writes back.
type Icon struct {
	Kind  IconKind
	Value string
}

// ParseIcon trims and classifies a raw icon string.
func ParseIcon(raw string) Icon {
	v := strings.TrimSpace(raw)
	switch {
	case v == "":
		return Icon{}
	case strings.HasPrefix(v, "http://"), strings.HasPrefix(v, "https://"):
		return Icon{Kind: IconURL, Value: v}
	case strings.HasPrefix(v, "data:image"):
		return Icon{Kind: IconDataURI, Value: v}
	case strings.HasPrefix(v, "<svg"):
		return Icon{Kind: IconInlineVector, Value: v}
	default:
		return Icon{Kind: IconBuiltin, Value: v}
	}
}

// BuiltinIcon returns the icon for a built-in name.
func BuiltinIcon(name string) Icon {
	return Icon{Kind: IconBuiltin, Value: name}
}

// IsImage reports whether the icon renders through an <img> tag.
func (i Icon) IsImage() bool {
	return i.Kind == IconURL || i.Kind == IconDataURI
}

func (i Icon) String() string {
	return i.Value
}

func (i Icon) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.Value)
}

func (i *Icon) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*i = Icon{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*i = ParseIcon(raw)
	return nil
}
