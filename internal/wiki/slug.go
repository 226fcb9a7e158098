package wiki

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	slugAllowed   = regexp.MustCompile(`^[\p{L}\p{M}\p{N}._\-]+$`)
	repeatedDash  = regexp.MustCompile(`-{2,}`)
	lowerUnicode  = cases.Lower(language.Und)
	errEmptySlug  = errors.New("empty slug")
	errSlugSymbol = errors.New("slug contains invalid characters")
)

// Slugify derives an ID from a title: lower-case, whitespace runs become a
// single dash, diacritics are kept so Vietnamese titles stay readable.
func Slugify(title string) (string, error) {
	s := norm.NFC.String(strings.TrimSpace(title))
	s = lowerUnicode.String(s)
	s = strings.Join(strings.Fields(s), "-")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r):
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			// punctuation and symbols are dropped
		}
	}

	out := repeatedDash.ReplaceAllString(b.String(), "-")
	out = strings.Trim(out, "-.")
	if out == "" {
		return "", errEmptySlug
	}
	if !slugAllowed.MatchString(out) {
		return "", errSlugSymbol
	}
	return out, nil
}

// ValidateID rejects IDs that cannot travel in a URL path segment or fragment.
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return invalid("id", "must not be empty")
	}
	if strings.ContainsAny(id, "/\\?#") || strings.Contains(id, "..") {
		return invalid("id", "contains reserved path characters")
	}
	if strings.IndexFunc(id, unicode.IsSpace) >= 0 {
		return invalid("id", "must not contain whitespace")
	}
	return nil
}

// assignID returns the caller's ID when given, the slug of the title
// otherwise, and a generated ID when the title has no usable characters.
func assignID(given, title, prefix string) (string, error) {
	if given != "" {
		if err := ValidateID(given); err != nil {
			return "", err
		}
		return given, nil
	}
	if slug, err := Slugify(title); err == nil {
		return slug, nil
	}
	return prefix + "-" + uuid.NewString()[:8], nil
}
