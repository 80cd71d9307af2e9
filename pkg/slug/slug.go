package slug

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxLength keeps slugs readable in URLs
const maxLength = 80

// specialLetters covers letters that do not decompose into a base letter plus a mark
var specialLetters = map[rune]string{
	'ß': "ss", 'æ': "ae", 'Æ': "ae", 'ø': "o", 'Ø': "o",
	'œ': "oe", 'Œ': "oe", 'ł': "l", 'Ł': "l", 'đ': "d", 'Đ': "d",
	'&': " and ",
}

var (
	nonAlnum     = regexp.MustCompile(`[^a-z0-9]+`)
	stripMarks   = runes.Remove(runes.In(unicode.Mn))
	fallbackSlug = "recipe"
)

// GenerateRecipeSlug builds a URL-friendly slug from a recipe title.
// A positive suffix is appended to resolve collisions within a user's collection.
// Example: "Crème Brûlée & Berries", 2 -> "creme-brulee-and-berries-2"
func GenerateRecipeSlug(title string, suffix int) string {
	var mapped strings.Builder
	for _, char := range title {
		if replacement, exists := specialLetters[char]; exists {
			mapped.WriteString(replacement)
		} else {
			mapped.WriteRune(char)
		}
	}

	t := transform.Chain(norm.NFD, stripMarks, norm.NFC)
	ascii, _, err := transform.String(t, mapped.String())
	if err != nil {
		ascii = mapped.String()
	}

	slug := nonAlnum.ReplaceAllString(strings.ToLower(ascii), "-")
	slug = strings.Trim(slug, "-")

	if len(slug) > maxLength {
		slug = strings.TrimRight(slug[:maxLength], "-")
	}
	if slug == "" {
		slug = fallbackSlug
	}

	if suffix > 0 {
		slug = fmt.Sprintf("%s-%d", slug, suffix)
	}

	return slug
}
