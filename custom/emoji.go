package custom

import (
	"unicode/utf8"

	"github.com/forPelevin/gomoji"
	"github.com/rivo/uniseg"
)

const variationSelector16 = "\uFE0F"

// StartsWithEmoji reports whether the first character of s is an emoji.
// Such names are never custom commands.
//
// The first grapheme cluster is looked up in the Unicode emoji list, as is
// its emoji presentation form (symbols like © typed without U+FE0F) and
// its base rune (skin tone and other modifier sequences).
func StartsWithEmoji(s string) bool {
	if s == "" {
		return false
	}
	cluster, _, _, _ := uniseg.FirstGraphemeClusterInString(s, -1)
	candidates := []string{cluster, cluster + variationSelector16}
	if r, size := utf8.DecodeRuneInString(cluster); size < len(cluster) {
		base := string(r)
		candidates = append(candidates, base, base+variationSelector16)
	}
	for _, c := range candidates {
		if _, err := gomoji.GetInfo(c); err == nil {
			return true
		}
	}
	return false
}
