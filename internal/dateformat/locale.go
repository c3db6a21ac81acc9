package dateformat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goodsign/monday"
	"golang.org/x/text/language"
)

const DefaultLocale = monday.LocaleEnUS

// ParseLocale maps a BCP 47 tag ("sv-SE", "de", "en_GB") to a supported
// formatting locale. An empty tag selects DefaultLocale. A tag without a
// region uses the most likely region for the language, then any supported
// region for it.
func ParseLocale(tag string) (monday.Locale, error) {
	if strings.TrimSpace(tag) == "" {
		return DefaultLocale, nil
	}

	t, err := language.Parse(tag)
	if err != nil {
		return "", fmt.Errorf("invalid locale %q: %w", tag, err)
	}

	supported := supportedLocales()
	base, _ := t.Base()
	if region, conf := t.Region(); conf != language.No {
		candidate := monday.Locale(base.String() + "_" + region.String())
		if _, ok := supported[candidate]; ok {
			return candidate, nil
		}
	}

	prefix := base.String() + "_"
	var matches []string
	for l := range supported {
		if strings.HasPrefix(string(l), prefix) {
			matches = append(matches, string(l))
		}
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("unsupported locale %q", tag)
	}
	sort.Strings(matches)
	return monday.Locale(matches[0]), nil
}

// CompileTag is Compile with a locale tag instead of a resolved locale.
func CompileTag(pattern, tag string) (*Pattern, error) {
	locale, err := ParseLocale(tag)
	if err != nil {
		return nil, err
	}
	return Compile(pattern, locale)
}

func supportedLocales() map[monday.Locale]struct{} {
	set := make(map[monday.Locale]struct{})
	for _, l := range monday.ListLocales() {
		set[l] = struct{}{}
	}
	return set
}
