package dateformat

import (
	"strings"
	"time"

	"github.com/goodsign/monday"
)

// weekRule numbers the weeks of a year or month: weeks start on firstDay and
// week 1 is the first week holding at least minDays days of the period.
type weekRule struct {
	firstDay time.Weekday
	minDays  int
}

// Regional week data, as published in the CLDR supplemental weekData.
var (
	sundayRegions   = regionSet("AG AS BD BR BS BT BW BZ CA CN CO DM DO ET GT GU HK HN ID IL IN JM JP KE KH KR LA MH MM MO MT MX MZ NI NP PA PE PH PK PR PT PY SA SG SV TH TT TW UM US VE VI WS YE ZA ZW")
	saturdayRegions = regionSet("AE AF BH DJ DZ EG IQ IR JO KW LY OM QA SD SY")
	fourDayRegions  = regionSet("AD AN AT AX BE BG CH CZ DE DK EE ES FI FJ FO FR GB GF GG GI GP GR HU IE IM IS IT JE LI LT LU MC MQ NL NO PL PT RE RU SE SJ SK SM VA")
)

func regionSet(list string) map[string]bool {
	set := make(map[string]bool)
	for _, r := range strings.Fields(list) {
		set[r] = true
	}
	return set
}

func weekRuleFor(locale monday.Locale) weekRule {
	region := string(locale)
	if i := strings.LastIndexByte(region, '_'); i >= 0 {
		region = region[i+1:]
	}
	rule := weekRule{firstDay: time.Monday, minDays: 1}
	switch {
	case sundayRegions[region]:
		rule.firstDay = time.Sunday
	case saturdayRegions[region]:
		rule.firstDay = time.Saturday
	}
	if fourDayRegions[region] {
		rule.minDays = 4
	}
	return rule
}

// offset is the number of days between the start of the week holding d and d.
func (r weekRule) offset(d time.Time) int {
	return (int(d.Weekday()) - int(r.firstDay) + 7) % 7
}

func (r weekRule) weekOne(year int) time.Time {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	off := r.offset(jan1)
	start := jan1.AddDate(0, 0, -off)
	if 7-off < r.minDays {
		start = start.AddDate(0, 0, 7)
	}
	return start
}

// yearWeek returns the week based year of t and its week number.
func (r weekRule) yearWeek(t time.Time) (int, int) {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	year := t.Year()
	start := r.weekOne(year)
	if day.Before(start) {
		year--
		start = r.weekOne(year)
	} else if next := r.weekOne(year + 1); !day.Before(next) {
		year++
		start = next
	}
	days := int(day.Sub(start) / (24 * time.Hour))
	return year, days/7 + 1
}

// weekOfMonth is 0 for days before the first full week of the month.
func (r weekRule) weekOfMonth(t time.Time) int {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	off := r.offset(first)
	w := (t.Day()+off-1)/7 + 1
	if 7-off < r.minDays {
		w--
	}
	return w
}
