package generator

import (
	"fmt"
	"strconv"
)

// zipRange is an inclusive range of 3-digit ZIP prefixes.
type zipRange struct {
	low, high int
}

// stateZips maps US state abbreviations to the ZIP prefixes assigned to them.
var stateZips = map[string][]zipRange{
	"AL": {{350, 369}}, "AK": {{995, 999}}, "AZ": {{850, 865}}, "AR": {{716, 729}},
	"CA": {{900, 961}}, "CO": {{800, 816}}, "CT": {{60, 69}}, "DE": {{197, 199}},
	"FL": {{320, 349}}, "GA": {{300, 319}}, "HI": {{967, 968}}, "ID": {{832, 838}},
	"IL": {{600, 629}}, "IN": {{460, 479}}, "IA": {{500, 528}}, "KS": {{660, 679}},
	"KY": {{400, 427}}, "LA": {{700, 714}}, "ME": {{39, 49}}, "MD": {{206, 219}},
	"MA": {{10, 27}}, "MI": {{480, 499}}, "MN": {{550, 567}}, "MS": {{386, 397}},
	"MO": {{630, 658}}, "MT": {{590, 599}}, "NE": {{680, 693}}, "NV": {{889, 898}},
	"NH": {{30, 38}}, "NJ": {{70, 89}}, "NM": {{870, 884}}, "NY": {{100, 149}},
	"NC": {{270, 289}}, "ND": {{580, 588}}, "OH": {{430, 458}}, "OK": {{730, 749}},
	"OR": {{970, 979}}, "PA": {{150, 196}}, "RI": {{28, 29}}, "SC": {{290, 299}},
	"SD": {{570, 577}}, "TN": {{370, 385}}, "TX": {{750, 799}, {885, 885}}, "UT": {{840, 847}},
	"VT": {{50, 59}}, "VA": {{220, 246}}, "WA": {{980, 994}}, "WV": {{247, 268}},
	"WI": {{530, 549}}, "WY": {{820, 831}},
}

// stateAbbrs is stateZips' key set in a fixed order so seeded draws are reproducible.
var stateAbbrs = []string{
	"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DE", "FL", "GA", "HI", "ID", "IL", "IN", "IA", "KS", "KY",
	"LA", "ME", "MD", "MA", "MI", "MN", "MS", "MO", "MT", "NE", "NV", "NH", "NJ", "NM", "NY", "NC", "ND",
	"OH", "OK", "OR", "PA", "RI", "SC", "SD", "TN", "TX", "UT", "VT", "VA", "WA", "WV", "WI", "WY",
}

// PostalCodeBelongsTo reports whether a 5-digit ZIP code lies in one of the state's prefix ranges.
func PostalCodeBelongsTo(state, code string) bool {
	ranges, ok := stateZips[state]
	if !ok || len(code) != 5 {
		return false
	}
	n, err := strconv.Atoi(code)
	if err != nil || n < 0 {
		return false
	}
	prefix := n / 100
	for _, r := range ranges {
		if prefix >= r.low && prefix <= r.high {
			return true
		}
	}
	return false
}

// postalCodeIn draws a ZIP code inside the state's ranges.
func (g *Generator) postalCodeIn(state string) string {
	ranges := stateZips[state]
	r := ranges[g.faker.IntRange(0, len(ranges)-1)]
	prefix := g.faker.IntRange(r.low, r.high)
	return fmt.Sprintf("%03d%02d", prefix, g.faker.IntRange(0, 99))
}
