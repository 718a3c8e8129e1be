package match

import "rfqbroker/internal/model"

// countryRule scores logistics fit for one framework. Exact rules give
// full credit or nothing; tiered rules give partial credit by preferred
// origin.
type countryRule struct {
	exact    string   // non-empty: supplier country must equal this
	tiers    []string // ordered preference groups, comma-free country codes
	tierPts  []int    // score per tier position, len == len(tiers)
	fallback int      // score for countries outside all tiers
}

func (r countryRule) score(country string) int {
	if r.exact != "" {
		if country == r.exact {
			return maxCountryScore
		}
		return 0
	}
	for i, c := range r.tiers {
		if country == c {
			return r.tierPts[i]
		}
	}
	return r.fallback
}

// profile holds the per-framework matching knobs: keyword families for
// product relevance bonuses, certification marks, and the country rule.
type profile struct {
	productKeywords []string
	certKeywords    []string
	country         countryRule
}

var profiles = map[model.Framework]profile{
	model.FrameworkBuyDomestic: {
		productKeywords: []string{"steel", "fastener", "bolt", "plate", "alloy", "pipe"},
		certKeywords:    []string{"melted and poured", "mill certificate", "astm", "domestic"},
		// Domestic-manufacturing procurement requires exact origin; no
		// partial credit for neighbors.
		country: countryRule{exact: "US"},
	},
	model.FrameworkCompostablePack: {
		productKeywords: []string{"compostable", "packaging", "pla", "bagasse", "fiber", "film"},
		certKeywords:    []string{"bpi", "ok compost", "en 13432", "astm d6400", "tuv"},
		country: countryRule{
			tiers:    []string{"US", "CA", "MX"},
			tierPts:  []int{10, 7, 7},
			fallback: 3,
		},
	},
	model.FrameworkTraceableOrigin: {
		productKeywords: []string{"cotton", "textile", "apparel", "yarn", "fabric"},
		certKeywords:    []string{"traceability", "chain of custody", "origin verified", "isotope", "oritain"},
		country: countryRule{
			tiers:    []string{"US", "IN", "AU", "BR"},
			tierPts:  []int{10, 8, 8, 6},
			fallback: 2,
		},
	},
}
