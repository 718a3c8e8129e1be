// Package match ranks candidate suppliers against an RFQ. The engine is
// a pure function over its inputs: no I/O, no randomness, same pool and
// RFQ always produce the same ranked order.
package match

import (
	"fmt"
	"sort"
	"strings"

	"rfqbroker/internal/model"
)

const (
	frameworkBaseScore   = 40
	maxProductScore      = 30
	neutralProductScore  = 15
	maxCertScore         = 20
	maxCountryScore      = 10
	productKeywordPoints = 6
	certKeywordPoints    = 7
	certMentionPoints    = 4
)

type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// Match filters the pool to the RFQ's framework and scores each survivor.
// Suppliers on a different framework are excluded before any scoring runs.
// Output is sorted descending by score; ties keep pool order.
func (e *Engine) Match(rfq model.RFQ, pool []model.Supplier, timeline model.Timeline) []model.SupplierMatch {
	prof, known := profiles[rfq.Framework]

	matches := make([]model.SupplierMatch, 0, len(pool))
	for _, s := range pool {
		if s.Framework != rfq.Framework {
			continue
		}
		m := scoreSupplier(rfq, s, prof, known)
		m.Priority = priorityFor(timeline, m.Score)
		matches = append(matches, m)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

func scoreSupplier(rfq model.RFQ, s model.Supplier, prof profile, known bool) model.SupplierMatch {
	reasons := []string{fmt.Sprintf("framework %s compliant (+%d)", rfq.Framework, frameworkBaseScore)}
	score := frameworkBaseScore

	product := productScore(rfq.Requirements, s, prof, &reasons)
	cert := certScore(rfq.Requirements, s, prof, &reasons)
	country := 0
	if known {
		country = prof.country.score(s.Country)
	}
	if country > 0 {
		reasons = append(reasons, fmt.Sprintf("origin %s fits framework logistics (+%d)", s.Country, country))
	}

	score += product + cert + country
	if score > 100 {
		score = 100
	}
	return model.SupplierMatch{Supplier: s, Score: score, Reasons: reasons}
}

// productScore is token overlap between the RFQ's product text and the
// supplier's product list, plus framework keyword bonuses. Monotonic in
// the number of matching keywords, capped at maxProductScore. An RFQ
// with no product text at all scores neutral.
func productScore(req model.Requirements, s model.Supplier, prof profile, reasons *[]string) int {
	text := strings.ToLower(strings.TrimSpace(req.ProductType + " " + req.CustomText))
	if strings.TrimSpace(text) == "" {
		*reasons = append(*reasons, fmt.Sprintf("no product requirements given, neutral relevance (+%d)", neutralProductScore))
		return neutralProductScore
	}

	supplierText := strings.ToLower(strings.Join(s.Products, " "))
	score := 0
	matched := 0
	for _, tok := range tokenize(text) {
		if strings.Contains(supplierText, tok) {
			score += productKeywordPoints
			matched++
		}
	}
	for _, kw := range prof.productKeywords {
		if strings.Contains(text, kw) && strings.Contains(supplierText, kw) {
			score += productKeywordPoints / 2
		}
	}
	if score > maxProductScore {
		score = maxProductScore
	}
	if matched > 0 {
		*reasons = append(*reasons, fmt.Sprintf("%d product term(s) overlap catalog (+%d)", matched, score))
	}
	return score
}

// certScore matches framework certification marks against the supplier's
// certification list, with partial credit when the RFQ's custom text
// itself asks for a certification the supplier holds.
func certScore(req model.Requirements, s model.Supplier, prof profile, reasons *[]string) int {
	certs := strings.ToLower(strings.Join(s.Certifications, " "))
	custom := strings.ToLower(req.CustomText)

	score := 0
	for _, kw := range prof.certKeywords {
		if strings.Contains(certs, kw) {
			score += certKeywordPoints
			*reasons = append(*reasons, fmt.Sprintf("holds %q certification (+%d)", kw, certKeywordPoints))
		}
	}
	if custom != "" {
		for _, c := range s.Certifications {
			if c != "" && strings.Contains(custom, strings.ToLower(c)) {
				score += certMentionPoints
				*reasons = append(*reasons, fmt.Sprintf("requested certification %q on file (+%d)", c, certMentionPoints))
				break
			}
		}
	}
	if score > maxCertScore {
		score = maxCertScore
	}
	return score
}

func priorityFor(timeline model.Timeline, score int) model.Priority {
	if timeline == model.TimelineUrgent {
		return model.PriorityUrgent
	}
	if timeline == model.TimelineOneMonth && score >= 70 {
		return model.PriorityUrgent
	}
	switch {
	case score >= 70:
		return model.PriorityHigh
	case score >= 45 || timeline == model.TimelineOneMonth:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 3 {
			continue // drop stopword-sized noise
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
