package analysis

import "time"

const (
	fallbackStatusNote      = "No assistant message received. Analysis incomplete."
	fallbackReplacementNote = "No documented replacement found"
)

// Synthesize produces one deterministic, schema-valid placeholder row per
// product. It is the engine's availability backstop: whenever the agent call
// or the parse degrades, these rows stand in so no submitted product is ever
// dropped. It never fails and never touches the network.
func Synthesize(products []ProductRecord, mode Mode) ResultSet {
	rs := ResultSet{Results: make([]ResultItem, 0, len(products))}
	if mode == ModeFindReplacement {
		rs.CheckedDate = time.Now().UTC().Format("2006-01-02")
	}
	for _, p := range products {
		rs.Results = append(rs.Results, fallbackRow(p, mode))
	}
	return rs
}

func fallbackRow(p ProductRecord, mode Mode) ResultItem {
	if mode == ModeFindReplacement {
		return ResultItem{
			"obsolete_part_number":     p.ResolvedPartNumber(),
			"manufacturer":             p.ResolvedManufacturer(),
			"recommended_replacement":  nil,
			"replacement_manufacturer": nil,
			"price":                    nil,
			"currency":                 nil,
			"source_type":              "None",
			"source_url":               "",
			"notes":                    fallbackReplacementNote,
			"confidence":               "Low",
		}
	}
	return ResultItem{
		"manufacturer":  p.ResolvedManufacturer(),
		"part_number":   p.ResolvedPartNumber(),
		"ai_status":     "Review",
		"notes_by_ai":   fallbackStatusNote,
		"ai_confidence": "Low",
	}
}
