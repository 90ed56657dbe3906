package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/MotorMindAI/motormind-mvp/engine/domain"
	"github.com/MotorMindAI/motormind-mvp/engine/normalize"
)

// Heuristic extraction: a degraded-mode pass over the question that picks up
// the obvious signals with regexes and table lookups. It covers far less than
// the model path but keeps simple queries working during an outage.

var (
	maxPriceRe   = regexp.MustCompile(`(?i)(?:under|below|cheaper than|up to|до|не дороже|дешевле)\s+(\d[\d\s]*(?:[.,]\d+)?)\s*(million|млн|миллион\w*)?`)
	minPriceRe   = regexp.MustCompile(`(?i)(?:over|above|more than|от|дороже)\s+(\d[\d\s]*(?:[.,]\d+)?)\s*(million|млн|миллион\w*)`)
	maxMileageRe = regexp.MustCompile(`(?i)(?:mileage\s+(?:under|below|up to)|пробег(?:ом)?\s+(?:до|меньше|не более))\s+(\d[\d\s]*)\s*(тыс\w*|thousand|k\b)?`)
	yearRe       = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)
	newestRe     = regexp.MustCompile(`(?i)\b(newest|latest|самы[ий] новы[ий]|посвежее|поновее)\b`)
	oldestRe     = regexp.MustCompile(`(?i)\b(oldest|самы[ий] стары[ий]|постарше)\b`)
)

// heuristicMakes maps folded make mentions to canonical make names.
var heuristicMakes = map[string]string{
	"toyota":        "Toyota",
	"тоиота":        "Toyota",
	"lexus":         "Lexus",
	"лексус":        "Lexus",
	"kia":           "Kia",
	"киа":           "Kia",
	"hyundai":       "Hyundai",
	"хендаи":        "Hyundai",
	"хундаи":        "Hyundai",
	"bmw":           "BMW",
	"бмв":           "BMW",
	"mercedes benz": "Mercedes-Benz",
	"mercedes":      "Mercedes-Benz",
	"мерседес":      "Mercedes-Benz",
	"audi":          "Audi",
	"ауди":          "Audi",
	"volkswagen":    "Volkswagen",
	"vw":            "Volkswagen",
	"фольксваген":   "Volkswagen",
	"nissan":        "Nissan",
	"ниссан":        "Nissan",
	"honda":         "Honda",
	"хонда":         "Honda",
	"mazda":         "Mazda",
	"мазда":         "Mazda",
	"mitsubishi":    "Mitsubishi",
	"мицубиси":      "Mitsubishi",
	"chevrolet":     "Chevrolet",
	"шевроле":       "Chevrolet",
	"ford":          "Ford",
	"форд":          "Ford",
	"subaru":        "Subaru",
	"субару":        "Subaru",
	"lada":          "Lada",
	"лада":          "Lada",
}

// heuristicModels lists known models per canonical make, used to refine a
// make hit into "Make Model". Multi-word models come first so "Land Cruiser
// Prado" wins over "Land Cruiser".
var heuristicModels = map[string][]string{
	"Toyota":        {"Land Cruiser Prado", "Land Cruiser", "Highlander", "Corolla", "Camry", "RAV4", "Prius"},
	"Lexus":         {"RX", "ES", "NX", "LX", "GX", "IS"},
	"Kia":           {"Sportage", "Sorento", "Cerato", "Optima", "Rio", "K5"},
	"Hyundai":       {"Santa Fe", "Palisade", "Elantra", "Sonata", "Tucson", "Accent", "Creta"},
	"BMW":           {"X5", "X6", "X3", "X7"},
	"Mercedes-Benz": {"E-Class", "C-Class", "S-Class", "GLE", "GLC", "GLS"},
	"Audi":          {"Q7", "Q5", "A6", "A4", "A8"},
	"Volkswagen":    {"Tiguan", "Passat", "Touareg", "Polo", "Jetta", "Golf"},
	"Nissan":        {"X-Trail", "Qashqai", "Patrol", "Almera", "Murano"},
	"Honda":         {"CR-V", "Accord", "Civic", "Pilot"},
	"Mazda":         {"CX-5", "CX-9", "Mazda6", "Mazda3"},
	"Mitsubishi":    {"Outlander", "Pajero", "ASX", "Lancer"},
	"Chevrolet":     {"Cobalt", "Malibu", "Tracker", "Onix", "Nexia"},
	"Ford":          {"Explorer", "Focus", "Mondeo", "Kuga"},
	"Subaru":        {"Outback", "Forester", "XV", "Legacy"},
	"Lada":          {"Granta", "Vesta", "Niva", "Largus"},
}

// uniqueModels maps a folded standalone model mention to its full name, for
// questions that name a model without the make ("a camry under 10 million").
var uniqueModels = map[string]string{
	"camry":     "Toyota Camry",
	"corolla":   "Toyota Corolla",
	"камри":     "Toyota Camry",
	"prado":     "Toyota Land Cruiser Prado",
	"прадо":     "Toyota Land Cruiser Prado",
	"sportage":  "Kia Sportage",
	"sorento":   "Kia Sorento",
	"tucson":    "Hyundai Tucson",
	"elantra":   "Hyundai Elantra",
	"sonata":    "Hyundai Sonata",
	"tiguan":    "Volkswagen Tiguan",
	"qashqai":   "Nissan Qashqai",
	"outlander": "Mitsubishi Outlander",
	"pajero":    "Mitsubishi Pajero",
	"паджеро":   "Mitsubishi Pajero",
}

// heuristic runs the degraded-mode extraction. It never fails: a question it
// cannot parse just yields an empty FilterSet.
func (e *Extractor) heuristic(question string) domain.FilterSet {
	var f domain.FilterSet
	folded := normalize.Fold(question)

	f.Model = findModel(folded)

	if m := maxPriceRe.FindStringSubmatch(question); m != nil {
		if v, ok := parseAmount(m[1], m[2]); ok {
			f.MaxPrice = &v
		}
	}
	if m := minPriceRe.FindStringSubmatch(question); m != nil {
		if v, ok := parseAmount(m[1], m[2]); ok {
			f.MinPrice = &v
		}
	}
	if m := maxMileageRe.FindStringSubmatch(question); m != nil {
		if v, ok := parseMileage(m[1], m[2]); ok {
			f.MaxMileage = &v
		}
	}

	switch {
	case newestRe.MatchString(question):
		f.YearPref = domain.YearNewest
	case oldestRe.MatchString(question):
		f.YearPref = domain.YearOldest
	default:
		if m := yearRe.FindStringSubmatch(question); m != nil {
			y, _ := strconv.Atoi(m[1])
			if y >= 1980 && y <= 2030 {
				f.Year = y
			}
		}
	}

	words := strings.Fields(folded)
	f.Color = scanToken(e.table, words, normalize.Color)
	f.City = scanToken(e.table, words, normalize.City)

	return domain.SanitizeRanges(f)
}

// findModel looks for a make mention and refines it with a known model.
// Longest make needle wins; a standalone unique model is the fallback.
func findModel(folded string) string {
	var bestNeedle, bestMake string
	for needle, mk := range heuristicMakes {
		if len(needle) > len(bestNeedle) && containsWord(folded, needle) {
			bestNeedle, bestMake = needle, mk
		}
	}
	if bestMake != "" {
		for _, model := range heuristicModels[bestMake] {
			if containsWord(folded, normalize.Fold(model)) {
				return bestMake + " " + model
			}
		}
		return bestMake
	}

	var best string
	var bestLen int
	for needle, full := range uniqueModels {
		if len(needle) > bestLen && containsWord(folded, needle) {
			best, bestLen = full, len(needle)
		}
	}
	return best
}

// containsWord reports whether needle appears in hay on word boundaries.
func containsWord(hay, needle string) bool {
	for start := 0; ; {
		idx := strings.Index(hay[start:], needle)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(needle)
		leftOK := idx == 0 || hay[idx-1] == ' '
		rightOK := end == len(hay) || hay[end] == ' '
		if leftOK && rightOK {
			return true
		}
		start = idx + 1
	}
}

// scanToken probes bigrams then unigrams of the folded question against the
// normalization table and keeps the first canonical hit.
func scanToken(table *normalize.Table, words []string, cat normalize.Category) domain.Token {
	for i := 0; i+1 < len(words); i++ {
		if tok := table.Canonicalize(words[i]+" "+words[i+1], cat); tok.Canonical {
			return tok
		}
	}
	for _, w := range words {
		if tok := table.Canonicalize(w, cat); tok.Canonical {
			return tok
		}
	}
	return domain.Token{}
}

// parseAmount parses a price figure, applying the million multiplier when the
// unit says so. Bare numbers that look like years or are too small to be a
// tenge price are rejected.
func parseAmount(num, unit string) (int, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.ReplaceAll(strings.TrimSpace(num), " ", ""), ",", "."), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	if unit != "" {
		return int(v * 1_000_000), true
	}
	if v >= 1900 && v <= 2100 {
		return 0, false
	}
	if v < 100_000 {
		return 0, false
	}
	return int(v), true
}

func parseMileage(num, unit string) (int, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(num), " ", ""), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	if unit != "" {
		return int(v * 1000), true
	}
	return int(v), true
}
