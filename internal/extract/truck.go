package extract

// Truck number patterns. The field is optional; absence is not an error.
var genericTruckPatterns = MustPatterns(
	`(?i)\bTRUCK\s*#\s*([A-Z0-9\-]{1,10})`,
	`(?i)\bVEHICLE\s*#\s*([A-Z0-9\-]{1,10})`,
	`(?i)\bUNIT\s*#\s*([A-Z0-9\-]{1,10})`,
	`(?i)\bTRUCK\s+(\d{1,6})\b`,
)

// ExtractTruckNumber finds the hauling truck identifier, if any.
func ExtractTruckNumber(text string, templatePatterns []Pattern) (value string, confidence float64) {
	defer recoverExtractor("truck_number")

	if v, prio, ok := extractWithPatterns(text, templatePatterns); ok {
		return v, templateConfidence(prio)
	}
	if v, prio, ok := extractWithPatterns(text, genericTruckPatterns); ok {
		return v, templateConfidence(prio) * genericFactor
	}
	return "", 0.0
}
