package extract

import (
	"regexp"
	"strings"
)

// Manifest number patterns, highest priority first: the WM manifest layout,
// then labeled variants. A label only counts with an explicit separator so
// prose like "no manifest provided" never yields a value.
var genericManifestPatterns = MustPatterns(
	`\b(WM-MAN-\d{4}-\d{6})\b`,
	`(?i)\bMAN\s*#\s*([A-Za-z0-9_\-]{4,20})`,
	`(?i:\bMANIFEST)\s*[:#]\s*([A-Za-z0-9_\-]{4,20})`,
	`(?i:\bMFST)\s*[:#]\s*([A-Za-z0-9_\-]{4,20})`,
)

// Every manifest identifier in the field carries at least one digit; the
// digit rule screens out prose a label pattern can still capture, such as
// "MANIFEST: NONE".
var manifestRules = ValidationRules{
	Pattern:   regexp.MustCompile(`\d`),
	MinLength: 4,
	MaxLength: 20,
}

// ExtractManifestNumber finds the manifest number. Format enforcement is the
// validator's job: a malformed value is passed through so the downstream
// review entry can show what was on the page.
func ExtractManifestNumber(text string, templatePatterns []Pattern) (value string, confidence float64) {
	defer recoverExtractor("manifest_number")

	if v, prio, ok := extractWithPatterns(text, templatePatterns); ok && applyValidation(v, manifestRules) {
		return strings.ToUpper(v), templateConfidence(prio)
	}
	if v, prio, ok := extractWithPatterns(text, genericManifestPatterns); ok && applyValidation(v, manifestRules) {
		return strings.ToUpper(v), templateConfidence(prio) * genericFactor
	}
	return "", 0.0
}
