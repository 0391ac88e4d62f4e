package match

import "strings"

// synonymTable maps normalized field labels straight to canonical field
// ids. The fast path keeps the most common label spellings deterministic
// and reproducible regardless of index contents or scoring drift.
var synonymTable = map[string]string{
	"dob":            "date_of_birth",
	"date of birth":  "date_of_birth",
	"birth date":     "date_of_birth",
	"fname":          "first_name",
	"first name":     "first_name",
	"given name":     "first_name",
	"lname":          "last_name",
	"last name":      "last_name",
	"surname":        "last_name",
	"family name":    "last_name",
	"email":          "email_address",
	"e-mail":         "email_address",
	"phone":          "mobile_number",
	"mobile":         "mobile_number",
	"cell":           "mobile_number",
	"address":        "residential_address",
	"residence":      "residential_address",
	"nric":           "national_id",
	"id number":      "national_id",
	"passport":       "passport_number",
	"nationality":    "nationality",
	"citizenship":    "nationality",
	"gender":         "gender",
	"sex":            "gender",
	"marital status": "marital_status",
	"income":         "annual_income",
	"occupation":     "occupation",
	"job title":      "occupation",
	"employer":       "employer_name",
	"company":        "employer_name",
	"acc no":         "account_number",
	"account no":     "account_number",
	"account number": "account_number",
}

// synonymDistance is the synthetic near-zero distance reported for fast
// path hits, well below the strong-match threshold.
const synonymDistance = 0.05

// NormalizeLabel reduces a raw field label to the form used for synonym
// lookup: lowercased, underscores as spaces, surrounding space trimmed.
func NormalizeLabel(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	s = strings.ReplaceAll(s, "_", " ")
	return strings.TrimSpace(s)
}

// SynonymLookup resolves a normalized label against the synonym table.
func SynonymLookup(label string) (string, bool) {
	id, ok := synonymTable[NormalizeLabel(label)]
	return id, ok
}

// labelFromQuery extracts the label portion of a structured mapping query
// of the form "Field Label: {label}. Context: ...". Queries that don't
// follow the structure are used as-is.
func labelFromQuery(query string) string {
	const marker = "Field Label:"
	i := strings.Index(query, marker)
	if i < 0 {
		return query
	}
	rest := query[i+len(marker):]
	if j := strings.Index(rest, "."); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest)
}
