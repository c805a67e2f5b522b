package ir

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SampleUUID deterministically derives an example UUID for a Uuid-typed
// field's doc comment, seeded by a stable identity (e.g. "TypeName.field")
// rather than generated randomly, so repeated runs against the same spec
// still render byte-identical output (testable property 1: determinism).
func SampleUUID(seed string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(seed)).String()
}

// FormatDecimalDefault parses a JSON-encoded default value for a Decimal
// primitive field and renders it as a canonical decimal literal, so a spec
// default like "1.50000" doesn't leak spurious trailing zeros into a
// generated doc comment. The second return value is false if raw isn't a
// decimal-shaped JSON scalar.
func FormatDecimalDefault(raw []byte) (string, bool) {
	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err != nil {
		var asString string
		if err := json.Unmarshal(raw, &asString); err != nil {
			return "", false
		}
		asNumber = json.Number(asString)
	}
	d, err := decimal.NewFromString(string(asNumber))
	if err != nil {
		return "", false
	}
	return d.String(), true
}
