// Package mint implements stage D: converting arbitrary spec identifiers
// into valid, collision-free Rust identifiers (spec section 4.D).
//
// Case conversion is delegated to github.com/iancoleman/strcase rather than
// hand-rolled, the same way the teacher delegates object-merging to
// github.com/imdario/mergo instead of writing its own allOf walker from
// scratch for that one piece.
package mint

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/iancoleman/strcase"

	"github.com/kittycad/openapitor/internal/errs"
)

// Case selects the target case family for a mint call (spec section 4.D
// rule 3).
type Case int

const (
	// CasePascal is used for type names.
	CasePascal Case = iota
	// CaseSnake is used for field and method names.
	CaseSnake
	// CaseScreamingSnake is used for constant names (e.g. enum variant
	// wire constants that also need a Rust-side const).
	CaseScreamingSnake
)

// rustReservedWords is the set of identifiers that would be a syntax error
// if emitted verbatim (spec section 4.D rule 4).
var rustReservedWords = map[string]bool{
	"as": true, "break": true, "const": true, "continue": true, "crate": true,
	"else": true, "enum": true, "extern": true, "false": true, "fn": true,
	"for": true, "if": true, "impl": true, "in": true, "let": true, "loop": true,
	"match": true, "mod": true, "move": true, "mut": true, "pub": true, "ref": true,
	"return": true, "self": true, "Self": true, "static": true, "struct": true,
	"super": true, "trait": true, "true": true, "type": true, "unsafe": true,
	"use": true, "where": true, "while": true, "async": true, "await": true,
	"dyn": true, "abstract": true, "become": true, "box": true, "do": true,
	"final": true, "macro": true, "override": true, "priv": true, "typeof": true,
	"unsized": true, "virtual": true, "yield": true, "try": true,
}

// Scope tracks identifiers already minted within one collision domain
// (spec section 4.D rule 5): the global type table, one struct's fields,
// one enum's variants, or one tag group's methods.
type Scope struct {
	used map[string]bool
}

// NewScope returns an empty collision scope.
func NewScope() *Scope {
	return &Scope{used: make(map[string]bool)}
}

// Mint converts raw into a valid identifier of the requested case,
// disambiguating it against everything already minted in scope. It
// returns the minted identifier and whether it differs from what a
// plain case-conversion of raw would have produced verbatim (i.e.
// whether the original name must be preserved for serialization
// fidelity, spec section 4.D rule 5 / testable property 7).
func (s *Scope) Mint(raw string, c Case, placeholder string) (string, bool, error) {
	tokens := tokenize(raw)
	base := applyCase(tokens, c)

	if base == "" || startsWithDigit(base) || isReservedWord(base) {
		base = placeholder + base
	}

	ident := base
	disambiguated := false
	for i := 2; s.used[ident]; i++ {
		ident = base + "_" + strconv.Itoa(i)
		disambiguated = true
		if i > 10000 {
			return "", false, errs.New(errs.KindNameMint, errs.StageMint, "",
				"could not produce a unique identifier for %q after %d attempts", raw, i)
		}
	}

	s.used[ident] = true
	return ident, disambiguated || ident != rawCaseForComparison(raw, c), nil
}

// MintType is a convenience wrapper for type names (CasePascal, "Type").
func (s *Scope) MintType(raw string) (string, bool, error) {
	return s.Mint(raw, CasePascal, "Type")
}

// MintField is a convenience wrapper for field/method names (CaseSnake,
// "field_"/"n" depending on whether raw started with a digit).
func (s *Scope) MintField(raw string) (string, bool, error) {
	placeholder := "field_"
	if startsWithDigit(strings.TrimSpace(raw)) {
		placeholder = "n"
	}
	return s.Mint(raw, CaseSnake, placeholder)
}

// MintMethod mints an operation method name (CaseSnake, "op_").
func (s *Scope) MintMethod(raw string) (string, bool, error) {
	return s.Mint(raw, CaseSnake, "op_")
}

// MintVariant mints an enum/union variant name (CasePascal, "Variant").
func (s *Scope) MintVariant(raw string) (string, bool, error) {
	return s.Mint(raw, CasePascal, "Variant")
}

// tokenize splits raw into word tokens using Unicode case transitions and
// any existing separators (spec section 4.D rule 1-2): strip non-word runs
// to a single separator, then split on separators and camel/Pascal
// boundaries.
func tokenize(raw string) []string {
	// Collapse runs of non-word characters to a single underscore first,
	// matching rule 1 verbatim, then let strcase's snake-case conversion
	// do the Unicode-aware case-transition splitting from rule 2 for us.
	var b strings.Builder
	lastWasSep := true
	for _, r := range raw {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastWasSep = false
		} else if !lastWasSep {
			b.WriteRune('_')
			lastWasSep = true
		}
	}
	collapsed := strings.Trim(b.String(), "_")
	if collapsed == "" {
		return nil
	}

	snake := strcase.ToSnake(collapsed)
	parts := strings.Split(snake, "_")

	var tokens []string
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

func applyCase(tokens []string, c Case) string {
	if len(tokens) == 0 {
		return ""
	}
	joined := strings.Join(tokens, "_")
	switch c {
	case CasePascal:
		return strcase.ToCamel(joined)
	case CaseSnake:
		return strcase.ToSnake(joined)
	case CaseScreamingSnake:
		return strings.ToUpper(strcase.ToSnake(joined))
	}
	return joined
}

func startsWithDigit(s string) bool {
	if s == "" {
		return false
	}
	return unicode.IsDigit(rune(s[0]))
}

func isReservedWord(s string) bool {
	return rustReservedWords[s]
}

// rawCaseForComparison re-derives what case-converting raw (without
// placeholder/disambiguation) would look like, purely so Mint can report
// whether the final identifier preserves the original spelling.
func rawCaseForComparison(raw string, c Case) string {
	return applyCase(tokenize(raw), c)
}
