// Package stdlib holds the fixed table of standard SysML/KerML
// library IRIs, used by the "include_std" filter that spec.md §4.7/
// §4.8 refer to but never enumerate: a usage whose IRI names one of
// these is a standard-library dependency, not a third-party one.
package stdlib

// libraries maps each standard library's canonical urn:kpar: IRI and
// its OMG-published https:// mirror to the same library name.
var libraries = map[string]string{
	"urn:kpar:quantities-and-units-library":   "quantities-and-units",
	"urn:kpar:function-library":               "function",
	"urn:kpar:systems-library":                "systems",
	"urn:kpar:cause-and-effect-library":       "cause-and-effect",
	"urn:kpar:requirement-derivation-library": "requirement-derivation",
	"urn:kpar:metadata-library":                "metadata",
	"urn:kpar:geometry-library":                "geometry",
	"urn:kpar:analysis-library":                "analysis",
	"urn:kpar:data-type-library":               "data-type",
	"urn:kpar:semantic-library":                "semantic",

	"https://www.omg.org/spec/SysML/20230201/Quantities-and-Units-Domain-Library.kpar":    "quantities-and-units",
	"https://www.omg.org/spec/KerML/20230201/Function-Library.kpar":                       "function",
	"https://www.omg.org/spec/SysML/20230201/Systems-Library.kpar":                        "systems",
	"https://www.omg.org/spec/SysML/20230201/Cause-and-Effect-Domain-Library.kpar":         "cause-and-effect",
	"https://www.omg.org/spec/SysML/20230201/Requirement-Derivation-Domain-Library.kpar":   "requirement-derivation",
	"https://www.omg.org/spec/SysML/20230201/Metadata-Domain-Library.kpar":                 "metadata",
	"https://www.omg.org/spec/SysML/20230201/Geometry-Domain-Library.kpar":                 "geometry",
	"https://www.omg.org/spec/SysML/20230201/Analysis-Domain-Library.kpar":                 "analysis",
	"https://www.omg.org/spec/KerML/20230201/Data-Type-Library.kpar":                       "data-type",
	"https://www.omg.org/spec/KerML/20230201/Semantic-Library.kpar":                        "semantic",
}

// IsStandard reports whether normalisedIRI names one of the standard
// SysML/KerML libraries.
func IsStandard(normalisedIRI string) bool {
	_, ok := libraries[normalisedIRI]
	return ok
}

// Name returns the short library name for a standard-library IRI, and
// false if it isn't one.
func Name(normalisedIRI string) (string, bool) {
	name, ok := libraries[normalisedIRI]
	return name, ok
}

// IRIs returns every known standard-library IRI, both forms.
func IRIs() []string {
	out := make([]string, 0, len(libraries))
	for iri := range libraries {
		out = append(out, iri)
	}
	return out
}
