package detect

import (
	_ "embed"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed species.yaml
var speciesYAML []byte

var (
	speciesLabels []string
	speciesByFold map[string]string
)

func init() {
	var doc struct {
		Species []string `yaml:"species"`
	}
	if err := yaml.Unmarshal(speciesYAML, &doc); err != nil {
		panic(fmt.Sprintf("invalid embedded species list: %v", err))
	}

	speciesLabels = doc.Species
	speciesByFold = make(map[string]string, len(doc.Species))
	for _, label := range doc.Species {
		speciesByFold[fold(label)] = label
	}
}

// Labels returns the known species labels in list order.
func Labels() []string {
	out := make([]string, len(speciesLabels))
	copy(out, speciesLabels)
	return out
}

// Canonical maps a model-returned species name to the label from the
// embedded list, ignoring case, diacritics and surrounding whitespace.
// Unknown species return false.
func Canonical(name string) (string, bool) {
	label, found := speciesByFold[fold(name)]
	return label, found
}

// fold lowercases and strips diacritics (e.g. "Vireo" and "vireó" fold
// to the same key).
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, _ := transform.String(t, s)
	return strings.ToLower(strings.TrimSpace(folded))
}
