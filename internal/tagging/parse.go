// Package tagging applies bulk tag mutations to stored media.
package tagging

import (
	"fmt"
	"strconv"
	"strings"
)

// TagSpec is one parsed "species,count" token.
type TagSpec struct {
	Name  string
	Count int
}

// ParseSpecs parses "species,count" tokens. Invalid tokens are
// collected as errors without stopping the rest of the batch.
func ParseSpecs(tokens []string) ([]TagSpec, []error) {
	var specs []TagSpec
	var errs []error

	for _, token := range tokens {
		spec, err := parseSpec(token)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		specs = append(specs, spec)
	}
	return specs, errs
}

func parseSpec(token string) (TagSpec, error) {
	name, countPart, found := strings.Cut(token, ",")
	name = strings.TrimSpace(name)
	if name == "" {
		return TagSpec{}, fmt.Errorf("tag %q has no species name", token)
	}
	if !found || strings.TrimSpace(countPart) == "" {
		return TagSpec{}, fmt.Errorf("tag %q has no count, expected species,count", token)
	}

	count, err := strconv.Atoi(strings.TrimSpace(countPart))
	if err != nil {
		return TagSpec{}, fmt.Errorf("tag %q has an invalid count: %w", token, err)
	}
	if count < 1 {
		return TagSpec{}, fmt.Errorf("tag %q has a count below 1", token)
	}

	return TagSpec{Name: name, Count: count}, nil
}
