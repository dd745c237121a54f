package tree

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseDescriptors parses a YAML list of language descriptors:
//
//	# languages
//	- name: math
//	  operations: [add, subtract, multiply]
//	- name: str
//	  operations: [concat]
func ParseDescriptors(data []byte) ([]Descriptor, error) {
	var ret []Descriptor
	if err := yaml.Unmarshal(data, &ret); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLanguage, err)
	}
	seen := make(map[string]struct{})
	for _, d := range ret {
		if _, already := seen[d.Name]; already {
			return nil, fmt.Errorf("%w: repeating namespace '%s'", ErrInvalidLanguage, d.Name)
		}
		seen[d.Name] = struct{}{}
	}
	return ret, nil
}

// LoadLanguages creates builder-only languages from YAML descriptors
func LoadLanguages(data []byte) ([]*Language, error) {
	descr, err := ParseDescriptors(data)
	if err != nil {
		return nil, err
	}
	ret := make([]*Language, 0, len(descr))
	for _, d := range descr {
		lang, err := CreateLanguage(d.Name, d.Operations)
		if err != nil {
			return nil, err
		}
		ret = append(ret, lang)
	}
	return ret, nil
}
