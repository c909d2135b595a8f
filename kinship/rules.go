package kinship

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Rule maps a shape to a bilingual label. Empty constraints match anything;
// a "*" token in Via matches any gender at that position.
type Rule struct {
	ShapeKey       ShapeKey `yaml:"shape" json:"shapeKey"`
	Via            string   `yaml:"via,omitempty" json:"via,omitempty"`
	TravelerGender string   `yaml:"traveler,omitempty" json:"travelerGender,omitempty"`
	TargetGender   string   `yaml:"target,omitempty" json:"targetGender,omitempty"`
	LabelEnglish   string   `yaml:"en" json:"labelEnglish"`
	LabelMarathi   string   `yaml:"mr,omitempty" json:"labelMarathi,omitempty"`
}

type genderMatch struct {
	any    bool
	gender Gender
}

func (m genderMatch) matches(g Gender) bool {
	return m.any || m.gender == g
}

func parseGenderMatch(s string) (genderMatch, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "*", "any":
		return genderMatch{any: true}, nil
	case "m", "male":
		return genderMatch{gender: GenderMale}, nil
	case "f", "female":
		return genderMatch{gender: GenderFemale}, nil
	case "u", "unknown", "other":
		return genderMatch{gender: GenderUnknown}, nil
	default:
		return genderMatch{}, fmt.Errorf("unknown gender %q", s)
	}
}

type compiledRule struct {
	rule     Rule
	via      []genderMatch
	traveler genderMatch
	target   genderMatch
	score    int
}

// RuleTable is an immutable index of rules by shape.
type RuleTable struct {
	byShape map[ShapeKey][]compiledRule
	size    int
}

// NewRuleTable validates and indexes rules. The first invalid rule aborts
// construction; the error names its position.
func NewRuleTable(rules []Rule) (*RuleTable, error) {
	t := &RuleTable{byShape: make(map[ShapeKey][]compiledRule)}
	var errs []error
	for i, r := range rules {
		cr, err := compileRule(r)
		if err != nil {
			errs = append(errs, fmt.Errorf("rule %d (%s): %w", i, r.LabelEnglish, err))
			continue
		}
		t.byShape[cr.rule.ShapeKey] = append(t.byShape[cr.rule.ShapeKey], cr)
		t.size++
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return t, nil
}

func compileRule(r Rule) (compiledRule, error) {
	edges, err := r.ShapeKey.Edges()
	if err != nil {
		return compiledRule{}, err
	}
	if strings.TrimSpace(r.LabelEnglish) == "" {
		return compiledRule{}, errors.New("missing English label")
	}
	cr := compiledRule{rule: r}
	cr.rule.ShapeKey = NewShapeKey(edges)

	if r.Via != "" {
		tokens := strings.Split(r.Via, ".")
		if len(tokens) != len(edges)-1 {
			return compiledRule{}, fmt.Errorf("via %q needs %d token(s) for shape %s", r.Via, len(edges)-1, cr.rule.ShapeKey)
		}
		for _, tok := range tokens {
			m, err := parseGenderMatch(tok)
			if err != nil {
				return compiledRule{}, fmt.Errorf("via %q: %w", r.Via, err)
			}
			if !m.any {
				cr.score += 4
			}
			cr.via = append(cr.via, m)
		}
	}
	if cr.traveler, err = parseGenderMatch(r.TravelerGender); err != nil {
		return compiledRule{}, fmt.Errorf("traveler: %w", err)
	}
	if !cr.traveler.any {
		cr.score++
	}
	if cr.target, err = parseGenderMatch(r.TargetGender); err != nil {
		return compiledRule{}, fmt.Errorf("target: %w", err)
	}
	if !cr.target.any {
		cr.score += 2
	}
	return cr, nil
}

func (cr *compiledRule) matches(c Classification, traveler, target Gender) bool {
	if !cr.traveler.matches(traveler) || !cr.target.matches(target) {
		return false
	}
	if cr.via == nil {
		return true
	}
	if len(cr.via) != len(c.Via) {
		return false
	}
	for i, m := range cr.via {
		if !m.matches(c.Via[i]) {
			return false
		}
	}
	return true
}

func (t *RuleTable) Len() int {
	if t == nil {
		return 0
	}
	return t.size
}

// Has reports whether any rule covers shape.
func (t *RuleTable) Has(shape ShapeKey) bool {
	return t != nil && len(t.byShape[shape]) > 0
}

// Label is a resolved relationship name.
type Label struct {
	English  string
	Marathi  string
	Fallback bool
}

// Resolve picks the most specific rule for c. Gendered via qualifiers beat
// target gender, which beats traveler gender; ties go to the earlier rule.
// Without a matching rule the generic generation label is returned together
// with a *RuleNotFoundError, so a reachable member is never dropped.
func (t *RuleTable) Resolve(c Classification, traveler, target Gender) (Label, error) {
	var found *compiledRule
	if t != nil {
		candidates := t.byShape[c.Shape]
		for i := range candidates {
			cr := &candidates[i]
			if !cr.matches(c, traveler, target) {
				continue
			}
			if found == nil || cr.score > found.score {
				found = cr
			}
		}
	}
	if found == nil {
		return fallbackLabel(c), &RuleNotFoundError{Shape: c.Shape, Via: c.ViaKey(), TargetGender: target}
	}
	return Label{English: found.rule.LabelEnglish, Marathi: found.rule.LabelMarathi}, nil
}

func fallbackLabel(c Classification) Label {
	n := c.Generation
	if n < 0 {
		n = -n
	}
	direct := c.Kind == KindBlood && n == len(c.Path)

	var en, mr string
	switch {
	case direct && c.Generation < 0:
		en, mr = "Ancestor", "पूर्वज"
	case direct && c.Generation > 0:
		en, mr = "Descendant", "वंशज"
	case c.Kind == KindBlood:
		en, mr = "Relative", "नातेवाईक"
	default:
		en, mr = "Relative by marriage", "सोयरे"
	}

	switch {
	case c.Generation < 0:
		en += fmt.Sprintf(" (%d %s up)", n, plural(n, "generation"))
		mr += " (" + strconv.Itoa(n) + " पिढ्या वर)"
	case c.Generation > 0:
		en += fmt.Sprintf(" (%d %s down)", n, plural(n, "generation"))
		mr += " (" + strconv.Itoa(n) + " पिढ्या खाली)"
	}
	return Label{English: en, Marathi: mr, Fallback: true}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
