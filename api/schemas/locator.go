// api/schemas/locator.go
package schemas

import (
	"fmt"
	"strings"
)

// DescriptorKind names the structural predicate a Descriptor expresses.
type DescriptorKind string

const (
	// KindCSS is a raw CSS selector.
	KindCSS DescriptorKind = "css"
	// KindID matches the element id attribute exactly.
	KindID DescriptorKind = "id"
	// KindName matches the name attribute exactly.
	KindName DescriptorKind = "name"
	// KindPlaceholder matches elements whose placeholder contains Value.
	KindPlaceholder DescriptorKind = "placeholder"
	// KindText matches Tag elements whose visible text contains Value.
	KindText DescriptorKind = "text"
)

// Descriptor is a data-described locator for one control on the remote page.
// Descriptors compile to CSS so any automation backend can evaluate them; the text
// predicate of KindText is applied afterwards on the candidates' visible text.
type Descriptor struct {
	Kind   DescriptorKind `mapstructure:"kind" yaml:"kind" json:"kind"`
	Value  string         `mapstructure:"value" yaml:"value" json:"value"`
	Tag    string         `mapstructure:"tag" yaml:"tag,omitempty" json:"tag,omitempty"`
	Within string         `mapstructure:"within" yaml:"within,omitempty" json:"within,omitempty"`
}

// LocatorStrategy is an ordered list of descriptors tried in priority order.
type LocatorStrategy []Descriptor

// CSS is shorthand for a raw CSS descriptor.
func CSS(selector string) Descriptor { return Descriptor{Kind: KindCSS, Value: selector} }

// ByID is shorthand for an id descriptor.
func ByID(id string) Descriptor { return Descriptor{Kind: KindID, Value: id} }

// ByName is shorthand for a name attribute descriptor on tag.
func ByName(tag, name string) Descriptor { return Descriptor{Kind: KindName, Value: name, Tag: tag} }

// ByPlaceholder is shorthand for a placeholder-substring descriptor on tag.
func ByPlaceholder(tag, fragment string) Descriptor {
	return Descriptor{Kind: KindPlaceholder, Value: fragment, Tag: tag}
}

// ByText is shorthand for a visible-text descriptor on tag.
func ByText(tag, fragment string) Descriptor { return Descriptor{Kind: KindText, Value: fragment, Tag: tag} }

// String renders the descriptor for logs.
func (d Descriptor) String() string {
	if d.Kind == KindText {
		return fmt.Sprintf("text(%s ~ %q)", d.Selector(), d.Value)
	}
	return fmt.Sprintf("%s(%s)", d.Kind, d.Selector())
}

// Selector compiles the structural part of the descriptor to a CSS selector.
func (d Descriptor) Selector() string {
	tag := strings.TrimSpace(d.Tag)
	var sel string
	switch d.Kind {
	case KindID:
		sel = tag + fmt.Sprintf("[id=%s]", cssQuote(d.Value))
	case KindName:
		sel = tag + fmt.Sprintf("[name=%s]", cssQuote(d.Value))
	case KindPlaceholder:
		sel = tag + fmt.Sprintf("[placeholder*=%s]", cssQuote(d.Value))
	case KindText:
		if tag == "" {
			tag = "*"
		}
		sel = tag
	default:
		sel = d.Value
	}
	return scopeSelector(strings.TrimSpace(d.Within), sel)
}

// MatchesText applies the text predicate; non-text descriptors accept everything.
func (d Descriptor) MatchesText(text string) bool {
	if d.Kind != KindText {
		return true
	}
	return d.Value != "" && strings.Contains(strings.TrimSpace(text), d.Value)
}

// cssQuote renders v as a double-quoted CSS string.
func cssQuote(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(v) + `"`
}

// scopeSelector prefixes every comma-separated part of sel with within.
func scopeSelector(within, sel string) string {
	if within == "" {
		return sel
	}
	parts := strings.Split(sel, ",")
	for i, p := range parts {
		parts[i] = within + " " + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
