package types

import (
	"encoding/json"
	"fmt"
)

// Spec is the structured, serializable form of a Type. Profiles declare builtin
// types with it and programs carry their final scope in it.
type Spec struct {
	Kind       string   `json:"kind" yaml:"kind"`
	Group      string   `json:"group,omitempty" yaml:"group,omitempty"`
	Element    string   `json:"element,omitempty" yaml:"element,omitempty"`
	Properties []string `json:"properties,omitempty" yaml:"properties,omitempty"`
	Params     []Spec   `json:"params,omitempty" yaml:"params,omitempty"`
	Returns    *Spec    `json:"returns,omitempty" yaml:"returns,omitempty"`
}

// Type converts s into a Type.
func (s Spec) Type() (Type, error) {
	name := s.Kind
	if name == "" {
		name = KindAnything.String()
	}

	kind, ok := ParseKind(name)
	if !ok {
		return Anything, fmt.Errorf("unknown kind %q", s.Kind)
	}

	t := Type{Kind: kind, Group: s.Group, properties: normalize(s.Properties)}

	if s.Element != "" {
		if kind != KindTypedArray {
			return Anything, fmt.Errorf("element %q only applies to typedarray", s.Element)
		}

		e, ok := ElementByConstructor(s.Element)
		if !ok {
			return Anything, fmt.Errorf("unknown element kind %q", s.Element)
		}

		t.Element = e
	}

	if len(s.Params) > 0 || s.Returns != nil {
		if !kind.IsCallable() {
			return Anything, fmt.Errorf("signature only applies to function or constructor, got %s", kind)
		}

		sig := Signature{Returns: Anything}
		for i, p := range s.Params {
			pt, err := p.Type()
			if err != nil {
				return Anything, fmt.Errorf("param %d: %w", i, err)
			}

			sig.Params = append(sig.Params, pt)
		}

		if s.Returns != nil {
			rt, err := s.Returns.Type()
			if err != nil {
				return Anything, fmt.Errorf("returns: %w", err)
			}

			sig.Returns = rt
		}

		t.Signature = &sig
	}

	return t, nil
}

// Spec returns the structured form of t.
func (t Type) Spec() Spec {
	s := Spec{
		Kind:       t.Kind.String(),
		Group:      t.Group,
		Properties: t.Properties(),
	}

	if t.Element != ElementNone {
		s.Element = t.Element.ConstructorName()
	}

	if t.Signature != nil {
		for _, p := range t.Signature.Params {
			s.Params = append(s.Params, p.Spec())
		}

		ret := t.Signature.Returns.Spec()
		s.Returns = &ret
	}

	return s
}

// MarshalJSON encodes t through its Spec.
func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Spec())
}

// UnmarshalJSON decodes a Spec.
func (t *Type) UnmarshalJSON(data []byte) error {
	var s Spec
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	decoded, err := s.Type()
	if err != nil {
		return err
	}

	*t = decoded

	return nil
}
