package types

import (
	"slices"
	"sort"
	"strings"
)

// Type describes what operations are valid on a synthesized value.
//
// The zero Type is Anything. Types are values; methods that add information
// return a new Type and never modify the receiver's property slice.
type Type struct {
	Kind      Kind
	Group     string
	Element   ElementKind
	Signature *Signature

	properties []string
}

// Signature is the call signature of a function or constructor.
type Signature struct {
	Params  []Type
	Returns Type
}

// NewSignature builds a signature taking params and returning returns.
func NewSignature(returns Type, params ...Type) Signature {
	return Signature{Params: append([]Type(nil), params...), Returns: returns}
}

func (s Signature) String() string {
	parts := make([]string, len(s.Params))
	for i, p := range s.Params {
		parts[i] = p.String()
	}

	return "[" + strings.Join(parts, ", ") + "] => " + s.Returns.String()
}

// Equal reports structural equality.
func (s Signature) Equal(o Signature) bool {
	return slices.EqualFunc(s.Params, o.Params, Type.Equal) && s.Returns.Equal(o.Returns)
}

var (
	Anything    = Type{Kind: KindAnything}
	Undefined   = Type{Kind: KindUndefined}
	Integer     = Type{Kind: KindInteger}
	Float       = Type{Kind: KindFloat}
	String      = Type{Kind: KindString}
	Boolean     = Type{Kind: KindBoolean}
	Array       = Type{Kind: KindArray}
	ArrayBuffer = Type{Kind: KindArrayBuffer}
	DataView    = Type{Kind: KindDataView}
	Proxy       = Type{Kind: KindProxy}
)

// Object returns a plain-object Type known to carry props.
func Object(props ...string) Type {
	return Type{Kind: KindPlainObject, properties: normalize(props)}
}

// Collection returns a Map/Set-like builtin object of the given group.
func Collection(group string) Type {
	return Type{Kind: KindCollection, Group: group}
}

// Host returns a host (DOM-like) object of the given group.
func Host(group string, props ...string) Type {
	return Type{Kind: KindHostObject, Group: group, properties: normalize(props)}
}

// TypedArray returns a typed array of element kind e. ElementNone matches any element kind.
func TypedArray(e ElementKind) Type {
	return Type{Kind: KindTypedArray, Element: e}
}

// Function returns a callable with the given signature.
func Function(sig Signature) Type {
	return Type{Kind: KindFunction, Signature: &sig}
}

// AnyFunction matches every function and constructor.
func AnyFunction() Type {
	return Type{Kind: KindFunction}
}

// Constructor returns a constructor with the given signature.
func Constructor(sig Signature) Type {
	return Type{Kind: KindConstructor, Signature: &sig}
}

// AnyConstructor matches every constructor.
func AnyConstructor() Type {
	return Type{Kind: KindConstructor}
}

// Properties returns a sorted copy of the statically known property names.
func (t Type) Properties() []string {
	return append([]string(nil), t.properties...)
}

// HasProperty reports whether name is statically known on t.
func (t Type) HasProperty(name string) bool {
	_, found := slices.BinarySearch(t.properties, name)
	return found
}

// WithProperties returns t extended with names.
func (t Type) WithProperties(names ...string) Type {
	if len(names) == 0 {
		return t
	}

	merged := make([]string, 0, len(t.properties)+len(names))
	merged = append(merged, t.properties...)
	merged = append(merged, names...)
	t.properties = normalize(merged)

	return t
}

// IsObject reports whether property operations are valid on t.
func (t Type) IsObject() bool { return t.Kind.IsObject() }

// Callable reports whether t may be called.
func (t Type) Callable() bool { return t.Kind.IsCallable() }

// intrinsics restricts a few engine-defined accessors to the kinds that define them.
var intrinsics = map[string][]Kind{
	"byteLength": {KindTypedArray, KindArrayBuffer, KindDataView},
	"byteOffset": {KindTypedArray, KindDataView},
	"buffer":     {KindTypedArray, KindDataView},
}

// AllowsProperty reports whether a load or store of name on t is consistent with t.
func (t Type) AllowsProperty(name string) bool {
	if !t.IsObject() {
		return false
	}

	kinds, restricted := intrinsics[name]
	if !restricted {
		return true
	}

	return slices.Contains(kinds, t.Kind)
}

// Is reports whether every value of type t is also a value of type want.
func (t Type) Is(want Type) bool {
	switch want.Kind {
	case KindAnything:
	case KindFunction:
		if t.Kind != KindFunction && t.Kind != KindConstructor {
			return false
		}
	default:
		if t.Kind != want.Kind {
			return false
		}
	}

	if want.Group != "" && t.Group != want.Group {
		return false
	}

	if want.Element != ElementNone && t.Element != want.Element {
		return false
	}

	for _, p := range want.properties {
		if !t.HasProperty(p) {
			return false
		}
	}

	return true
}

// Equal reports structural equality.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind || t.Group != o.Group || t.Element != o.Element {
		return false
	}

	if !slices.Equal(t.properties, o.properties) {
		return false
	}

	switch {
	case t.Signature == nil && o.Signature == nil:
		return true
	case t.Signature == nil || o.Signature == nil:
		return false
	default:
		return t.Signature.Equal(*o.Signature)
	}
}

func (t Type) String() string {
	var sb strings.Builder

	sb.WriteByte('.')
	sb.WriteString(t.Kind.String())

	switch t.Kind {
	case KindTypedArray:
		if t.Element != ElementNone {
			sb.WriteString("(" + t.Element.String() + ")")
		}
	case KindFunction, KindConstructor:
		if t.Signature != nil {
			sb.WriteString("(" + t.Signature.String() + ")")
		}
	case KindPlainObject, KindCollection, KindHostObject:
		if t.Group != "" {
			sb.WriteString("(" + t.Group + ")")
		}
	case KindAnything, KindUndefined, KindInteger, KindFloat, KindString, KindBoolean,
		KindArray, KindArrayBuffer, KindDataView, KindProxy:
	}

	if len(t.properties) > 0 {
		sb.WriteString("[" + strings.Join(t.properties, ",") + "]")
	}

	return sb.String()
}

func normalize(names []string) []string {
	if len(names) == 0 {
		return nil
	}

	out := append([]string(nil), names...)
	sort.Strings(out)

	return slices.Compact(out)
}
