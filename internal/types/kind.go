// Package types models the statically tracked capabilities of synthesized values.
//
// A Type is a closed tagged variant: the Kind discriminant selects which payload
// fields (group, element kind, property names, signature) are meaningful. Code that
// dispatches on a Type switches on Kind exhaustively instead of probing for
// interfaces.
package types

// Kind is the discriminant of a Type.
type Kind uint8

const (
	KindAnything Kind = iota
	KindUndefined
	KindInteger
	KindFloat
	KindString
	KindBoolean
	KindPlainObject
	KindArray
	KindFunction
	KindConstructor
	KindTypedArray
	KindArrayBuffer
	KindDataView
	KindProxy
	KindCollection
	KindHostObject
)

var kindNames = [...]string{
	KindAnything:    "anything",
	KindUndefined:   "undefined",
	KindInteger:     "integer",
	KindFloat:       "float",
	KindString:      "string",
	KindBoolean:     "boolean",
	KindPlainObject: "object",
	KindArray:       "array",
	KindFunction:    "function",
	KindConstructor: "constructor",
	KindTypedArray:  "typedarray",
	KindArrayBuffer: "arraybuffer",
	KindDataView:    "dataview",
	KindProxy:       "proxy",
	KindCollection:  "collection",
	KindHostObject:  "host",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return "invalid"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}

	return KindAnything, false
}

// IsPrimitive reports whether values of this kind are not heap objects.
func (k Kind) IsPrimitive() bool {
	switch k {
	case KindUndefined, KindInteger, KindFloat, KindString, KindBoolean:
		return true
	default:
		return false
	}
}

// IsObject reports whether property operations are valid on values of this kind.
func (k Kind) IsObject() bool {
	switch k {
	case KindPlainObject, KindArray, KindFunction, KindConstructor, KindTypedArray,
		KindArrayBuffer, KindDataView, KindProxy, KindCollection, KindHostObject:
		return true
	case KindAnything, KindUndefined, KindInteger, KindFloat, KindString, KindBoolean:
		return false
	default:
		return false
	}
}

// IsCallable reports whether values of this kind may be called.
func (k Kind) IsCallable() bool {
	return k == KindFunction || k == KindConstructor
}

// ElementKind is the element type of a typed array.
type ElementKind uint8

const (
	ElementNone ElementKind = iota
	ElementUint8
	ElementInt8
	ElementUint16
	ElementInt16
	ElementUint32
	ElementInt32
	ElementFloat32
	ElementFloat64
	ElementUint8Clamped
)

var elementConstructors = [...]string{
	ElementNone:         "",
	ElementUint8:        "Uint8Array",
	ElementInt8:         "Int8Array",
	ElementUint16:       "Uint16Array",
	ElementInt16:        "Int16Array",
	ElementUint32:       "Uint32Array",
	ElementInt32:        "Int32Array",
	ElementFloat32:      "Float32Array",
	ElementFloat64:      "Float64Array",
	ElementUint8Clamped: "Uint8ClampedArray",
}

// Elements lists every concrete typed-array element kind.
func Elements() []ElementKind {
	return []ElementKind{
		ElementUint8, ElementInt8, ElementUint16, ElementInt16, ElementUint32,
		ElementInt32, ElementFloat32, ElementFloat64, ElementUint8Clamped,
	}
}

// ConstructorName returns the builtin constructor creating arrays of this kind.
func (e ElementKind) ConstructorName() string {
	if int(e) < len(elementConstructors) {
		return elementConstructors[e]
	}

	return ""
}

func (e ElementKind) String() string {
	if e == ElementNone {
		return "none"
	}

	return e.ConstructorName()
}

// ElementByConstructor maps "Uint8Array" and friends back to their element kind.
func ElementByConstructor(name string) (ElementKind, bool) {
	for e, ctor := range elementConstructors {
		if ctor != "" && ctor == name {
			return ElementKind(e), true
		}
	}

	return ElementNone, false
}
