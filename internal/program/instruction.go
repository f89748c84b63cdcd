// Package program holds the synthesized artifact: an ordered instruction
// sequence over numbered variables.
package program

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Variable names a synthesized value.
type Variable uint32

// NoVariable stands for "no value".
const NoVariable Variable = math.MaxUint32

// Valid reports whether v names a value.
func (v Variable) Valid() bool { return v != NoVariable }

func (v Variable) String() string {
	if !v.Valid() {
		return "v?"
	}

	return fmt.Sprintf("v%d", uint32(v))
}

// Opcode identifies an instruction.
type Opcode uint8

const (
	OpNop Opcode = iota
	OpLoadInteger
	OpLoadFloat
	OpLoadString
	OpLoadBoolean
	OpLoadUndefined
	OpLoadBuiltin
	OpCreateObject
	OpCreateArray
	OpLoadProperty
	OpStoreProperty
	OpLoadComputedProperty
	OpStoreComputedProperty
	OpLoadElement
	OpStoreElement
	OpBeginFunction
	OpReturn
	OpEndFunction
	OpCallFunction
	OpCallMethod
	OpConstruct
	OpCompare
	OpBeginFor
	OpEndFor
	OpBeginIf
	OpBeginElse
	OpEndIf
)

var opNames = [...]string{
	OpNop:                   "Nop",
	OpLoadInteger:           "LoadInteger",
	OpLoadFloat:             "LoadFloat",
	OpLoadString:            "LoadString",
	OpLoadBoolean:           "LoadBoolean",
	OpLoadUndefined:         "LoadUndefined",
	OpLoadBuiltin:           "LoadBuiltin",
	OpCreateObject:          "CreateObject",
	OpCreateArray:           "CreateArray",
	OpLoadProperty:          "LoadProperty",
	OpStoreProperty:         "StoreProperty",
	OpLoadComputedProperty:  "LoadComputedProperty",
	OpStoreComputedProperty: "StoreComputedProperty",
	OpLoadElement:           "LoadElement",
	OpStoreElement:          "StoreElement",
	OpBeginFunction:         "BeginFunction",
	OpReturn:                "Return",
	OpEndFunction:           "EndFunction",
	OpCallFunction:          "CallFunction",
	OpCallMethod:            "CallMethod",
	OpConstruct:             "Construct",
	OpCompare:               "Compare",
	OpBeginFor:              "BeginFor",
	OpEndFor:                "EndFor",
	OpBeginIf:               "BeginIf",
	OpBeginElse:             "BeginElse",
	OpEndIf:                 "EndIf",
}

func (op Opcode) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}

	return fmt.Sprintf("Opcode(%d)", uint8(op))
}

// MarshalText encodes the opcode by name.
func (op Opcode) MarshalText() ([]byte, error) {
	return []byte(op.String()), nil
}

// UnmarshalText decodes an opcode name.
func (op *Opcode) UnmarshalText(text []byte) error {
	for i, name := range opNames {
		if name == string(text) {
			*op = Opcode(i)
			return nil
		}
	}

	return fmt.Errorf("unknown opcode %q", text)
}

// OpensBlock reports whether op starts a nested block.
func (op Opcode) OpensBlock() bool {
	return op == OpBeginFunction || op == OpBeginFor || op == OpBeginIf
}

// ClosesBlock reports whether op ends a nested block.
func (op Opcode) ClosesBlock() bool {
	return op == OpEndFunction || op == OpEndFor || op == OpEndIf
}

// Comparator is the relation tested by Compare and counted loops.
type Comparator uint8

const (
	LessThan Comparator = iota
	LessThanOrEqual
	GreaterThan
	GreaterThanOrEqual
	Equal
	NotEqual
	StrictEqual
	StrictNotEqual
)

var comparatorTokens = [...]string{"<", "<=", ">", ">=", "==", "!=", "===", "!=="}

func (c Comparator) String() string {
	if int(c) < len(comparatorTokens) {
		return comparatorTokens[c]
	}

	return "?"
}

// ArithOp is the update operator of a counted loop.
type ArithOp uint8

const (
	Add ArithOp = iota
	Sub
	Mul
)

var arithTokens = [...]string{"+", "-", "*"}

func (a ArithOp) String() string {
	if int(a) < len(arithTokens) {
		return arithTokens[a]
	}

	return "?"
}

// Instruction is one operation of a Program.
//
// Operands are positional: Inputs are read, Outputs are defined in the current
// scope and Inner variables (function parameters, loop counters) are defined in
// the block the instruction opens.
type Instruction struct {
	Op      Opcode     `json:"op"`
	Outputs []Variable `json:"out,omitempty"`
	Inputs  []Variable `json:"in,omitempty"`
	Inner   []Variable `json:"inner,omitempty"`
	Int     int64      `json:"int,omitempty"`
	Float   float64    `json:"float,omitempty"`
	Text    string     `json:"text,omitempty"`
	Bool    bool       `json:"bool,omitempty"`
	Names   []string   `json:"names,omitempty"`
	Cmp     Comparator `json:"cmp,omitempty"`
	Arith   ArithOp    `json:"arith,omitempty"`
}

// Output returns the single output of the instruction, if any.
func (in Instruction) Output() Variable {
	if len(in.Outputs) == 0 {
		return NoVariable
	}

	return in.Outputs[0]
}

// clone deep-copies the slices so callers cannot alter a Program.
func (in Instruction) clone() Instruction {
	in.Outputs = append([]Variable(nil), in.Outputs...)
	in.Inputs = append([]Variable(nil), in.Inputs...)
	in.Inner = append([]Variable(nil), in.Inner...)
	in.Names = append([]string(nil), in.Names...)

	return in
}

// wireFloat encodes non-finite values as the strings "NaN", "+Inf" and "-Inf",
// which encoding/json otherwise rejects.
type wireFloat float64

func (f wireFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)

	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Inf"`), nil
	}

	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

func (f *wireFloat) UnmarshalJSON(data []byte) error {
	text := string(data)

	if len(data) > 0 && data[0] == '"' {
		unquoted, err := strconv.Unquote(text)
		if err != nil {
			return err
		}

		text = unquoted
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("invalid float %s: %w", data, err)
	}

	*f = wireFloat(v)

	return nil
}

type instructionFields Instruction

type wireInstruction struct {
	instructionFields
	Float wireFloat `json:"float,omitempty"`
}

// MarshalJSON encodes the instruction, keeping non-finite float constants.
func (in Instruction) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireInstruction{instructionFields: instructionFields(in), Float: wireFloat(in.Float)})
}

func (in *Instruction) UnmarshalJSON(data []byte) error {
	var w wireInstruction
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*in = Instruction(w.instructionFields)
	in.Float = float64(w.Float)

	return nil
}
