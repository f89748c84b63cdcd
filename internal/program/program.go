package program

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/orizon-lang/tierforge/internal/types"
)

// Binding pairs a variable with its type in the final scope.
type Binding struct {
	Var  Variable   `json:"var"`
	Type types.Type `json:"type"`
}

// Meta identifies a synthesized program.
type Meta struct {
	ID       string `json:"id,omitempty"`
	Template string `json:"template,omitempty"`
	Seed     int64  `json:"seed"`
}

// Program is an immutable instruction sequence plus the scope live at its end.
type Program struct {
	meta  Meta
	code  []Instruction
	scope []Binding
}

// New copies code and scope into a Program.
func New(meta Meta, code []Instruction, scope []Binding) *Program {
	p := &Program{
		meta:  meta,
		code:  make([]Instruction, len(code)),
		scope: append([]Binding(nil), scope...),
	}

	for i, in := range code {
		p.code[i] = in.clone()
	}

	return p
}

func (p *Program) Meta() Meta       { return p.meta }
func (p *Program) ID() string       { return p.meta.ID }
func (p *Program) Template() string { return p.meta.Template }
func (p *Program) Seed() int64      { return p.meta.Seed }
func (p *Program) Len() int         { return len(p.code) }

// At returns a copy of the i-th instruction.
func (p *Program) At(i int) Instruction { return p.code[i].clone() }

// Instructions returns a deep copy of the code.
func (p *Program) Instructions() []Instruction {
	out := make([]Instruction, len(p.code))
	for i, in := range p.code {
		out[i] = in.clone()
	}

	return out
}

// Scope returns the variables visible at the end of the program.
func (p *Program) Scope() []Binding {
	return append([]Binding(nil), p.scope...)
}

// Count returns the number of instructions with opcode op.
func (p *Program) Count(op Opcode) int {
	n := 0

	for _, in := range p.code {
		if in.Op == op {
			n++
		}
	}

	return n
}

// IntConstant resolves v to the integer it was loaded from, if any.
func (p *Program) IntConstant(v Variable) (int64, bool) {
	for _, in := range p.code {
		if in.Op == OpLoadInteger && in.Output() == v {
			return in.Int, true
		}
	}

	return 0, false
}

// Loop describes a counted loop of the program.
type Loop struct {
	Index int
	Start int64
	End   int64
	Step  int64
	Cmp   Comparator
	Arith ArithOp
}

// Iterations is the trip count of a loop with constant bounds.
func (l Loop) Iterations() int64 {
	if l.Step <= 0 || l.Arith != Add {
		return 0
	}

	end := l.End

	switch l.Cmp {
	case LessThan:
	case LessThanOrEqual:
		end++
	default:
		return 0
	}

	if l.Start >= end {
		return 0
	}

	return (end - l.Start + l.Step - 1) / l.Step
}

// Loops lists counted loops whose bounds are integer constants, in program order.
func (p *Program) Loops() []Loop {
	var loops []Loop

	for i, in := range p.code {
		if in.Op != OpBeginFor || len(in.Inputs) != 3 {
			continue
		}

		start, ok1 := p.IntConstant(in.Inputs[0])
		end, ok2 := p.IntConstant(in.Inputs[1])
		step, ok3 := p.IntConstant(in.Inputs[2])

		if !ok1 || !ok2 || !ok3 {
			continue
		}

		loops = append(loops, Loop{Index: i, Start: start, End: end, Step: step, Cmp: in.Cmp, Arith: in.Arith})
	}

	return loops
}

// Validate checks block structure and that every input is defined and visible.
func (p *Program) Validate() error {
	scopes := [][]Variable{nil}
	blocks := []Opcode{}
	visible := func(v Variable) bool {
		for _, s := range scopes {
			for _, d := range s {
				if d == v {
					return true
				}
			}
		}

		return false
	}

	for i, in := range p.code {
		for _, v := range in.Inputs {
			if !visible(v) {
				return fmt.Errorf("instruction %d (%s): %s is not visible", i, in.Op, v)
			}
		}

		if in.Op.ClosesBlock() || in.Op == OpBeginElse {
			if len(blocks) == 0 {
				return fmt.Errorf("instruction %d (%s): no open block", i, in.Op)
			}

			open := blocks[len(blocks)-1]
			if !matches(open, in.Op) {
				return fmt.Errorf("instruction %d (%s): closes %s", i, in.Op, open)
			}

			scopes = scopes[:len(scopes)-1]

			if in.Op == OpBeginElse {
				scopes = append(scopes, nil)
			} else {
				blocks = blocks[:len(blocks)-1]
			}
		}

		if in.Op == OpReturn && !inside(blocks, OpBeginFunction) {
			return fmt.Errorf("instruction %d: return outside function", i)
		}

		top := len(scopes) - 1
		scopes[top] = append(scopes[top], in.Outputs...)

		if in.Op.OpensBlock() {
			blocks = append(blocks, in.Op)
			scopes = append(scopes, append([]Variable(nil), in.Inner...))
		}
	}

	if len(blocks) != 0 {
		return fmt.Errorf("%d unterminated blocks", len(blocks))
	}

	return nil
}

func matches(open, closer Opcode) bool {
	switch closer {
	case OpEndFunction:
		return open == OpBeginFunction
	case OpEndFor:
		return open == OpBeginFor
	case OpEndIf, OpBeginElse:
		return open == OpBeginIf
	default:
		return false
	}
}

func inside(blocks []Opcode, op Opcode) bool {
	for _, b := range blocks {
		if b == op {
			return true
		}
	}

	return false
}

// Format renders a line-oriented listing of the instructions.
func (p *Program) Format() string {
	var sb strings.Builder

	depth := 0

	for _, in := range p.code {
		if in.Op.ClosesBlock() || in.Op == OpBeginElse {
			depth--
		}

		sb.WriteString(strings.Repeat("    ", max(depth, 0)))
		sb.WriteString(formatInstruction(in))
		sb.WriteByte('\n')

		if in.Op.OpensBlock() || in.Op == OpBeginElse {
			depth++
		}
	}

	return sb.String()
}

func (p *Program) String() string { return p.Format() }

func formatInstruction(in Instruction) string {
	var sb strings.Builder

	if len(in.Outputs) > 0 {
		sb.WriteString(joinVars(in.Outputs) + " <- ")
	}

	sb.WriteString(in.Op.String())

	switch in.Op {
	case OpLoadInteger:
		sb.WriteString(" '" + strconv.FormatInt(in.Int, 10) + "'")
	case OpLoadFloat:
		sb.WriteString(" '" + strconv.FormatFloat(in.Float, 'g', -1, 64) + "'")
	case OpLoadString:
		sb.WriteString(" " + strconv.Quote(in.Text))
	case OpLoadBoolean:
		sb.WriteString(" '" + strconv.FormatBool(in.Bool) + "'")
	case OpLoadBuiltin:
		sb.WriteString(" '" + in.Text + "'")
	case OpCreateObject:
		fields := make([]string, len(in.Names))
		for i, name := range in.Names {
			fields[i] = fmt.Sprintf("'%s': %s", name, in.Inputs[i])
		}

		sb.WriteString(" [" + strings.Join(fields, ", ") + "]")
	case OpLoadProperty, OpStoreProperty, OpCallMethod:
		sb.WriteString(" '" + in.Text + "'")

		if len(in.Inputs) > 0 {
			sb.WriteString(" " + joinVars(in.Inputs))
		}
	case OpLoadElement, OpStoreElement:
		sb.WriteString(" [" + strconv.FormatInt(in.Int, 10) + "] " + joinVars(in.Inputs))
	case OpCompare:
		sb.WriteString(fmt.Sprintf(" %s '%s' %s", in.Inputs[0], in.Cmp, in.Inputs[1]))
	case OpBeginFor:
		sb.WriteString(fmt.Sprintf(" %s '%s' %s '%s=' %s", in.Inputs[0], in.Cmp, in.Inputs[1], in.Arith, in.Inputs[2]))
	default:
		if len(in.Inputs) > 0 {
			sb.WriteString(" " + joinVars(in.Inputs))
		}
	}

	if len(in.Inner) > 0 {
		sb.WriteString(" -> " + joinVars(in.Inner))
	}

	return sb.String()
}

func joinVars(vs []Variable) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}

	return strings.Join(parts, ", ")
}

type wireProgram struct {
	Meta  Meta          `json:"meta"`
	Code  []Instruction `json:"code"`
	Scope []Binding     `json:"scope,omitempty"`
}

// MarshalJSON encodes the program for storage and transfer.
func (p *Program) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireProgram{Meta: p.meta, Code: p.code, Scope: p.scope})
}

// UnmarshalJSON decodes and validates a program.
func (p *Program) UnmarshalJSON(data []byte) error {
	var w wireProgram
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	decoded := New(w.Meta, w.Code, w.Scope)
	if err := decoded.Validate(); err != nil {
		return fmt.Errorf("decoded program is malformed: %w", err)
	}

	*p = *decoded

	return nil
}
