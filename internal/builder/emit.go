package builder

import (
	"maps"
	"slices"

	tferrors "github.com/orizon-lang/tierforge/internal/errors"
	"github.com/orizon-lang/tierforge/internal/program"
	"github.com/orizon-lang/tierforge/internal/types"
)

func (b *Builder) emit(in program.Instruction) {
	b.checkOpen()
	b.code = append(b.code, in)
}

// alloc reserves a variable number without making it visible.
func (b *Builder) alloc(t types.Type) program.Variable {
	v := b.next
	b.next++
	b.types[v] = t

	return v
}

// define makes v visible in the innermost scope.
func (b *Builder) define(v program.Variable) {
	top := len(b.scopes) - 1
	b.scopes[top] = append(b.scopes[top], v)
}

func (b *Builder) fresh(t types.Type) program.Variable {
	v := b.alloc(t)
	b.define(v)

	return v
}

func (b *Builder) pushScope(vars ...program.Variable) {
	b.scopes = append(b.scopes, slices.Clone(vars))
}

func (b *Builder) popScope() {
	b.scopes = b.scopes[:len(b.scopes)-1]
}

// requireObject aborts unless obj may be the target of a property operation named name.
// An empty name only checks that obj is object-like.
func (b *Builder) requireObject(op, name string, obj program.Variable) types.Type {
	t := b.types[obj]

	if !t.IsObject() {
		b.fail(tferrors.TypeMismatch(op, t.String(), "an object"))
	}

	if name != "" && !t.AllowsProperty(name) {
		b.fail(tferrors.TypeMismatch(op+" '"+name+"'", t.String(), "a type defining "+name))
	}

	return t
}

func (b *Builder) LoadInt(n int64) program.Variable {
	v := b.alloc(types.Integer)
	b.emit(program.Instruction{Op: program.OpLoadInteger, Outputs: []program.Variable{v}, Int: n})
	b.define(v)

	return v
}

func (b *Builder) LoadFloat(f float64) program.Variable {
	v := b.alloc(types.Float)
	b.emit(program.Instruction{Op: program.OpLoadFloat, Outputs: []program.Variable{v}, Float: f})
	b.define(v)

	return v
}

// LoadString loads a string constant. The value is remembered so computed
// stores through it can be recorded by name.
func (b *Builder) LoadString(s string) program.Variable {
	v := b.alloc(types.String)
	b.emit(program.Instruction{Op: program.OpLoadString, Outputs: []program.Variable{v}, Text: s})
	b.define(v)
	b.consts[v] = s

	return v
}

func (b *Builder) LoadBool(value bool) program.Variable {
	v := b.alloc(types.Boolean)
	b.emit(program.Instruction{Op: program.OpLoadBoolean, Outputs: []program.Variable{v}, Bool: value})
	b.define(v)

	return v
}

func (b *Builder) LoadUndefined() program.Variable {
	v := b.alloc(types.Undefined)
	b.emit(program.Instruction{Op: program.OpLoadUndefined, Outputs: []program.Variable{v}})
	b.define(v)

	return v
}

// LoadBuiltin loads a name from the environment.
func (b *Builder) LoadBuiltin(name string) program.Variable {
	t, ok := b.env[name]
	if !ok {
		b.fail(tferrors.UnknownBuiltin(name))
	}

	v := b.alloc(t)
	b.emit(program.Instruction{Op: program.OpLoadBuiltin, Outputs: []program.Variable{v}, Text: name})
	b.define(v)

	return v
}

// CreateObject emits an object literal. Every initial name except __proto__,
// which sets the prototype, is recorded in the shape tracker.
func (b *Builder) CreateObject(props map[string]program.Variable) program.Variable {
	names := slices.Sorted(maps.Keys(props))
	inputs := make([]program.Variable, len(names))

	for i, name := range names {
		inputs[i] = props[name]
	}

	own := slices.DeleteFunc(slices.Clone(names), func(n string) bool { return n == protoName })

	v := b.alloc(types.Object(own...))
	b.emit(program.Instruction{Op: program.OpCreateObject, Outputs: []program.Variable{v}, Inputs: inputs, Names: names})
	b.define(v)

	for _, name := range names {
		b.recordProperty(v, name)
	}

	return v
}

func (b *Builder) CreateArray(elems ...program.Variable) program.Variable {
	v := b.alloc(types.Array)
	b.emit(program.Instruction{Op: program.OpCreateArray, Outputs: []program.Variable{v}, Inputs: slices.Clone(elems)})
	b.define(v)

	return v
}

// LoadProperty emits obj.name.
func (b *Builder) LoadProperty(name string, obj program.Variable) program.Variable {
	t := b.requireObject("LoadProperty", name, obj)

	v := b.alloc(propertyType(t, name))
	b.emit(program.Instruction{Op: program.OpLoadProperty, Outputs: []program.Variable{v}, Inputs: []program.Variable{obj}, Text: name})
	b.define(v)

	return v
}

// StoreProperty emits obj.name = value and grows obj's shape.
func (b *Builder) StoreProperty(value program.Variable, name string, obj program.Variable) {
	b.requireObject("StoreProperty", name, obj)
	b.emit(program.Instruction{Op: program.OpStoreProperty, Inputs: []program.Variable{obj, value}, Text: name})
	b.recordProperty(obj, name)
}

// LoadComputedProperty emits obj[key].
func (b *Builder) LoadComputedProperty(key, obj program.Variable) program.Variable {
	t := b.requireObject("LoadComputedProperty", b.consts[key], obj)

	v := b.alloc(propertyType(t, b.consts[key]))
	b.emit(program.Instruction{Op: program.OpLoadComputedProperty, Outputs: []program.Variable{v}, Inputs: []program.Variable{obj, key}})
	b.define(v)

	return v
}

// StoreComputedProperty emits obj[key] = value. A key loaded from a string
// constant is recorded in the shape tracker.
func (b *Builder) StoreComputedProperty(value, key, obj program.Variable) {
	name, known := b.consts[key]
	b.requireObject("StoreComputedProperty", name, obj)
	b.emit(program.Instruction{Op: program.OpStoreComputedProperty, Inputs: []program.Variable{obj, key, value}})

	if known {
		b.recordProperty(obj, name)
	}
}

// LoadElement emits obj[index].
func (b *Builder) LoadElement(index int64, obj program.Variable) program.Variable {
	t := b.requireObject("LoadElement", "", obj)

	elem := types.Anything
	if t.Kind == types.KindTypedArray {
		elem = types.Integer
		if t.Element == types.ElementFloat32 || t.Element == types.ElementFloat64 {
			elem = types.Float
		}
	}

	v := b.alloc(elem)
	b.emit(program.Instruction{Op: program.OpLoadElement, Outputs: []program.Variable{v}, Inputs: []program.Variable{obj}, Int: index})
	b.define(v)

	return v
}

// StoreElement emits obj[index] = value.
func (b *Builder) StoreElement(value program.Variable, index int64, obj program.Variable) {
	b.requireObject("StoreElement", "", obj)
	b.emit(program.Instruction{Op: program.OpStoreElement, Inputs: []program.Variable{obj, value}, Int: index})
}

// CallFunction calls f with args.
func (b *Builder) CallFunction(f program.Variable, args ...program.Variable) program.Variable {
	t := b.types[f]
	if !t.Callable() {
		b.fail(tferrors.TypeMismatch("CallFunction", t.String(), "a function"))
	}

	ret := types.Anything
	if t.Signature != nil {
		ret = t.Signature.Returns
	}

	v := b.alloc(ret)
	b.emit(program.Instruction{Op: program.OpCallFunction, Outputs: []program.Variable{v}, Inputs: append([]program.Variable{f}, args...)})
	b.define(v)

	return v
}

// CallMethod emits obj.name(args...).
func (b *Builder) CallMethod(name string, obj program.Variable, args ...program.Variable) program.Variable {
	b.requireObject("CallMethod", name, obj)

	v := b.alloc(types.Anything)
	b.emit(program.Instruction{Op: program.OpCallMethod, Outputs: []program.Variable{v}, Inputs: append([]program.Variable{obj}, args...), Text: name})
	b.define(v)

	return v
}

// Construct emits new ctor(args...). Argument types are not checked; when
// args is nil, plausible arguments are generated from the constructor's
// signature.
func (b *Builder) Construct(ctor program.Variable, args []program.Variable) program.Variable {
	t := b.types[ctor]
	if t.Kind != types.KindConstructor {
		b.fail(tferrors.TypeMismatch("Construct", t.String(), "a constructor"))
	}

	if args == nil && t.Signature != nil {
		args = b.GenerateCallArguments(*t.Signature)
	}

	result := types.Object()
	if t.Signature != nil && t.Signature.Returns.Kind != types.KindAnything {
		result = t.Signature.Returns
	}

	v := b.alloc(result)
	b.emit(program.Instruction{Op: program.OpConstruct, Outputs: []program.Variable{v}, Inputs: append([]program.Variable{ctor}, args...)})
	b.define(v)

	return v
}

// Compare emits lhs cmp rhs.
func (b *Builder) Compare(lhs program.Variable, cmp program.Comparator, rhs program.Variable) program.Variable {
	v := b.alloc(types.Boolean)
	b.emit(program.Instruction{Op: program.OpCompare, Outputs: []program.Variable{v}, Inputs: []program.Variable{lhs, rhs}, Cmp: cmp})
	b.define(v)

	return v
}

// DefineFunction emits a function with len(sig.Params) parameters. body runs
// once, inside a nested scope; nothing it defines outlives the function. The
// returned variable becomes visible after the body.
func (b *Builder) DefineFunction(sig types.Signature, body func(params []program.Variable)) program.Variable {
	f := b.alloc(types.Function(sig))

	params := make([]program.Variable, len(sig.Params))
	for i, pt := range sig.Params {
		params[i] = b.alloc(pt)
	}

	b.emit(program.Instruction{Op: program.OpBeginFunction, Outputs: []program.Variable{f}, Inner: params})
	b.pushScope(params...)
	b.fnDepth++
	b.spendBudget()

	body(params)

	b.fnDepth--
	b.popScope()
	b.emit(program.Instruction{Op: program.OpEndFunction})
	b.define(f)

	return f
}

// Return emits a return from the innermost function.
func (b *Builder) Return(v program.Variable) {
	if b.fnDepth == 0 {
		b.fail(tferrors.TypeMismatch("Return", "top level", "a function body"))
	}

	b.emit(program.Instruction{Op: program.OpReturn, Inputs: []program.Variable{v}})
}

// ForLoop emits a counted loop. body runs exactly once, here, to emit the loop
// body; the iterations happen when the program executes.
func (b *Builder) ForLoop(start program.Variable, cmp program.Comparator, end program.Variable, op program.ArithOp, step program.Variable, body func(i program.Variable)) {
	i := b.alloc(types.Integer)

	b.emit(program.Instruction{
		Op:     program.OpBeginFor,
		Inputs: []program.Variable{start, end, step},
		Inner:  []program.Variable{i},
		Cmp:    cmp,
		Arith:  op,
	})
	b.pushScope(i)
	body(i)
	b.popScope()
	b.emit(program.Instruction{Op: program.OpEndFor})
}

// Repeat emits for (i = 0; i < n; i += 1) body.
func (b *Builder) Repeat(n int64, body func(i program.Variable)) {
	start := b.LoadInt(0)
	end := b.LoadInt(n)
	step := b.LoadInt(1)

	b.ForLoop(start, program.LessThan, end, program.Add, step, body)
}

// If emits a conditional. Both branches run once at synthesis time; otherwise
// may be nil.
func (b *Builder) If(cond program.Variable, then, otherwise func()) {
	b.emit(program.Instruction{Op: program.OpBeginIf, Inputs: []program.Variable{cond}})
	b.pushScope()
	then()
	b.popScope()

	if otherwise != nil {
		b.emit(program.Instruction{Op: program.OpBeginElse})
		b.pushScope()
		otherwise()
		b.popScope()
	}

	b.emit(program.Instruction{Op: program.OpEndIf})
}

// protoName assigns the prototype rather than adding an own property.
const protoName = "__proto__"

func (b *Builder) recordProperty(obj program.Variable, name string) {
	if name == protoName {
		return
	}

	b.shapes.Record(obj, name)

	t := b.types[obj]
	if t.Kind == types.KindPlainObject || t.Kind == types.KindHostObject {
		b.types[obj] = t.WithProperties(name)
	}

	if !slices.Contains(b.names, name) {
		b.names = append(b.names, name)
	}
}

// propertyType is the static type of obj.name.
func propertyType(t types.Type, name string) types.Type {
	switch name {
	case "length":
		if t.Kind == types.KindArray || t.Kind == types.KindTypedArray {
			return types.Integer
		}
	case "byteLength", "byteOffset":
		return types.Integer
	case "buffer":
		return types.ArrayBuffer
	}

	return types.Anything
}
