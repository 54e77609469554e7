package vm

import (
	"fmt"

	"lattice/pkg/value"
)

// getProperty implements OpLoadProperty's `obj[name]` read (spec.md
// §3.2/§3.3) plus two synthetic views the compiler's desugared for-of/
// for-in loops rely on (pkg/compiler's compileForOf/compileForIn):
// "length" and "__keys__" on arrays, and "__keys__" on plain objects.
func (vm *VM) getProperty(obj value.Value, name string) (value.Value, error) {
	if obj.IsNullish() {
		return value.Undefined, vm.typeError(fmt.Sprintf("Cannot read properties of %s (reading '%s')", toStr(obj), name))
	}
	if obj.IsString() {
		return vm.getStringProperty(obj.AsString(), name), nil
	}
	kind, ok := obj.HeapKind()
	if !ok {
		return value.Undefined, nil
	}
	switch kind {
	case value.KindArray:
		arr := obj.AsArray()
		switch name {
		case "length":
			return value.Int(int32(arr.Length())), nil
		case "__keys__":
			keys := make([]value.Value, 0, arr.Length())
			for i := 0; i < arr.Length(); i++ {
				keys = append(keys, value.String(fmt.Sprintf("%d", i)))
			}
			for _, k := range arr.Props().OwnKeys() {
				keys = append(keys, value.String(k))
			}
			return vm.Heap.NewArrayFrom(value.Undefined, keys), nil
		default:
			if v, ok := arr.Props().GetOwn(name); ok {
				return v, nil
			}
			return value.Undefined, nil
		}
	case value.KindObject:
		po := obj.AsPlainObject()
		if name == "__keys__" {
			keys := make([]value.Value, 0, len(po.OwnKeys()))
			for _, k := range po.OwnKeys() {
				keys = append(keys, value.String(k))
			}
			return vm.Heap.NewArrayFrom(value.Undefined, keys), nil
		}
		if v, ok := po.GetOwn(name); ok {
			return v, nil
		}
		return value.Undefined, nil
	case value.KindClosure:
		cd := obj.AsClosure()
		if name == "name" {
			return value.String(cd.Name), nil
		}
		return value.Undefined, nil
	case value.KindFunction:
		fn := obj.AsFunction()
		if name == "name" {
			return value.String(fn.Name), nil
		}
		if name == "prototype" {
			return fn.Prototype, nil
		}
		if v, ok := fn.Props().GetOwn(name); ok {
			return v, nil
		}
		return value.Undefined, nil
	case value.KindError:
		e := obj.AsError()
		switch name {
		case "name":
			return value.String(e.Name), nil
		case "message":
			return value.String(e.Message), nil
		}
		if v, ok := e.Props().GetOwn(name); ok {
			return v, nil
		}
		return value.Undefined, nil
	default:
		return value.Undefined, nil
	}
}

// getStringProperty implements the WTF-16-at-the-boundary decision's
// surface on string values: `.length` in UTF-16 code units, and the
// `charAt`/`codePointAt`/`normalize` methods bound as native functions
// that read `this` from the call's own `this` argument rather than
// capturing the receiver here, so one function value serves every string.
func (vm *VM) getStringProperty(s string, name string) value.Value {
	switch name {
	case "length":
		return value.Int(int32(value.UTF16Length(s)))
	case "charAt":
		return vm.Heap.NewNativeFunction("charAt", func(this value.Value, args []value.Value, _ value.Value) (value.Value, error) {
			idx := 0
			if len(args) > 0 {
				idx = int(toNumber(args[0]))
			}
			if ch, ok := value.UTF16CharAt(toStr(this), idx); ok {
				return value.String(ch), nil
			}
			return value.String(""), nil
		})
	case "codePointAt":
		return vm.Heap.NewNativeFunction("codePointAt", func(this value.Value, args []value.Value, _ value.Value) (value.Value, error) {
			idx := 0
			if len(args) > 0 {
				idx = int(toNumber(args[0]))
			}
			if cp, ok := value.UTF16CodePointAt(toStr(this), idx); ok {
				return value.Int(int32(cp)), nil
			}
			return value.Undefined, nil
		})
	case "normalize":
		return vm.Heap.NewNativeFunction("normalize", func(this value.Value, args []value.Value, _ value.Value) (value.Value, error) {
			form := "NFC"
			if len(args) > 0 {
				form = toStr(args[0])
			}
			result, ok := value.Normalize(toStr(this), form)
			if !ok {
				return value.Undefined, vm.rangeError(fmt.Sprintf("invalid normalization form %q", form))
			}
			return value.String(result), nil
		})
	default:
		return value.Undefined
	}
}

// setProperty implements OpStoreProperty's `obj[name] = v` write.
func (vm *VM) setProperty(obj value.Value, name string, v value.Value) error {
	kind, ok := obj.HeapKind()
	if !ok {
		// Writing a property of a primitive is a silent no-op in
		// non-strict JS; this core has no strict-mode flag (spec.md §1
		// scopes directive-driven strictness out).
		return nil
	}
	switch kind {
	case value.KindArray:
		obj.AsArray().SetProp(name, v)
	case value.KindObject:
		obj.AsPlainObject().SetOwn(name, v)
	case value.KindFunction:
		fn := obj.AsFunction()
		if name == "prototype" {
			fn.Prototype = v
			return nil
		}
		fn.Props().SetOwn(name, v)
	case value.KindError:
		obj.AsError().Props().SetOwn(name, v)
	default:
		return vm.typeError(fmt.Sprintf("cannot set property %q on %s", name, toStr(obj)))
	}
	return nil
}

// getIndex implements OpGetIndex's computed `obj[expr]` read: numeric
// keys address dense array elements/string characters, any other key
// coerces to a string and falls back to getProperty.
func (vm *VM) getIndex(obj, idx value.Value) (value.Value, error) {
	if obj.IsString() {
		if idx.IsNumber() {
			ch, ok := value.UTF16CharAt(obj.AsString(), int(toNumber(idx)))
			if !ok {
				return value.Undefined, nil
			}
			return value.String(ch), nil
		}
		return vm.getProperty(obj, toStr(idx))
	}
	if kind, ok := obj.HeapKind(); ok && kind == value.KindArray && idx.IsNumber() {
		return obj.AsArray().Get(int(toNumber(idx))), nil
	}
	return vm.getProperty(obj, toStr(idx))
}

// setIndex implements OpSetIndex's computed `obj[expr] = v` write.
func (vm *VM) setIndex(obj, idx, v value.Value) error {
	if kind, ok := obj.HeapKind(); ok && kind == value.KindArray && idx.IsNumber() {
		obj.AsArray().Set(int(toNumber(idx)), v)
		return nil
	}
	return vm.setProperty(obj, toStr(idx), v)
}
