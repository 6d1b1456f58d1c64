package resp

import "reflect"

// freer is implemented by container types whose ownership rules can't be
// expressed by a plain reflect.Kind switch (Optional, OrErr, OrFullErr, KV):
// they must only recurse into the variant or fields that DecodeAlloc
// actually populated.
type freer interface {
	free(a *Allocator)
}

// FreeReply releases every allocation that a's DecodeAlloc call produced
// reachable from dst, returning a to its pre-decode outstanding-allocation
// state (spec.md §8 property 3). dst should be the same pointer (or a
// pointer of the same shape) passed to DecodeAlloc.
//
// The ownership rules mirrored here are, intentionally, the mirror image of
// decodeAllocBody's allocation rules: a sequence frees each element then
// itself; an owned pointer frees what it points to then itself; a
// DynamicReply frees according to its populated variant; a Record recurses
// into every field. FixBuf, numeric primitives, booleans, and tags are
// never freed, because DecodeAlloc never allocates for them.
func FreeReply(dst any, a *Allocator) {
	if dst == nil || a == nil {
		return
	}
	if f, ok := dst.(freer); ok {
		f.free(a)
		return
	}

	switch t := dst.(type) {
	case *string:
		a.untrack()
		return
	case *[]byte:
		if *t != nil {
			a.freeBytes(*t)
		}
		return
	case *DynamicReply:
		freeDynamicReply(t, a)
		return
	}

	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return
	}
	freeReflect(v.Elem(), a)
}

func freeReflect(elem reflect.Value, a *Allocator) {
	switch elem.Kind() {
	case reflect.Ptr:
		if !elem.IsNil() {
			FreeReply(elem.Interface(), a)
			a.freeNode()
		}
	case reflect.Slice:
		if elem.IsNil() {
			return
		}
		for i := 0; i < elem.Len(); i++ {
			freeReflect(elem.Index(i), a)
		}
		a.freeNode()
	case reflect.Map:
		if elem.IsNil() {
			return
		}
		for _, k := range elem.MapKeys() {
			freeReflectValue(k, a)
			freeReflectValue(elem.MapIndex(k), a)
		}
		a.freeNode()
	case reflect.Struct:
		if elem.CanAddr() {
			switch p := elem.Addr().Interface().(type) {
			case freer:
				p.free(a)
				return
			case *DynamicReply:
				freeDynamicReply(p, a)
				return
			}
		}
		for i := 0; i < elem.NumField(); i++ {
			f := elem.Field(i)
			if !f.CanAddr() || !elem.Type().Field(i).IsExported() {
				continue
			}
			FreeReply(f.Addr().Interface(), a)
		}
	case reflect.Array:
		for i := 0; i < elem.Len(); i++ {
			freeReflect(elem.Index(i), a)
		}
	case reflect.String:
		a.untrack()
	default:
		// numeric primitives, bools: nothing owned.
	}
}

// freeReflectValue frees a reflect.Value that is not addressable (e.g. a
// map key or value obtained via MapIndex/MapKeys) by copying it into an
// addressable temporary first.
func freeReflectValue(v reflect.Value, a *Allocator) {
	tmp := reflect.New(v.Type())
	tmp.Elem().Set(v)
	freeReflect(tmp.Elem(), a)
}

func freeDynamicReply(d *DynamicReply, a *Allocator) {
	switch d.Kind {
	case ReplyBigNumber, ReplyString:
		if d.Str != nil {
			a.freeBytes(d.Str)
		}
		if d.BigNumber != nil {
			a.freeBytes(d.BigNumber)
		}
	case ReplyList, ReplySet:
		elems := d.List
		if d.Kind == ReplySet {
			elems = d.Set
		}
		for i := range elems {
			freeDynamicReply(&elems[i], a)
		}
		a.freeNode()
	case ReplyMap:
		for i := range d.Map {
			freeDynamicReply(&d.Map[i].Key, a)
			freeDynamicReply(&d.Map[i].Value, a)
		}
		a.freeNode()
	}
}

func (o *Optional[T]) free(a *Allocator) {
	if o.Valid {
		FreeReply(&o.Val, a)
	}
}

func (o *OrErr[T]) free(a *Allocator) {
	if o.kind == orErrOk {
		FreeReply(&o.val, a)
	}
}

func (o *OrFullErr[T]) free(a *Allocator) {
	switch o.kind {
	case orErrOk:
		FreeReply(&o.val, a)
	case orErrErr:
		a.untrack()
	}
}

func (kv *KV[K, V]) free(a *Allocator) {
	FreeReply(&kv.Key, a)
	FreeReply(&kv.Value, a)
}

func (t *Tuple[T]) free(a *Allocator) {
	FreeReply(&t.Val, a)
}
