// Package types implements the engine's type registry: the erased
// Partition payload, its TypeTag, and the VecOps adapter that lets
// the planner and runtime move partitions around without knowing
// their element type.
package types

import (
	"fmt"
	"reflect"

	beamerrors "github.com/beamforge/beamforge/pkg/errors"
)

// TypeTag identifies the concrete Go type a Partition's payload was
// built from. Two tags compare equal iff their underlying
// reflect.Type is identical; there is no structural equivalence
// check, matching the engine's "same concrete type, not same shape"
// rule.
type TypeTag struct {
	rtype reflect.Type
}

// TagOf derives the TypeTag for T.
func TagOf[T any]() TypeTag {
	var zero T
	return TypeTag{rtype: reflect.TypeOf(&zero).Elem()}
}

// String returns the tag's Go type name, for error messages and the
// planner's explain output.
func (t TypeTag) String() string {
	if t.rtype == nil {
		return "<untyped>"
	}
	return t.rtype.String()
}

// Equal reports whether two tags describe the same concrete type.
func (t TypeTag) Equal(other TypeTag) bool {
	return t.rtype == other.rtype
}

func (t TypeTag) reflectType() reflect.Type {
	return t.rtype
}

// CheckAssignable returns an InternalTypeMismatch error if payload is
// nil or its dynamic type is not tag's type, and nil otherwise. The
// typed accessor AsSlice in partition.go uses it to build its error
// when a payload is not the requested slice type.
func CheckAssignable(tag TypeTag, payload any) error {
	if payload == nil {
		return beamerrors.NewInternalTypeMismatch(tag.String(), "<nil>")
	}
	if reflect.TypeOf(payload) != tag.reflectType() {
		return beamerrors.NewInternalTypeMismatch(tag.String(), fmt.Sprintf("%T", payload))
	}
	return nil
}
