package rname

import "github.com/benchdrive/govisa/pkg/govisa/attr"

// ResourceClass returns the resource-class token of a Record, exactly as it
// would appear in its rendered form. It is a direct field access; the
// function exists so callers outside this package classify a Record without
// reaching into ResourceClass directly.
func ResourceClass(r Record) attr.ResourceClass {
	return r.ResourceClass
}

// IsMessageBased reports whether a Record's (InterfaceType, ResourceClass)
// pair denotes a message-based resource suitable for pkg/govisa/instrument's
// MessageBased wrapper, as opposed to a register-based or backplane resource.
func IsMessageBased(r Record) bool {
	switch r.ResourceClass {
	case attr.ClassINSTR, attr.ClassSOCKET:
		return true
	default:
		return false
	}
}
