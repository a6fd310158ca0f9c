// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"reflect"
	"runtime"
	"strings"
	"sync"
)

// DefaultName is used when the caller cannot be identified.
const DefaultName = "<default>"

// CallerName returns a logger name for the function skip frames above
// the caller of CallerName: "<package path>.<function>", or just the
// package path when called during package initialization. Methods are
// named "<Type>.<Method>" and closures take the name of the function
// that encloses them.
func CallerName(skip int) string {
	pc, _, _, ok := runtime.Caller(skip + 1)
	if !ok {
		return DefaultName
	}
	function := runtime.FuncForPC(pc)
	if function == nil {
		return DefaultName
	}
	return nameFromSymbol(function.Name())
}

// nameFromSymbol maps a runtime symbol such as
// "example.com/app/worker.(*Pool).run.func1" to
// "example.com/app/worker.Pool.run".
func nameFromSymbol(symbol string) string {
	if symbol == "" {
		return DefaultName
	}
	symbol = stripTypeArguments(symbol)
	packageEnd := strings.LastIndexByte(symbol, '/') + 1
	dot := strings.IndexByte(symbol[packageEnd:], '.')
	if dot < 0 {
		return symbol
	}
	packagePath := symbol[:packageEnd+dot]
	var parts []string
	for _, part := range strings.Split(symbol[packageEnd+dot+1:], ".") {
		part = strings.TrimSuffix(strings.TrimPrefix(part, "(*"), ")")
		part = strings.TrimSuffix(strings.TrimPrefix(part, "("), ")")
		if part == "init" && len(parts) == 0 {
			// Package initialization: name the logger after the package.
			break
		}
		if isClosureName(part) {
			break
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return packagePath
	}
	return packagePath + "." + strings.Join(parts, ".")
}

// stripTypeArguments removes "[...]" from generic symbols, whose type
// arguments may themselves contain dots.
func stripTypeArguments(symbol string) string {
	var builder strings.Builder
	depth := 0
	for _, r := range symbol {
		switch {
		case r == '[':
			depth++
		case r == ']' && depth > 0:
			depth--
		case depth == 0:
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

// isClosureName matches the compiler's names for anonymous functions
// ("func1", "gowrap2") and their numeric suffixes ("1").
func isClosureName(part string) bool {
	trimmed := strings.TrimLeft(part, "0123456789")
	if trimmed == "" {
		return true
	}
	for _, prefix := range []string{"func", "gowrap", "deferwrap"} {
		if rest, ok := strings.CutPrefix(part, prefix); ok && rest != "" && strings.TrimLeft(rest, "0123456789") == "" {
			return true
		}
	}
	return false
}

// Here returns the logger named after the calling function, or after
// the calling package when used in a package-level variable
// initializer.
func Here() *Logger {
	return Get(CallerName(1))
}

// ForType returns the logger for type T: a child of parent named after
// the type, or "<package path>.<Type>" when parent is nil. Pointer
// types are named after their element type.
func ForType[T any](parent *Logger) *Logger {
	typ := reflect.TypeFor[T]()
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	name := typ.Name()
	if name == "" {
		name = typ.String()
	}
	if parent != nil {
		return parent.Child(name)
	}
	if typ.PkgPath() == "" {
		return Get(name)
	}
	return Get(typ.PkgPath() + "." + name)
}

// Lazy defers building a logger until it is first needed. It is meant
// for package-level declarations whose name or parent is not known
// yet at initialization time:
//
//	var log = logging.Lazy(func() *logging.Logger {
//	    return logging.ForType[Pool](nil)
//	})
//
//	func (p *Pool) run() { log().Info("running") }
func Lazy(build func() *Logger) func() *Logger {
	return sync.OnceValue(build)
}
