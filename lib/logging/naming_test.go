// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"testing"

	"github.com/bureau-foundation/logregator/lib/testutil"
)

const thisPackage = "github.com/bureau-foundation/logregator/lib/logging"

func TestNameFromSymbol(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
	}{
		{"main.main", "main.main"},
		{"example.com/app/worker.Run", "example.com/app/worker.Run"},
		{"example.com/app/worker.(*Pool).run", "example.com/app/worker.Pool.run"},
		{"example.com/app/worker.Pool.size", "example.com/app/worker.Pool.size"},
		{"example.com/app/worker.(*Pool).run.func1", "example.com/app/worker.Pool.run"},
		{"example.com/app/worker.run.func2.1", "example.com/app/worker.run"},
		{"example.com/app/worker.run.gowrap1", "example.com/app/worker.run"},
		{"example.com/app/worker.init", "example.com/app/worker"},
		{"example.com/app/worker.init.func3", "example.com/app/worker"},
		{"example.com/app/cache.(*Map[...]).Get", "example.com/app/cache.Map.Get"},
		{"example.com/app/cache.Lookup[go.shape.string]", "example.com/app/cache.Lookup"},
		{"example.com/app.v2/worker.Run", "example.com/app.v2/worker.Run"},
		{"", DefaultName},
	}
	for _, test := range tests {
		if got := nameFromSymbol(test.symbol); got != test.want {
			t.Errorf("nameFromSymbol(%q) = %q, want %q", test.symbol, got, test.want)
		}
	}
}

func TestCallerName(t *testing.T) {
	if got, want := CallerName(0), thisPackage+".TestCallerName"; got != want {
		t.Errorf("CallerName(0) = %q, want %q", got, want)
	}
	func() {
		if got, want := CallerName(0), thisPackage+".TestCallerName"; got != want {
			t.Errorf("CallerName(0) in a closure = %q, want %q", got, want)
		}
	}()
	if got, want := callerOfHelper(), thisPackage+".TestCallerName"; got != want {
		t.Errorf("CallerName(1) = %q, want %q", got, want)
	}
}

func callerOfHelper() string {
	return CallerName(1)
}

func TestHere(t *testing.T) {
	if got, want := Here().Name(), thisPackage+".TestHere"; got != want {
		t.Errorf("Here().Name() = %q, want %q", got, want)
	}
}

var packageLogger = Here()

func TestHereAtPackageLevel(t *testing.T) {
	if got := packageLogger.Name(); got != thisPackage {
		t.Errorf("package-level Here().Name() = %q, want %q", got, thisPackage)
	}
}

type widget struct{}

func TestForType(t *testing.T) {
	if got, want := ForType[widget](nil).Name(), thisPackage+".widget"; got != want {
		t.Errorf("ForType[widget](nil) = %q, want %q", got, want)
	}
	if got, want := ForType[*widget](nil).Name(), thisPackage+".widget"; got != want {
		t.Errorf("ForType[*widget](nil) = %q, want %q", got, want)
	}
	parent := Get(testutil.UniqueID("owner"))
	if got, want := ForType[*LineHandler](parent).Name(), parent.Name()+".LineHandler"; got != want {
		t.Errorf("ForType[*LineHandler](parent) = %q, want %q", got, want)
	}
	if got := ForType[int](nil).Name(); got != "int" {
		t.Errorf("ForType[int](nil) = %q, want \"int\"", got)
	}
}

func TestLazy(t *testing.T) {
	builds := 0
	name := testutil.UniqueID("lazy")
	lazy := Lazy(func() *Logger {
		builds++
		return Get(name)
	})
	if builds != 0 {
		t.Fatal("Lazy built the logger eagerly")
	}
	first, second := lazy(), lazy()
	if first != second || first.Name() != name {
		t.Errorf("Lazy returned %v and %v, want the same %q logger", first, second, name)
	}
	if builds != 1 {
		t.Errorf("build ran %d times, want 1", builds)
	}
}
