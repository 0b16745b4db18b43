package strings

import "testing"

func TestIfEmpty(t *testing.T) {
	def := []string{"GET"}
	if got := IfEmpty(nil, def); len(got) != 1 || got[0] != "GET" {
		t.Fatalf("got %v", got)
	}
	if got := IfEmpty([]string{"POST", "PUT"}, def); len(got) != 2 {
		t.Fatalf("got %v", got)
	}
}

func TestMustPrefix(t *testing.T) {
	for in, want := range map[string]string{
		"metrics":         "/metrics",
		" /search-index/": "/search-index",
		"//wm//":          "/wm",
	} {
		if got := MustPrefix(in); got != want {
			t.Errorf("%q: got %q want %q", in, got, want)
		}
	}

	for _, bad := range []string{"", " / "} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("%q should panic", bad)
				}
			}()
			MustPrefix(bad)
		}()
	}
}

func TestMustString(t *testing.T) {
	if MustString("pipeline", "name") != "pipeline" {
		t.Fatal("value should pass through")
	}
	defer func() {
		if r := recover(); r != "module name is required" {
			t.Fatalf("panic %v", r)
		}
	}()
	MustString("  ", "module name")
}
