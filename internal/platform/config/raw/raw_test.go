package raw

import "testing"

func TestGet(t *testing.T) {
	t.Setenv("RAWT_LOG_LEVEL", "  debug ")
	t.Setenv("RAWT_BLANK", "   ")

	c := New().Prefix("RAWT_")
	if got := c.Prefix("LOG_").Get("LEVEL", "info"); got != "debug" {
		t.Fatalf("Get = %q", got)
	}
	if got := c.Get("BLANK", "x"); got != "x" {
		t.Fatalf("blank should fall back, got %q", got)
	}
	if _, ok := c.Lookup("MISSING"); ok {
		t.Fatal("missing key reported present")
	}
	if got := c.Prefix("A_").Prefix("B_").Key("C"); got != "RAWT_A_B_C" {
		t.Fatalf("Key = %q", got)
	}
}

func TestGetBool(t *testing.T) {
	c := New().Prefix("RAWB_")
	for v, want := range map[string]bool{
		"true": true, "1": true, "YES": true, "on": true,
		"false": false, "0": false, "no": false, "Off": false,
	} {
		t.Setenv("RAWB_V", v)
		if got := c.GetBool("V", !want); got != want {
			t.Errorf("GetBool(%q) = %v", v, got)
		}
	}

	t.Setenv("RAWB_V", "maybe")
	if !c.GetBool("V", true) || c.GetBool("V", false) {
		t.Error("garbage should return the default")
	}
}
