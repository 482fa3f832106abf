package pathutil

import (
	"path/filepath"
	"testing"
)

func TestJoinStrip_RoundTrip(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "lib1")

	for _, key := range []string{"a.pdf", "b/c.pdf", "deep/er/file.txt"} {
		abs := Join(root, key)
		got, inside := Strip(root, abs)
		if !inside {
			t.Fatalf("Strip(%q, %q) reported outside root", root, abs)
		}
		if got != key {
			t.Errorf("round trip of %q yielded %q", key, got)
		}
	}
}

func TestStrip_OutsideRoot(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "lib1")
	outside := filepath.Join(string(filepath.Separator), "lib2", "a.pdf")

	if _, inside := Strip(root, outside); inside {
		t.Errorf("expected %q to be outside %q", outside, root)
	}
	if _, inside := Strip(root, filepath.Dir(root)); inside {
		t.Errorf("expected parent of root to be outside root")
	}
}

func TestIsHidden(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"a.pdf", false},
		{"b/c.pdf", false},
		{".metadata/a.pdf.json", true},
		{"b/.metadata/c.pdf.json", true},
		{"b/.hidden", true},
		{"visible/file", false},
		{".", false},
		{"..", false},
	}
	for _, tc := range cases {
		if got := IsHidden(tc.path); got != tc.want {
			t.Errorf("IsHidden(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestLeaf(t *testing.T) {
	if got := Leaf("b/c.pdf"); got != "c.pdf" {
		t.Errorf("Leaf(b/c.pdf) = %q", got)
	}
}
