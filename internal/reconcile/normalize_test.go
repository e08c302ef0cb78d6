package reconcile

import "testing"

func TestNormalize(t *testing.T) {
	canonical := []string{
		"/mnt/proj/shotA/seq/001/file.ext",
		"/mnt/proj/shotX/seq/010/file.ext",
		"/mnt/backup/shotX/seq/010/file.ext",
	}

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "suffix match", raw: "/a/b/shotX/seq/010/file.ext", want: "/mnt/proj/shotX/seq/010/file.ext"},
		{name: "first match wins", raw: "/local/shotX/seq/010/file.ext", want: "/mnt/proj/shotX/seq/010/file.ext"},
		{name: "no match is identity", raw: "/a/b/shotZ/seq/999/file.ext", want: "/a/b/shotZ/seq/999/file.ext"},
		{name: "short path", raw: "seq/001/file.ext", want: "/mnt/proj/shotA/seq/001/file.ext"},
		{name: "empty path", raw: "", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.raw, canonical); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestNormalize_NoCanonicalPaths(t *testing.T) {
	raw := "/a/b/c/d/e"
	if got := Normalize(raw, nil); got != raw {
		t.Fatalf("Normalize(%q, nil) = %q, want identity", raw, got)
	}
}
