package lspconn

import "testing"

func TestLanguageIDForPath(t *testing.T) {
	cases := map[string]string{
		"/ws/src/main/Foo.scala": "scala",
		"/ws/Cargo.rs":           "rust",
		"/ws/app.ts":             "typescript",
		"/ws/app.js":             "javascript",
		"/ws/main.py":            "python",
		"/ws/main.go":            "go",
		"/ws/README.md":          "plaintext",
		"/ws/noext":              "plaintext",
	}
	for path, want := range cases {
		if got := LanguageIDForPath(path); got != want {
			t.Errorf("LanguageIDForPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestPathToURIAndBack(t *testing.T) {
	path := "/home/user/workspace/src/main/scala/Foo.scala"
	uri := PathToURI(path)
	if uri != "file:///home/user/workspace/src/main/scala/Foo.scala" {
		t.Fatalf("unexpected uri: %s", uri)
	}

	got, ok := URIToPath(uri)
	if !ok {
		t.Fatal("URIToPath reported not-a-file-uri")
	}
	if got != path {
		t.Fatalf("round trip mismatch: got %s, want %s", got, path)
	}
}

func TestURIToPathRejectsNonFileScheme(t *testing.T) {
	_, ok := URIToPath("https://example.com/Foo.scala")
	if ok {
		t.Fatal("expected non-file URI to be rejected")
	}
}

func TestPathToURIEscapesSpaces(t *testing.T) {
	uri := PathToURI("/home/user/my project/Foo.scala")
	const want = "file:///home/user/my%20project/Foo.scala"
	if uri != want {
		t.Fatalf("got %s, want %s", uri, want)
	}
	path, ok := URIToPath(uri)
	if !ok || path != "/home/user/my project/Foo.scala" {
		t.Fatalf("round trip mismatch: got %q, ok=%v", path, ok)
	}
}
