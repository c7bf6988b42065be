package scrape

import "testing"

func TestCleanDescriptionPlainTextPassthrough(t *testing.T) {
	in := "Just a plain description.\nTwo lines."
	if got := CleanDescription(in); got != in {
		t.Fatalf("got %q, want input unchanged", got)
	}
}

func TestCleanDescriptionStripsMarkup(t *testing.T) {
	in := "<div><h2>About</h2><p>We build <b>tools</b>.</p><script>alert(1)</script></div>"
	got := CleanDescription(in)
	want := "About\nWe build tools."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCleanDescriptionUnescapesEntities(t *testing.T) {
	got := CleanDescription("&lt;p&gt;Pay: &amp;gt; market&lt;/p&gt;")
	if got != "Pay: > market" {
		t.Fatalf("got %q", got)
	}
}

func TestCleanDescriptionListItems(t *testing.T) {
	got := CleanDescription("<ul><li>Go</li><li>Redis</li></ul>")
	want := "Go\nRedis"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestMaybeHTML(t *testing.T) {
	if MaybeHTML("no markup here") {
		t.Error("plain text flagged as HTML")
	}
	if !MaybeHTML("<p>x</p>") {
		t.Error("tag not detected")
	}
	if !MaybeHTML("&lt;p&gt;x&lt;/p&gt;") {
		t.Error("escaped tag not detected")
	}
}
