package escape

import "testing"

func TestXHTMLEscape(t *testing.T) {
	if got := XHTMLEscape(`<b>"x"</b>`); got != "&lt;b&gt;&#34;x&#34;&lt;/b&gt;" {
		t.Fatalf("got %q", got)
	}
}

func TestURLEscape(t *testing.T) {
	if got := URLEscape("a b/c"); got != "a+b%2Fc" {
		t.Fatalf("got %q", got)
	}
}

func TestJSONEncode(t *testing.T) {
	got, err := JSONEncode(map[string]interface{}{"a": 1})
	if err != nil {
		t.Fatal(err)
	}
	if got != `{"a":1}` {
		t.Fatalf("got %q", got)
	}
}

func TestSqueeze(t *testing.T) {
	if got := Squeeze("  a   b\n\tc  "); got != "a b c" {
		t.Fatalf("got %q", got)
	}
}

func TestLinkify(t *testing.T) {
	got := Linkify("see http://example.com/x for more")
	want := `see <a href="http://example.com/x">http://example.com/x</a> for more`
	if got != want {
		t.Fatalf("got %q", got)
	}
}

func TestDefaultsRegistersAllNames(t *testing.T) {
	d := Defaults()
	for _, name := range []string{"escape", "xhtml_escape", "url_escape", "json_encode", "squeeze", "linkify"} {
		if _, ok := d[name]; !ok {
			t.Errorf("Defaults() missing %q", name)
		}
	}
}
