package tomldoc

import (
	"errors"
	"reflect"
	"testing"
)

const cargoFixture = `# deps
[package]
name = "app"

[dependencies]
serde = "1" # keep me
tokio = { version = "1", features = ["rt"] }

# trailing
[dev-dependencies]
`

func mustParse(t *testing.T, src string) *Document {
	t.Helper()
	doc, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return doc
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("a = \n")); err == nil {
		t.Fatal("expected error for invalid TOML, got nil")
	}
}

func TestLookup(t *testing.T) {
	doc := mustParse(t, cargoFixture)

	tests := []struct {
		path []string
		want string
		ok   bool
	}{
		{[]string{"package", "name"}, `"app"`, true},
		{[]string{"dependencies", "serde"}, `"1"`, true},
		{[]string{"dependencies", "tokio"}, `{ version = "1", features = ["rt"] }`, true},
		{[]string{"dependencies", "missing"}, "", false},
		{[]string{"dev-dependencies", "serde"}, "", false},
	}
	for _, tt := range tests {
		e, ok := doc.Lookup(tt.path...)
		if ok != tt.ok {
			t.Errorf("Lookup(%v) ok = %v, want %v", tt.path, ok, tt.ok)
			continue
		}
		if e.Raw != tt.want {
			t.Errorf("Lookup(%v).Raw = %q, want %q", tt.path, e.Raw, tt.want)
		}
	}
}

func TestLookup_DottedAndQuoted(t *testing.T) {
	doc := mustParse(t, "dependencies.serde = \"1\"\n\n[t]\n\"my.key\" = 2\n")

	if e, ok := doc.Lookup("dependencies", "serde"); !ok || e.Raw != `"1"` {
		t.Errorf("dotted Lookup = %q, %v", e.Raw, ok)
	}
	if doc.HasTable("dependencies") {
		t.Error("HasTable(dependencies) = true for a dotted key, want false")
	}
	if e, ok := doc.Lookup("t", "my.key"); !ok || e.Raw != "2" {
		t.Errorf("quoted Lookup = %q, %v", e.Raw, ok)
	}
}

func TestLookup_MultilineArray(t *testing.T) {
	src := "[dependencies]\nx = [\n  \"a\", # c\n  \"b\",\n]\ny = 1\n"
	doc := mustParse(t, src)

	e, ok := doc.Lookup("dependencies", "x")
	if !ok {
		t.Fatal("x not found")
	}
	want := "[\n  \"a\", # c\n  \"b\",\n]"
	if e.Raw != want {
		t.Errorf("Raw = %q, want %q", e.Raw, want)
	}
	v, err := e.Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if !reflect.DeepEqual(v, []any{"a", "b"}) {
		t.Errorf("Value() = %#v", v)
	}
	if _, ok := doc.Lookup("dependencies", "y"); !ok {
		t.Error("y not found after multi-line array")
	}
}

func TestHasChildren(t *testing.T) {
	doc := mustParse(t, "[dependencies.serde]\nversion = \"1\"\n\n[dependencies]\nlog = \"0.4\"\n")

	if !doc.HasTable("dependencies", "serde") {
		t.Error("HasTable(dependencies.serde) = false")
	}
	if !doc.HasChildren("dependencies", "serde") {
		t.Error("HasChildren(dependencies.serde) = false")
	}
	if doc.HasChildren("dependencies", "log") {
		t.Error("HasChildren(dependencies.log) = true for a plain value")
	}
}

func TestSetValue_PreservesLine(t *testing.T) {
	doc := mustParse(t, cargoFixture)

	e, _ := doc.Lookup("dependencies", "serde")
	if err := doc.SetValue(e, `{ version = "1", features = ["derive"] }`); err != nil {
		t.Fatalf("SetValue() error = %v", err)
	}

	want := `# deps
[package]
name = "app"

[dependencies]
serde = { version = "1", features = ["derive"] } # keep me
tokio = { version = "1", features = ["rt"] }

# trailing
[dev-dependencies]
`
	if got := string(doc.Bytes()); got != want {
		t.Errorf("document = %q, want %q", got, want)
	}
}

func TestSetValue_Stale(t *testing.T) {
	doc := mustParse(t, cargoFixture)

	e, _ := doc.Lookup("dependencies", "serde")
	if err := doc.SetValue(e, `"2"`); err != nil {
		t.Fatal(err)
	}
	if err := doc.SetValue(e, `"3"`); !errors.Is(err, ErrStaleEntry) {
		t.Errorf("SetValue(stale) error = %v, want ErrStaleEntry", err)
	}
}

func TestSetValue_RejectsInvalid(t *testing.T) {
	doc := mustParse(t, cargoFixture)
	before := string(doc.Bytes())

	e, _ := doc.Lookup("dependencies", "serde")
	if err := doc.SetValue(e, `{ version = `); err == nil {
		t.Fatal("expected error for invalid replacement, got nil")
	}
	if string(doc.Bytes()) != before {
		t.Error("document changed after rejected edit")
	}
}

func TestInsert_AfterLastEntry(t *testing.T) {
	doc := mustParse(t, cargoFixture)

	if err := doc.Insert([]string{"dependencies"}, "log", `"0.4"`); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	want := `# deps
[package]
name = "app"

[dependencies]
serde = "1" # keep me
tokio = { version = "1", features = ["rt"] }
log = "0.4"

# trailing
[dev-dependencies]
`
	if got := string(doc.Bytes()); got != want {
		t.Errorf("document = %q, want %q", got, want)
	}
}

func TestInsert_EmptyTableWithoutNewline(t *testing.T) {
	doc := mustParse(t, "[sparks]")

	if err := doc.Insert([]string{"sparks"}, "demo", `"https://example.com/demo"`); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	want := "[sparks]\ndemo = \"https://example.com/demo\"\n"
	if got := string(doc.Bytes()); got != want {
		t.Errorf("document = %q, want %q", got, want)
	}
}

func TestInsert_MissingTable(t *testing.T) {
	doc := mustParse(t, cargoFixture)
	if err := doc.Insert([]string{"sparks"}, "demo", `"x"`); err == nil {
		t.Fatal("expected error for missing table, got nil")
	}
}

func TestEnsureTable(t *testing.T) {
	doc := mustParse(t, "[settings]\nenvironment = \"dev\"")

	added, err := doc.EnsureTable("sparks")
	if err != nil {
		t.Fatalf("EnsureTable() error = %v", err)
	}
	if !added {
		t.Error("EnsureTable() added = false, want true")
	}
	want := "[settings]\nenvironment = \"dev\"\n\n[sparks]\n"
	if got := string(doc.Bytes()); got != want {
		t.Errorf("document = %q, want %q", got, want)
	}

	added, err = doc.EnsureTable("sparks")
	if err != nil || added {
		t.Errorf("second EnsureTable() = %v, %v, want false, nil", added, err)
	}
}

func TestEntries_DocumentOrder(t *testing.T) {
	doc := mustParse(t, "[sparks]\nzeta = \"z\"\nalpha = \"a\"\n\n[sparks.nested]\nx = 1\n")

	entries := doc.Entries("sparks")
	var names []string
	for _, e := range entries {
		names = append(names, e.Path[len(e.Path)-1])
	}
	if !reflect.DeepEqual(names, []string{"zeta", "alpha"}) {
		t.Errorf("Entries() names = %v, want [zeta alpha]", names)
	}
}
