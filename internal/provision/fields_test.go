package provision

import "testing"

func TestFieldCatalogIsACopy(t *testing.T) {
	a := FieldCatalog()
	a[0].Name = "mutated"

	b := FieldCatalog()
	if b[0].Name != "id" {
		t.Fatalf("catalog mutated through returned slice: %q", b[0].Name)
	}
}

func TestFieldCatalogCoreFields(t *testing.T) {
	byName := map[string]int{}
	for i, f := range FieldCatalog() {
		if _, dup := byName[f.Name]; dup {
			t.Fatalf("duplicate field %q", f.Name)
		}
		byName[f.Name] = i
	}

	catalog := FieldCatalog()
	id := catalog[byName["id"]]
	if !id.Required || !id.Stored || !id.Indexed {
		t.Fatalf("id field flags wrong: %+v", id)
	}

	text := catalog[byName["text_content"]]
	if text.Stored || !text.MultiValued || text.Type != "text_general" {
		t.Fatalf("text_content must be unstored multi-valued text: %+v", text)
	}

	for _, name := range []string{"register", "schema", "created", "updated", "published", "tags", "relations"} {
		if _, ok := byName[name]; !ok {
			t.Fatalf("catalog missing field %q", name)
		}
	}
}
