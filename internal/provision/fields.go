package provision

import "github.com/conduction/solr-tenant-provision/internal/solr"

// metadataFields is the fixed catalog of schema fields every tenant
// collection must expose. It mirrors the register object metadata: identity,
// register/schema linkage, lifecycle timestamps and search surfaces.
// The table is defined once and only handed out as copies.
var metadataFields = [...]solr.Field{
	{Name: "id", Type: "string", Stored: true, Indexed: true, Required: true},
	{Name: "uuid", Type: "string", Stored: true, Indexed: true},
	{Name: "uri", Type: "string", Stored: true, Indexed: true},
	{Name: "register", Type: "string", Stored: true, Indexed: true, DocValues: true},
	{Name: "register_id", Type: "plong", Stored: true, Indexed: true, DocValues: true},
	{Name: "schema", Type: "string", Stored: true, Indexed: true, DocValues: true},
	{Name: "schema_id", Type: "plong", Stored: true, Indexed: true, DocValues: true},
	{Name: "schema_version", Type: "string", Stored: true, Indexed: true},
	{Name: "name", Type: "text_general", Stored: true, Indexed: true},
	{Name: "description", Type: "text_general", Stored: true, Indexed: true},
	{Name: "summary", Type: "text_general", Stored: true, Indexed: true},
	{Name: "text_content", Type: "text_general", Stored: false, Indexed: true, MultiValued: true},
	{Name: "owner", Type: "string", Stored: true, Indexed: true, DocValues: true},
	{Name: "organisation", Type: "string", Stored: true, Indexed: true, DocValues: true},
	{Name: "application", Type: "string", Stored: true, Indexed: true},
	{Name: "folder", Type: "string", Stored: true, Indexed: true},
	{Name: "created", Type: "pdate", Stored: true, Indexed: true, DocValues: true},
	{Name: "updated", Type: "pdate", Stored: true, Indexed: true, DocValues: true},
	{Name: "published", Type: "pdate", Stored: true, Indexed: true, DocValues: true},
	{Name: "depublished", Type: "pdate", Stored: true, Indexed: true},
	{Name: "deleted_at", Type: "pdate", Stored: true, Indexed: true},
	{Name: "locked", Type: "boolean", Stored: true, Indexed: true},
	{Name: "size", Type: "plong", Stored: true, Indexed: true, DocValues: true},
	{Name: "tags", Type: "string", Stored: true, Indexed: true, MultiValued: true},
	{Name: "relations", Type: "string", Stored: true, Indexed: true, MultiValued: true},
}

// FieldCatalog returns a copy of the metadata field catalog.
func FieldCatalog() []solr.Field {
	out := make([]solr.Field, len(metadataFields))
	copy(out, metadataFields[:])
	return out
}
