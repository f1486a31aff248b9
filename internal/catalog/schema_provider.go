package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/canonica-labs/lakequery/internal/ports"
)

// catalogLookup is the shared lookup both adapters below use.
type catalogLookup struct {
	registry        *CatalogRegistry
	catalogName     string
	defaultDatabase string
}

func (p catalogLookup) lookup(ctx context.Context, table string) (*TableMetadata, error) {
	cat, ok := p.registry.Get(p.catalogName)
	if !ok {
		return nil, fmt.Errorf("catalog: %q is not registered", p.catalogName)
	}
	database, name := p.splitTable(table)
	return cat.GetTable(ctx, database, name)
}

func (p catalogLookup) splitTable(table string) (database, name string) {
	if before, after, ok := strings.Cut(table, "."); ok {
		return before, after
	}
	return p.defaultDatabase, table
}

// SchemaProvider adapts a CatalogRegistry entry into ports.SchemaProvider,
// so the validator (internal/validator) can check table/column existence
// against a real external catalog (Hive/Glue/Unity) instead of the
// gateway's own VirtualTable registrations, which carry no column-level
// schema.
type SchemaProvider struct{ catalogLookup }

var _ ports.SchemaProvider = (*SchemaProvider)(nil)

// NewSchemaProvider builds a SchemaProvider reading from the named catalog
// (registered via registry.Register) and qualifying bare table names with
// defaultDatabase.
func NewSchemaProvider(registry *CatalogRegistry, catalogName, defaultDatabase string) *SchemaProvider {
	return &SchemaProvider{catalogLookup{registry: registry, catalogName: catalogName, defaultDatabase: defaultDatabase}}
}

// Get implements ports.SchemaProvider, returning nil when the table is not
// present in the catalog (a lookup error is treated as "does not exist"
// rather than surfaced, matching TableExistsRule's nil-means-missing
// contract — a catalog outage should read as a validation rejection, not
// a panic deep in a rule).
func (p *SchemaProvider) Get(ctx context.Context, table string) (map[string]ports.ColumnSchema, error) {
	meta, err := p.lookup(ctx, table)
	if err != nil || meta == nil {
		return nil, nil
	}
	cols := make(map[string]ports.ColumnSchema, len(meta.Columns))
	for _, c := range meta.Columns {
		cols[c.Name] = ports.ColumnSchema{Type: c.Type, Nullable: c.Nullable}
	}
	return cols, nil
}

// IndexProvider adapts the same catalog into ports.IndexProvider. Catalogs
// in this package carry no index metadata, only partition columns, so
// each table's partition key (if any) is reported as a single non-unique
// index — real signal for the IndexUsage rule rather than an empty stub.
type IndexProvider struct{ catalogLookup }

var _ ports.IndexProvider = (*IndexProvider)(nil)

// NewIndexProvider builds an IndexProvider over the same catalog/database
// pair as NewSchemaProvider.
func NewIndexProvider(registry *CatalogRegistry, catalogName, defaultDatabase string) *IndexProvider {
	return &IndexProvider{catalogLookup{registry: registry, catalogName: catalogName, defaultDatabase: defaultDatabase}}
}

// Get implements ports.IndexProvider.
func (p *IndexProvider) Get(ctx context.Context, table string) (map[string]ports.IndexDescriptor, error) {
	meta, err := p.lookup(ctx, table)
	if err != nil || meta == nil || len(meta.Partitions) == 0 {
		return nil, nil
	}
	return map[string]ports.IndexDescriptor{
		"partition": {Columns: meta.Partitions, Unique: false},
	}, nil
}
