package catalog

import (
	"strconv"
	"strings"

	"github.com/dbsmedya/schemacheck/internal/sqlutil"
)

// QueryColumn is the name of the single json column the query returns.
const QueryColumn = "introspection"

// Query renders the extraction query: one CTE per stage in computation
// order, then a json_build_object over the document fields. Sequences are
// aggregated with coalesce(..., '[]'::json) so empty categories are [].
func (p *Plan) Query() string {
	var b strings.Builder

	b.WriteString("with\n")
	for i, c := range p.order {
		if i > 0 {
			b.WriteString(",\n\n")
		}
		writeCTE(&b, c)
	}

	b.WriteString("\nselect json_build_object(\n")
	for _, c := range p.Visible() {
		b.WriteString("  " + sqlutil.QuoteLiteral(c.Name) + ",\n")
		if c.Singleton {
			b.WriteString("  (select row_to_json(" + c.Name + ") from " + c.Name + "),\n\n")
			continue
		}
		b.WriteString("  (select coalesce((select json_agg(row_to_json(" + c.Name + ") order by " +
			strings.Join(c.SortKey, ", ") + ") from " + c.Name + "), '[]'::json)),\n\n")
	}

	b.WriteString(`  'catalog_by_oid',
  (
    select json_object_agg(oid::text, relname order by relname asc)
    from pg_catalog.pg_class
    where relnamespace = (
      select oid
      from pg_catalog.pg_namespace
      where nspname = 'pg_catalog'
    )
    and relkind = 'r'
  ),

  'current_user',
  current_user,
  'pg_version',
  version(),
  'introspection_version',
  ` + strconv.Itoa(IntrospectionVersion) + `
) as ` + QueryColumn + "\n")

	return b.String()
}

func writeCTE(b *strings.Builder, c *Category) {
	b.WriteString("  " + c.Name + " as (\n")

	var selects []string
	from := c.Source
	if !c.Hidden {
		from = "pg_catalog." + c.Relation
		if c.Identity {
			selects = append(selects, c.Relation+".oid as "+IdentityColumn)
		}
	}
	if len(c.Columns) > 0 {
		selects = append(selects, c.Columns...)
	} else {
		selects = append(selects, "*")
	}
	b.WriteString("    select " + strings.Join(selects, ", "))
	for _, d := range c.Derived {
		b.WriteString(",\n      " + d.Expr + " as " + sqlutil.QuoteIdentifier(d.Name))
	}
	b.WriteString("\n    from " + from + "\n")
	if c.Filter != nil {
		b.WriteString("    where " + c.Filter.SQL() + "\n")
	}
	b.WriteString("  )")
}
