// Package catalog declares the catalog categories of a schema snapshot and
// turns the declarations into the extraction query. Each category names its
// pg_catalog source, the derived columns rendered by catalog functions, the
// membership rule over its parent stages and its sort key.
package catalog

// IdentityColumn is the oid alias selected for categories with an identity.
const IdentityColumn = "_id"

// IntrospectionVersion identifies the document shape. Bump it whenever a
// field is added, removed or reinterpreted.
const IntrospectionVersion = 1

// Stage names referenced by rules.
const (
	StageDatabase       = "database"
	StageNamespaces     = "namespaces"
	StageUserNamespaces = "user_namespaces"
	StageClasses        = "classes"
	StageTables         = "tables"
)

// Top-level document fields that are not categories.
const (
	FieldCatalogByOID         = "catalog_by_oid"
	FieldCurrentUser          = "current_user"
	FieldPGVersion            = "pg_version"
	FieldIntrospectionVersion = "introspection_version"
)

// Derived is an extra column computed by the database.
type Derived struct {
	Name string
	Expr string
}

// Category declares one stage of the snapshot.
type Category struct {
	Name      string
	Relation  string    // pg_catalog relation; empty for hidden stages
	Source    string    // stage whose included rows a hidden stage narrows
	Identity  bool      // select the relation oid as _id
	Columns   []string  // explicit column list; all columns when empty
	Derived   []Derived // computed columns appended to the row
	Filter    Predicate // nil for catalog-wide categories
	SortKey   []string
	Singleton bool // serialized as one object instead of a sequence
	Hidden    bool // helper subset that never reaches the document
}

// Parents returns the stages this category reads from.
func (c *Category) Parents() []string {
	var parents []string
	if c.Source != "" {
		parents = append(parents, c.Source)
	}
	if c.Filter != nil {
		parents = append(parents, c.Filter.Stages()...)
	}
	return parents
}

// Membership renders the category's rule for display.
func (c *Category) Membership() string {
	if c.Filter == nil {
		return "catalog-wide"
	}
	return c.Filter.SQL()
}

func memberOf(column, stage string) MemberOf {
	return MemberOf{Column: column, Stage: stage}
}

func inUserNamespace(column string) MemberOf {
	return memberOf(column, StageUserNamespaces)
}

func pgGetExpr(column, relation string) string {
	return "pg_get_expr(" + column + ", " + relation + ", true)"
}

// objectTags lists the catalogs whose objects depends and descriptions may
// reference.
func objectTags() []Tag {
	return []Tag{
		{Relation: "pg_namespace", Stage: StageNamespaces},
		{Relation: "pg_class", Stage: StageClasses},
		{Relation: "pg_attribute", Stage: StageClasses, SubObjects: true},
		{Relation: "pg_constraint", Stage: "constraints"},
		{Relation: "pg_proc", Stage: "procs"},
		{Relation: "pg_type", Stage: "types"},
		{Relation: "pg_enum", Stage: "enums"},
		{Relation: "pg_extension", Stage: "extensions"},
		{Relation: "pg_foreign_data_wrapper", Stage: "foreign_data_wrappers"},
		{Relation: "pg_foreign_server", Stage: "foreign_servers"},
		{Relation: "pg_rewrite", Stage: "rewrites"},
		{Relation: "pg_trigger", Stage: "triggers"},
	}
}

// Categories returns the snapshot categories in document order, with each
// hidden stage placed after the stage it narrows.
func Categories() []Category {
	return []Category{
		{
			Name:      StageDatabase,
			Relation:  "pg_database",
			Identity:  true,
			Derived:   []Derived{{"encoding_text", "pg_encoding_to_char(encoding)"}},
			Filter:    ServerSide{Condition: "datname = current_database()"},
			Singleton: true,
		},
		{
			Name:     "settings",
			Relation: "pg_settings",
			SortKey:  []string{"name"},
		},
		{
			Name:     StageNamespaces,
			Relation: "pg_namespace",
			Identity: true,
			Filter:   Compare{Column: "nspname", Op: OpNotEqual, Value: "information_schema"},
			SortKey:  []string{"nspname"},
		},
		{
			Name:   StageUserNamespaces,
			Source: StageNamespaces,
			Filter: NotLike{Column: "nspname", Pattern: `pg\_%`},
			Hidden: true,
		},
		{
			Name:     StageClasses,
			Relation: "pg_class",
			Identity: true,
			Derived: []Derived{
				{"updatable_mask", "pg_catalog.pg_relation_is_updatable(oid, true)::bit(8)::int4"},
				{"sql_viewdef", "case when relkind = 'v' or relkind = 'm' then pg_get_viewdef(oid, false) else null end"},
			},
			Filter:  inUserNamespace("relnamespace"),
			SortKey: []string{"relnamespace", "relname"},
		},
		{
			Name:   StageTables,
			Source: StageClasses,
			Filter: Compare{Column: "relkind", Op: OpEqual, Value: "r"},
			Hidden: true,
		},
		{
			Name:     "attributes",
			Relation: "pg_attribute",
			Filter: AllOf{
				memberOf("attrelid", StageClasses),
				Compare{Column: "attnum", Op: OpGreaterThan, Value: 0},
			},
			SortKey: []string{"attrelid", "attnum"},
		},
		{
			Name:     "attribute_defaults",
			Relation: "pg_attrdef",
			Identity: true,
			Derived:  []Derived{{"sql_adbin", pgGetExpr("adbin", "adrelid")}},
			Filter: TupleMemberOf{
				Columns: []string{"adrelid", "adnum"},
				Stage:   "attributes",
				Keys:    []string{"attrelid", "attnum"},
			},
			SortKey: []string{"adrelid", "adnum"},
		},
		{
			Name:     "constraints",
			Relation: "pg_constraint",
			Identity: true,
			Derived: []Derived{
				{"sql_conbin", pgGetExpr("conbin", "coalesce(conrelid, contypid)")},
				{"sql_def", "(case when contype <> 'n' then pg_get_constraintdef(oid, false) else null end)"},
			},
			Filter:  inUserNamespace("connamespace"),
			SortKey: []string{"connamespace", "conrelid", "conname"},
		},
		{
			Name:     "procs",
			Relation: "pg_proc",
			Identity: true,
			Derived: []Derived{
				{"sql_proargdefaults", pgGetExpr("proargdefaults", "0")},
				{"sql_identity_arguments", "pg_get_function_identity_arguments(oid)"},
			},
			Filter:  inUserNamespace("pronamespace"),
			SortKey: []string{"pronamespace", "proname", "sql_identity_arguments"},
		},
		{
			Name:     "sys_procs",
			Relation: "pg_proc",
			Identity: true,
			Columns:  []string{"proname", "pronamespace"},
			Derived:  []Derived{{"sql_identity_arguments", "pg_get_function_identity_arguments(oid)"}},
			Filter:   NamespaceNamed{Column: "pronamespace", Namespace: "pg_catalog"},
			SortKey:  []string{"pronamespace", "proname", "sql_identity_arguments"},
		},
		{
			Name:     "aggregates",
			Relation: "pg_aggregate",
			Filter:   memberOf("aggfnoid", "procs"),
			SortKey:  []string{"aggfnoid"},
		},
		{
			Name:     "roles",
			Relation: "pg_roles",
			Identity: true,
			SortKey:  []string{"rolname"},
		},
		{
			Name:     "db_role_settings",
			Relation: "pg_db_role_setting",
			Filter:   memberOf("setdatabase", StageDatabase),
			SortKey:  []string{"setdatabase", "setrole"},
		},
		{
			Name:     "auth_members",
			Relation: "pg_auth_members",
			Filter:   memberOf("roleid", "roles"),
			SortKey:  []string{"roleid", "member", "grantor"},
		},
		{
			Name:     "default_acls",
			Relation: "pg_default_acl",
			Identity: true,
			SortKey:  []string{"defaclrole", "defaclnamespace", "defaclobjtype"},
		},
		{
			Name:     "types",
			Relation: "pg_type",
			Identity: true,
			Derived:  []Derived{{"sql_typdefaultbin", pgGetExpr("typdefaultbin", "0")}},
			Filter: AnyOf{
				inUserNamespace("typnamespace"),
				NamespaceNamed{Column: "typnamespace", Namespace: "pg_catalog"},
			},
			SortKey: []string{"typnamespace", "typname"},
		},
		{
			Name:     "enums",
			Relation: "pg_enum",
			Identity: true,
			Filter:   memberOf("enumtypid", "types"),
			SortKey:  []string{"enumtypid", "enumsortorder"},
		},
		{
			Name:     "event_triggers",
			Relation: "pg_event_trigger",
			SortKey:  []string{"evtname"},
		},
		{
			Name:     "extensions",
			Relation: "pg_extension",
			Identity: true,
			SortKey:  []string{"extname"},
		},
		{
			Name:     "foreign_data_wrappers",
			Relation: "pg_foreign_data_wrapper",
			Identity: true,
			SortKey:  []string{"fdwname"},
		},
		{
			Name:     "foreign_servers",
			Relation: "pg_foreign_server",
			Identity: true,
			Filter:   memberOf("srvfdw", "foreign_data_wrappers"),
			SortKey:  []string{"srvname"},
		},
		{
			Name:     "foreign_tables",
			Relation: "pg_foreign_table",
			Filter:   memberOf("ftserver", "foreign_servers"),
			SortKey:  []string{"ftrelid", "ftserver"},
		},
		{
			Name:     "indexes",
			Relation: "pg_index",
			Derived: []Derived{
				{"sql_indexprs", pgGetExpr("indexprs", "indrelid")},
				{"sql_indpred", pgGetExpr("indpred", "indrelid")},
			},
			Filter:  memberOf("indrelid", StageClasses),
			SortKey: []string{"indrelid", "indexrelid"},
		},
		{
			Name:     "inherits",
			Relation: "pg_inherits",
			Filter:   memberOf("inhrelid", StageClasses),
			SortKey:  []string{"inhrelid", "inhseqno"},
		},
		{
			Name:     "languages",
			Relation: "pg_language",
			Identity: true,
			SortKey:  []string{"lanname"},
		},
		{
			Name:     "policies",
			Relation: "pg_policy",
			Derived: []Derived{
				{"sql_polqual", pgGetExpr("polqual", "polrelid")},
				{"sql_polwithcheck", pgGetExpr("polwithcheck", "polrelid")},
			},
			Filter:  memberOf("polrelid", StageClasses),
			SortKey: []string{"polrelid", "polname"},
		},
		{
			Name:     "ranges",
			Relation: "pg_range",
			Filter:   memberOf("rngtypid", "types"),
			SortKey:  []string{"rngtypid"},
		},
		{
			Name:     "rewrites",
			Relation: "pg_rewrite",
			Identity: true,
			Derived: []Derived{
				{"sql_ev_qual", "null"},
				{"sql_ev_action", "null"},
			},
			Filter:  memberOf("ev_class", StageClasses),
			SortKey: []string{"ev_class", "ev_type", "rulename"},
		},
		{
			Name:     "triggers",
			Relation: "pg_trigger",
			Identity: true,
			Derived: []Derived{
				{"sql_def", "pg_get_triggerdef(oid, false)"},
				{"sql_tgqual", "null"},
			},
			Filter:  memberOf("tgrelid", StageTables),
			SortKey: []string{"tgrelid", "tgname"},
		},
		{
			Name:     "depends",
			Relation: "pg_depend",
			Filter: AllOf{
				In{Column: "deptype", Values: []interface{}{"a", "e"}},
				Tagged{ClassColumn: "classid", ObjectColumn: "objid", SubColumn: "objsubid", Tags: objectTags()},
			},
			SortKey: []string{"classid", "objid", "objsubid", "refclassid", "refobjid", "refobjsubid"},
		},
		{
			Name:     "descriptions",
			Relation: "pg_description",
			Filter:   Tagged{ClassColumn: "classoid", ObjectColumn: "objoid", SubColumn: "objsubid", Tags: objectTags()},
			SortKey:  []string{"objoid", "classoid", "objsubid"},
		},
		{
			Name:     "stat_user_tables",
			Relation: "pg_stat_user_tables",
			Filter:   memberOf("relid", StageClasses),
			SortKey:  []string{"schemaname", "relname"},
		},
		{
			Name:     "am",
			Relation: "pg_am",
			Identity: true,
			SortKey:  []string{"amname"},
		},
	}
}

// DocumentFields returns the top-level document fields in their fixed order.
func DocumentFields() []string {
	var fields []string
	for _, c := range Categories() {
		if !c.Hidden {
			fields = append(fields, c.Name)
		}
	}
	return append(fields, FieldCatalogByOID, FieldCurrentUser, FieldPGVersion, FieldIntrospectionVersion)
}
