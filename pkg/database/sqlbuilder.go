package database

import (
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"
)

// Builders here are all PostgreSQL flavored, so placeholders come out as $1, $2, ...

// Excluded refers to the row proposed for insertion inside ON CONFLICT ... DO UPDATE.
func Excluded(column string) any {
	return sqlbuilder.Raw("EXCLUDED." + column)
}

type InsertBuilder struct {
	*sqlbuilder.InsertBuilder
}

func NewInsertBuilder() *InsertBuilder {
	return &InsertBuilder{sqlbuilder.PostgreSQL.NewInsertBuilder()}
}

// OnConflict appends an upsert clause; assignments go on the returned builder.
func (b *InsertBuilder) OnConflict(columns ...string) *sqlbuilder.UpdateBuilder {
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	b.SQL(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE %s", strings.Join(columns, ", "), b.Var(ub)))
	return ub
}

// Update collects the SET clauses of a single-table update so that optional columns can be
// added one at a time.
type Update struct {
	ub  *sqlbuilder.UpdateBuilder
	set []string
}

func NewUpdate(table string) *Update {
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(table)
	return &Update{ub: ub}
}

func (u *Update) Set(column string, value any) *Update {
	u.set = append(u.set, u.ub.Assign(column, value))
	return u
}

// WhereID finishes the statement for the row with the given id.
func (u *Update) WhereID(id any) (string, []any) {
	u.ub.Set(u.set...)
	u.ub.Where(u.ub.Equal("id", id))
	return u.ub.Build()
}

func NewSelect(columns ...string) *sqlbuilder.SelectBuilder {
	return sqlbuilder.PostgreSQL.NewSelectBuilder().Select(columns...)
}

// JSONBContains is "column @> value::jsonb" with value bound as a parameter.
func JSONBContains(sb *sqlbuilder.SelectBuilder, column string, value any) string {
	return fmt.Sprintf("%s @> %s::jsonb", column, sb.Var(value))
}

// Struct maps a db-tagged model onto PostgreSQL select and insert builders.
type Struct struct {
	*sqlbuilder.Struct
}

func NewStruct(v any) *Struct {
	return &Struct{sqlbuilder.NewStruct(v).For(sqlbuilder.PostgreSQL)}
}
