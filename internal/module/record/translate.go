package record

import (
	"database/sql/driver"
	"strings"
	"sync"

	gosqlite "github.com/glebarez/go-sqlite"
	"golang.org/x/text/cases"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"github.com/simp-lee/recordsvc/internal/domain"
)

// foldFunc is the SQLite function used for search. The built-in LOWER only
// folds ASCII letters.
const foldFunc = "unicode_fold"

func init() {
	gosqlite.MustRegisterDeterministicScalarFunction(foldFunc, 1, foldValue)
}

func foldValue(_ *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return cases.Fold().String(v), nil
	case []byte:
		return cases.Fold().String(string(v)), nil
	default:
		return v, nil
	}
}

// searchCondition matches the term against name and description, ignoring
// case. Both sides are folded by the database. A NULL description never
// matches.
func searchCondition(dialect string) string {
	switch dialect {
	case "postgres":
		return `(name ILIKE ? ESCAPE '\' OR description ILIKE ? ESCAPE '\')`
	case "sqlite":
		return `(` + foldFunc + `(name) LIKE ` + foldFunc + `(?) ESCAPE '\' OR ` +
			foldFunc + `(description) LIKE ` + foldFunc + `(?) ESCAPE '\')`
	default:
		return `(LOWER(name) LIKE LOWER(?) ESCAPE '\' OR LOWER(description) LIKE LOWER(?) ESCAPE '\')`
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// FilterScope restricts a query to records whose name or description contains
// the search term. An absent or empty term leaves the query unrestricted.
func FilterScope(filter *domain.RecordFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter == nil || filter.Search == nil || *filter.Search == "" {
			return db
		}
		pattern := "%" + escapeLike(*filter.Search) + "%"
		return db.Where(searchCondition(db.Dialector.Name()), pattern, pattern)
	}
}

// SortOrder resolves sort into a field name and a lowercase direction. ok is
// false when no ordering was requested. Anything other than DESC sorts
// ascending.
func SortOrder(sort *domain.SortInput) (column, direction string, ok bool) {
	if sort == nil || sort.Field == "" {
		return "", "", false
	}
	direction = "asc"
	if d, valid := domain.ParseSortDirection(string(sort.Direction)); valid && d == domain.SortDesc {
		direction = "desc"
	}
	return sort.Field, direction, true
}

var recordSchemas sync.Map

// sortColumn maps a Record attribute to its column. The attribute may be
// given as the JSON name, the Go field name or the column itself. Anything
// else is returned as is and left for the store to reject.
func sortColumn(db *gorm.DB, field string) string {
	var namer schema.Namer = schema.NamingStrategy{}
	if db.NamingStrategy != nil {
		namer = db.NamingStrategy
	}
	s, err := schema.Parse(&domain.Record{}, &recordSchemas, namer)
	if err != nil {
		return field
	}
	for _, f := range s.Fields {
		if f.DBName == "" {
			continue
		}
		jsonName, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if field == f.DBName || field == f.Name || field == jsonName {
			return f.DBName
		}
	}
	return field
}

// SortScope orders a query by a single quoted column. The column is not checked
// against the schema; an unknown one fails in the store.
func SortScope(sort *domain.SortInput) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		field, direction, ok := SortOrder(sort)
		if !ok {
			return db
		}
		return db.Order(clause.OrderByColumn{
			Column: clause.Column{Name: sortColumn(db, field)},
			Desc:   direction == "desc",
		})
	}
}
