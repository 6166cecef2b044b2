package store

import (
	"bytes"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/jackc/pgconn"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/lib/pq"
	pkgerrors "github.com/pkg/errors"

	"rincewind/server/dao"
	"rincewind/server/errors"
)

const (
	ErrDMLFailed        = "dml_failed"
	ErrTemplateFailed   = "template_failed"
	ErrValueDuplication = "duplicated_value_error"
	ErrConnectionFailed = "connection_failed"
)

const (
	templSelect = `SELECT * FROM {{.Table}}{{if .Where}} WHERE {{.Where}}{{end}}{{if .Order}} ORDER BY {{.Order}}{{end}}{{if .Limit}} LIMIT {{.Limit}}{{end}}{{if .Offset}} OFFSET {{.Offset}}{{end}}`
	templInsert = `INSERT INTO {{.Table}} {{if not .Cols}}DEFAULT VALUES{{end}}{{if .Cols}}({{join .Cols ", "}}) VALUES ({{join .Binds ", "}}){{end}} RETURNING *`
	templUpdate = `UPDATE {{.Table}} SET {{join .Values ", "}} WHERE {{.Where}} RETURNING *`
	templDelete = `DELETE FROM {{.Table}} WHERE {{.Where}}`
)

var funcs = template.FuncMap{"join": strings.Join}
var parsedTemplSelect = template.Must(template.New("dml_select").Funcs(funcs).Parse(templSelect))
var parsedTemplInsert = template.Must(template.New("dml_insert").Funcs(funcs).Parse(templInsert))
var parsedTemplUpdate = template.Must(template.New("dml_update").Funcs(funcs).Parse(templUpdate))
var parsedTemplDelete = template.Must(template.New("dml_delete").Funcs(funcs).Parse(templDelete))

//SqlStore backs Daos with a Postgres connection. Identifier and literal
//escaping follow Postgres quoting rules; skipping them is a correctness and
//security defect, not a style issue.
type SqlStore struct {
	db           *sql.DB
	lastInsertId interface{}
}

func NewSqlStore(connectionUrl string) (*SqlStore, error) {
	db, err := sql.Open("pgx", connectionUrl)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "opening database connection")
	}
	return &SqlStore{db: db}, nil
}

func NewSqlStoreFromDb(db *sql.DB) *SqlStore {
	return &SqlStore{db: db}
}

func (store *SqlStore) ExportName(name string) string {
	return pq.QuoteIdentifier(name)
}

func (store *SqlStore) ExportStringValue(value string) string {
	return pq.QuoteLiteral(value)
}

func (store *SqlStore) LastInsertId() (interface{}, error) {
	return store.lastInsertId, nil
}

func (store *SqlStore) Get(resource string, key string, value interface{}) (map[string]interface{}, error) {
	rows, err := store.selectRows(resource, map[string]interface{}{key: value}, "", "1", "")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (store *SqlStore) GetAll(resource string, filters map[string]interface{}) (dao.ResultSet, error) {
	rows, err := store.selectRows(resource, filters, "", "", "")
	if err != nil {
		return nil, err
	}
	return dao.NewDataResultSet(rows), nil
}

func (store *SqlStore) Query(resource string, rqlFilter string) (dao.ResultSet, error) {
	query, err := ParseRqlFilter(rqlFilter)
	if err != nil {
		return nil, err
	}
	where, binds := store.renderConditions(query.Conditions)
	order := store.renderSort(query.SortBy)
	statement, err := store.renderTemplate(parsedTemplSelect, map[string]interface{}{
		"Table": pq.QuoteIdentifier(resource), "Where": where, "Order": order,
		"Limit": query.Limit, "Offset": query.Offset,
	})
	if err != nil {
		return nil, err
	}
	rows, err := store.queryRows(statement, binds)
	if err != nil {
		return nil, err
	}
	return dao.NewDataResultSet(rows), nil
}

func (store *SqlStore) Insert(resource string, data map[string]interface{}) (map[string]interface{}, error) {
	cols := make([]string, 0, len(data))
	binds := make([]string, 0, len(data))
	values := make([]interface{}, 0, len(data))
	for column, value := range data {
		cols = append(cols, pq.QuoteIdentifier(column))
		binds = append(binds, "$"+strconv.Itoa(len(binds)+1))
		values = append(values, value)
	}
	statement, err := store.renderTemplate(parsedTemplInsert, map[string]interface{}{
		"Table": pq.QuoteIdentifier(resource), "Cols": cols, "Binds": binds,
	})
	if err != nil {
		return nil, err
	}
	rows, err := store.queryRows(statement, values)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.NewFatalError(ErrDMLFailed, "Insert returned no row", nil)
	}
	if id, ok := rows[0]["id"]; ok {
		store.lastInsertId = id
	}
	return rows[0], nil
}

func (store *SqlStore) Update(resource string, key string, keyValue interface{}, data map[string]interface{}) (map[string]interface{}, error) {
	assignments := make([]string, 0, len(data))
	values := make([]interface{}, 0, len(data)+1)
	for column, value := range data {
		values = append(values, value)
		assignments = append(assignments, pq.QuoteIdentifier(column)+"=$"+strconv.Itoa(len(values)))
	}
	values = append(values, keyValue)
	where := pq.QuoteIdentifier(key) + "=$" + strconv.Itoa(len(values))
	statement, err := store.renderTemplate(parsedTemplUpdate, map[string]interface{}{
		"Table": pq.QuoteIdentifier(resource), "Values": assignments, "Where": where,
	})
	if err != nil {
		return nil, err
	}
	rows, err := store.queryRows(statement, values)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.NewNotFoundError(ErrDMLFailed, fmt.Sprintf("No row of '%s' has %s = '%v'", resource, key, keyValue), nil)
	}
	return rows[0], nil
}

func (store *SqlStore) Delete(resource string, key string, keyValue interface{}) error {
	statement, err := store.renderTemplate(parsedTemplDelete, map[string]interface{}{
		"Table": pq.QuoteIdentifier(resource), "Where": pq.QuoteIdentifier(key) + "=$1",
	})
	if err != nil {
		return err
	}
	if _, err := store.db.Exec(statement, keyValue); err != nil {
		return store.classifyError(err)
	}
	return nil
}

func (store *SqlStore) selectRows(resource string, filters map[string]interface{}, order string, limit string, offset string) ([]map[string]interface{}, error) {
	where := ""
	binds := make([]interface{}, 0, len(filters))
	for column, value := range filters {
		if len(binds) > 0 {
			where += " AND "
		}
		binds = append(binds, value)
		where += pq.QuoteIdentifier(column) + "=$" + strconv.Itoa(len(binds))
	}
	statement, err := store.renderTemplate(parsedTemplSelect, map[string]interface{}{
		"Table": pq.QuoteIdentifier(resource), "Where": where, "Order": order, "Limit": limit, "Offset": offset,
	})
	if err != nil {
		return nil, err
	}
	return store.queryRows(statement, binds)
}

func (store *SqlStore) renderConditions(conditions []Condition) (string, []interface{}) {
	var where bytes.Buffer
	binds := make([]interface{}, 0)
	for i := range conditions {
		if where.Len() > 0 {
			where.WriteString(" AND ")
		}
		store.renderCondition(&conditions[i], &where, &binds)
	}
	return where.String(), binds
}

func (store *SqlStore) renderCondition(condition *Condition, where *bytes.Buffer, bindsRef *[]interface{}) {
	if condition.Op == "AND" || condition.Op == "OR" {
		where.WriteString("(")
		for i := range condition.Nested {
			if i > 0 {
				where.WriteString(" " + condition.Op + " ")
			}
			store.renderCondition(&condition.Nested[i], where, bindsRef)
		}
		where.WriteString(")")
		return
	}
	binds := *bindsRef
	where.WriteString(pq.QuoteIdentifier(condition.Attribute))
	switch condition.Op {
	case "EQ":
		binds = append(binds, condition.Values[0])
		where.WriteString("=$" + strconv.Itoa(len(binds)))
	case "NE":
		binds = append(binds, condition.Values[0])
		where.WriteString("!=$" + strconv.Itoa(len(binds)))
	case "GT", "GE", "LT", "LE":
		binds = append(binds, condition.Values[0])
		where.WriteString(map[string]string{"GT": ">", "GE": ">=", "LT": "<", "LE": "<="}[condition.Op])
		where.WriteString("$" + strconv.Itoa(len(binds)))
	case "LIKE":
		binds = append(binds, strings.ReplaceAll(condition.Values[0], "*", "%"))
		where.WriteString(" LIKE $" + strconv.Itoa(len(binds)))
	case "IN":
		where.WriteString(" IN (")
		for j, value := range condition.Values {
			if j > 0 {
				where.WriteString(",")
			}
			binds = append(binds, value)
			where.WriteString("$" + strconv.Itoa(len(binds)))
		}
		where.WriteString(")")
	}
	*bindsRef = binds
}

func (store *SqlStore) renderSort(sortKeys []SortKey) string {
	parts := make([]string, 0, len(sortKeys))
	for _, sortKey := range sortKeys {
		part := pq.QuoteIdentifier(sortKey.By)
		if sortKey.Desc {
			part += " DESC"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ",")
}

func (store *SqlStore) renderTemplate(templ *template.Template, data map[string]interface{}) (string, error) {
	var statement bytes.Buffer
	if err := templ.Execute(&statement, data); err != nil {
		return "", errors.NewFatalError(ErrTemplateFailed, err.Error(), nil)
	}
	return statement.String(), nil
}

func (store *SqlStore) queryRows(statement string, binds []interface{}) ([]map[string]interface{}, error) {
	rows, err := store.db.Query(statement, binds...)
	if err != nil {
		return nil, store.classifyError(err)
	}
	defer rows.Close()
	result, err := parseRows(rows)
	if err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, store.classifyError(err)
	}
	return result, nil
}

//parseRows materializes generic rows, normalizing driver types into the raw
//value shapes the Dao layer coerces from.
func parseRows(rows *sql.Rows) ([]map[string]interface{}, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.NewFatalError(ErrDMLFailed, err.Error(), nil)
	}
	result := make([]map[string]interface{}, 0)
	for rows.Next() {
		values := make([]interface{}, len(cols))
		pointers := make([]interface{}, len(cols))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, errors.NewFatalError(ErrDMLFailed, err.Error(), nil)
		}
		row := make(map[string]interface{}, len(cols))
		for i, column := range cols {
			row[column] = normalizeValue(values[i])
		}
		result = append(result, row)
	}
	return result, nil
}

func normalizeValue(v interface{}) interface{} {
	switch value := v.(type) {
	case []byte:
		return string(value)
	case int64:
		return float64(value)
	case int32:
		return float64(value)
	case time.Time:
		return value.UTC().Format(time.RFC3339)
	default:
		return v
	}
}

func (store *SqlStore) classifyError(err error) error {
	if pgError, ok := err.(*pgconn.PgError); ok {
		switch pgError.Code {
		case "23505":
			return errors.NewValidationError(ErrValueDuplication, pgError.Detail, nil)
		case "42703", "42P01":
			return errors.NewFatalError(ErrDMLFailed, pgError.Message, nil)
		}
	}
	return errors.NewFatalError(ErrDMLFailed, err.Error(), nil)
}
