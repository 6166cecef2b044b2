package store

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	rqlParser "github.com/Q-CIS-DEV/go-rql-parser"

	"rincewind/server/errors"
)

//https://doc.apsstandard.org/2.1/spec/rql/

const (
	ErrRQLWrong           = "rql_wrong"
	ErrRQLUnknownOperator = "rql_unknown_operator"
	ErrRQLWrongValue      = "rql_wrong_value"
)

//Condition is one comparison of the parsed filter, or a nested AND/OR group.
//Top-level conditions of a Query are conjunctive.
type Condition struct {
	Op        string
	Attribute string
	Values    []string
	Nested    []Condition
}

type SortKey struct {
	By   string
	Desc bool
}

//Query is a store-agnostic representation of an RQL filter: the SQL store
//renders it to a WHERE clause, the file store applies it in memory.
type Query struct {
	Conditions []Condition
	SortBy     []SortKey
	Limit      string
	Offset     string
}

//ParseRqlFilter parses an RQL expression into a Query. Supported operators:
//eq, ne, in, gt, ge, lt, le, like, combined with and() and or(); sort(),
//limit().
func ParseRqlFilter(filter string) (*Query, error) {
	query := &Query{Conditions: make([]Condition, 0)}
	if strings.TrimSpace(filter) == "" {
		return query, nil
	}
	parser := rqlParser.NewParser()
	rootNode, err := parser.Parse(filter)
	if err != nil {
		return nil, errors.NewValidationError(ErrRQLWrong, err.Error(), filter)
	}
	if rootNode.Node != nil {
		if err := collectConditions(rootNode.Node, query); err != nil {
			return nil, err
		}
	}
	for _, sortNode := range rootNode.Sort() {
		query.SortBy = append(query.SortBy, SortKey{By: sortNode.By, Desc: sortNode.Desc})
	}
	query.Limit = rootNode.Limit()
	query.Offset = rootNode.Offset()
	return query, nil
}

func collectConditions(node *rqlParser.RqlNode, query *Query) error {
	operator := strings.ToUpper(node.Op)
	switch operator {
	case "AND":
		for _, arg := range node.Args {
			childNode, ok := arg.(*rqlParser.RqlNode)
			if !ok {
				return errors.NewValidationError(ErrRQLWrong, fmt.Sprintf("Unexpected argument '%v' of 'and'", arg), nil)
			}
			if err := collectConditions(childNode, query); err != nil {
				return err
			}
		}
		return nil
	case "OR":
		group := Condition{Op: operator}
		for _, arg := range node.Args {
			childNode, ok := arg.(*rqlParser.RqlNode)
			if !ok {
				return errors.NewValidationError(ErrRQLWrong, fmt.Sprintf("Unexpected argument '%v' of 'or'", arg), nil)
			}
			branch := &Query{Conditions: make([]Condition, 0)}
			if err := collectConditions(childNode, branch); err != nil {
				return err
			}
			if len(branch.Conditions) == 1 {
				group.Nested = append(group.Nested, branch.Conditions[0])
			} else {
				group.Nested = append(group.Nested, Condition{Op: "AND", Nested: branch.Conditions})
			}
		}
		query.Conditions = append(query.Conditions, group)
		return nil
	case "EQ", "NE", "GT", "GE", "LT", "LE", "LIKE":
		if len(node.Args) != 2 {
			return errors.NewValidationError(
				ErrRQLWrong, fmt.Sprintf("Expected two arguments for '%s' but found '%d'", node.Op, len(node.Args)), nil,
			)
		}
		attribute, value, err := argPair(node.Args)
		if err != nil {
			return err
		}
		query.Conditions = append(query.Conditions, Condition{Op: operator, Attribute: attribute, Values: []string{value}})
		return nil
	case "IN":
		if len(node.Args) < 2 {
			return errors.NewValidationError(
				ErrRQLWrong, fmt.Sprintf("Expected more than one argument for 'in' but found '%d'", len(node.Args)), nil,
			)
		}
		attribute, ok := node.Args[0].(string)
		if !ok {
			return errors.NewValidationError(ErrRQLWrong, "The attribute name is not a string", nil)
		}
		values := make([]string, 0, len(node.Args)-1)
		for _, arg := range node.Args[1:] {
			value, err := argValue(arg)
			if err != nil {
				return err
			}
			values = append(values, value)
		}
		query.Conditions = append(query.Conditions, Condition{Op: operator, Attribute: attribute, Values: values})
		return nil
	default:
		return errors.NewValidationError(
			ErrRQLUnknownOperator, fmt.Sprintf("RQL operator '%s' is unknown", node.Op), nil,
		)
	}
}

func argPair(args []interface{}) (string, string, error) {
	attribute, ok := args[0].(string)
	if !ok {
		return "", "", errors.NewValidationError(ErrRQLWrong, "The attribute name is not a string", nil)
	}
	value, err := argValue(args[1])
	if err != nil {
		return "", "", err
	}
	return attribute, value, nil
}

func argValue(arg interface{}) (string, error) {
	value, ok := arg.(string)
	if !ok {
		return "", errors.NewValidationError(ErrRQLWrongValue, fmt.Sprintf("Unknown operator's value type: '%T'", arg), nil)
	}
	unescaped, err := url.QueryUnescape(value)
	if err != nil {
		return "", errors.NewValidationError(ErrRQLWrongValue, fmt.Sprintf("Can't unescape '%s' value: %s", value, err.Error()), nil)
	}
	return unescaped, nil
}

//Match applies the conjunctive conditions to one raw row.
func (query *Query) Match(row map[string]interface{}) bool {
	for i := range query.Conditions {
		if !query.Conditions[i].match(row) {
			return false
		}
	}
	return true
}

func (condition *Condition) match(row map[string]interface{}) bool {
	switch condition.Op {
	case "OR":
		for i := range condition.Nested {
			if condition.Nested[i].match(row) {
				return true
			}
		}
		return false
	case "AND":
		for i := range condition.Nested {
			if !condition.Nested[i].match(row) {
				return false
			}
		}
		return true
	}
	rowValue := stringify(row[condition.Attribute])
	switch condition.Op {
	case "EQ":
		return rowValue == condition.Values[0]
	case "NE":
		return rowValue != condition.Values[0]
	case "IN":
		for _, value := range condition.Values {
			if rowValue == value {
				return true
			}
		}
		return false
	case "GT", "GE", "LT", "LE":
		return compare(rowValue, condition.Values[0], condition.Op)
	case "LIKE":
		pattern := strings.ReplaceAll(condition.Values[0], "*", "")
		return strings.Contains(rowValue, pattern)
	}
	return false
}

//Apply filters, sorts and windows in-memory rows per the query.
func (query *Query) Apply(rows []map[string]interface{}) []map[string]interface{} {
	matched := make([]map[string]interface{}, 0)
	for _, row := range rows {
		if query.Match(row) {
			matched = append(matched, row)
		}
	}
	for i := len(query.SortBy) - 1; i >= 0; i-- {
		sortKey := query.SortBy[i]
		sort.SliceStable(matched, func(a, b int) bool {
			less := compare(stringify(matched[a][sortKey.By]), stringify(matched[b][sortKey.By]), "LT")
			if sortKey.Desc {
				return !less
			}
			return less
		})
	}
	if offset, err := strconv.Atoi(query.Offset); err == nil && offset > 0 && offset < len(matched) {
		matched = matched[offset:]
	}
	if limit, err := strconv.Atoi(query.Limit); err == nil && limit >= 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched
}

func stringify(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	default:
		return fmt.Sprintf("%v", value)
	}
}

//compare prefers numeric ordering when both operands parse as numbers.
func compare(left string, right string, op string) bool {
	leftNumber, leftErr := strconv.ParseFloat(left, 64)
	rightNumber, rightErr := strconv.ParseFloat(right, 64)
	if leftErr == nil && rightErr == nil {
		switch op {
		case "GT":
			return leftNumber > rightNumber
		case "GE":
			return leftNumber >= rightNumber
		case "LT":
			return leftNumber < rightNumber
		case "LE":
			return leftNumber <= rightNumber
		}
	}
	switch op {
	case "GT":
		return left > right
	case "GE":
		return left >= right
	case "LT":
		return left < right
	case "LE":
		return left <= right
	}
	return false
}
