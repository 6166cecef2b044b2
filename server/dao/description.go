package dao

import (
	"fmt"
	"strconv"
	"time"

	"github.com/getlantern/deepcopy"

	"rincewind/logger"
	"rincewind/server/errors"
)

type AttributeType int

const (
	AttributeTypeString AttributeType = iota + 1
	AttributeTypeNumber
	AttributeTypeBool
	AttributeTypeDate
	AttributeTypeDateTime
)

var attributeTypeNames = map[AttributeType]string{
	AttributeTypeString:   "string",
	AttributeTypeNumber:   "number",
	AttributeTypeBool:     "bool",
	AttributeTypeDate:     "date",
	AttributeTypeDateTime: "datetime",
}

func (at AttributeType) String() string {
	if name, ok := attributeTypeNames[at]; ok {
		return name
	}
	return "unknown"
}

func (at AttributeType) AssertType(v interface{}) bool {
	switch at {
	case AttributeTypeString, AttributeTypeDate, AttributeTypeDateTime:
		_, ok := v.(string)
		return ok
	case AttributeTypeNumber:
		_, ok := v.(float64)
		return ok
	case AttributeTypeBool:
		_, ok := v.(bool)
		return ok
	default:
		return false
	}
}

//Attribute describes one persistent attribute of an entity: its domain-facing
//name, its storage-facing spelling and the value type used for coercion.
type Attribute struct {
	Name        string
	StorageName string
	Type        AttributeType
	Optional    bool
}

//ColumnName returns the storage-facing spelling of the attribute.
func (a *Attribute) ColumnName() string {
	if a.StorageName != "" {
		return a.StorageName
	}
	return a.Name
}

//CoerceValue normalizes a storage-shaped value into the attribute's domain
//shape. Values which cannot be normalized produce a coercion error.
func (a *Attribute) CoerceValue(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch a.Type {
	case AttributeTypeString, AttributeTypeDate, AttributeTypeDateTime:
		switch value := v.(type) {
		case string:
			return value, nil
		case []byte:
			return string(value), nil
		case time.Time:
			return value.UTC().Format(time.RFC3339), nil
		}
	case AttributeTypeNumber:
		switch value := v.(type) {
		case float64:
			return value, nil
		case float32:
			return float64(value), nil
		case int:
			return float64(value), nil
		case int32:
			return float64(value), nil
		case int64:
			return float64(value), nil
		case string:
			if parsed, err := strconv.ParseFloat(value, 64); err == nil {
				return parsed, nil
			}
		}
	case AttributeTypeBool:
		switch value := v.(type) {
		case bool:
			return value, nil
		case string:
			if parsed, err := strconv.ParseBool(value); err == nil {
				return parsed, nil
			}
		}
	}
	return nil, NewCoercionError(
		fmt.Sprintf("Value '%v' cannot be coerced to '%s' for attribute '%s'", v, a.Type, a.Name), v,
	)
}

func (a *Attribute) ValueFromString(v string) (interface{}, error) {
	switch a.Type {
	case AttributeTypeString, AttributeTypeDate, AttributeTypeDateTime:
		return v, nil
	case AttributeTypeNumber:
		return strconv.ParseFloat(v, 64)
	case AttributeTypeBool:
		return strconv.ParseBool(v)
	default:
		return nil, errors.NewFatalError(
			ErrConversionFailed, fmt.Sprintf("Unsupported conversion from 'string' for the attribute type '%s'", a.Type), nil,
		)
	}
}

func (a *Attribute) ValueAsString(v interface{}) (string, error) {
	switch a.Type {
	case AttributeTypeString, AttributeTypeDate, AttributeTypeDateTime:
		if str, ok := v.(string); ok {
			return str, nil
		}
	case AttributeTypeNumber:
		switch value := v.(type) {
		case float64:
			return strconv.FormatFloat(value, 'f', -1, 64), nil
		case string:
			return value, nil
		}
	case AttributeTypeBool:
		if b, ok := v.(bool); ok {
			return strconv.FormatBool(b), nil
		}
	}
	return "", errors.NewFatalError(
		ErrConversionFailed, fmt.Sprintf("Wrong input value '%v' for attribute '%s' of type '%s'", v, a.Name, a.Type), nil,
	)
}

//EntityDescription is the static description of one entity type: its
//domain-facing name, the storage resource backing it, its key attribute and
//the attribute list.
type EntityDescription struct {
	Name       string
	Resource   string
	Key        string
	Attributes []Attribute
}

func (d *EntityDescription) FindAttribute(name string) *Attribute {
	for i := range d.Attributes {
		if d.Attributes[i].Name == name {
			return &d.Attributes[i]
		}
	}
	return nil
}

func (d *EntityDescription) KeyAttribute() *Attribute {
	return d.FindAttribute(d.Key)
}

func (d *EntityDescription) Clone() *EntityDescription {
	description := new(EntityDescription)
	if err := deepcopy.Copy(description, d); err != nil {
		logger.Warn("Deep copy of entity description '%s' failed: %s", d.Name, err.Error())
		attributes := make([]Attribute, len(d.Attributes))
		copy(attributes, d.Attributes)
		return &EntityDescription{Name: d.Name, Resource: d.Resource, Key: d.Key, Attributes: attributes}
	}
	return description
}

func NewEntityDescription(name string, resource string, key string, attributes []Attribute) *EntityDescription {
	if key == "" {
		key = "id"
	}
	if resource == "" {
		resource = name
	}
	return &EntityDescription{Name: name, Resource: resource, Key: key, Attributes: attributes}
}
