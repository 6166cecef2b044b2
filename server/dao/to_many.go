package dao

import (
	"fmt"

	"rincewind/logger"
)

//ToManyReference links a record to a collection of foreign entities through a
//list of their identifiers held on the source side.
type ToManyReference struct {
	baseReference
}

//NewToManyReference builds a to-many reference. localKey names the attribute
//holding the identifier list when the reference attribute carries no embedded
//data; foreignKey defaults to "id".
func NewToManyReference(foreignDao interface{}, localKey string, foreignKey string) *ToManyReference {
	if foreignKey == "" {
		foreignKey = "id"
	}
	return &ToManyReference{baseReference{
		foreignDao: foreignDao, localKey: localKey, foreignKey: foreignKey, exportable: false,
	}}
}

func (ref *ToManyReference) cachesOnRecord() bool {
	return false
}

func (ref *ToManyReference) GetReferenced(record *Record, attributeName string) (interface{}, error) {
	foreignDao, err := ref.ForeignDao()
	if err != nil {
		return nil, err
	}

	if rawValue, hasEmbeddedData := record.Data[attributeName]; hasEmbeddedData && rawValue != nil {
		values, isList := rawValue.([]interface{})
		if !isList {
			//unrecognized embedded shape: degrade to an empty collection
			logger.Warn("Embedded data for to-many reference '%s' of entity '%s' has unexpected shape '%T', returning an empty collection", attributeName, ref.owner.description.Name, rawValue)
			return foreignDao.CreateIterator(NewDataResultSet(nil)), nil
		}
		if len(values) == 0 || isHashList(values) {
			//ready data hashes: no store round-trip needed
			return foreignDao.CreateIterator(NewDataResultSet(asHashList(values))), nil
		}
		if isScalarList(values) && ref.foreignKey != "" {
			return foreignDao.CreateIterator(NewKeyListResultSet(foreignDao, ref.foreignKey, values)), nil
		}
		logger.Warn("Embedded data for to-many reference '%s' of entity '%s' is neither a hash list nor an id list, returning an empty collection", attributeName, ref.owner.description.Name)
		return foreignDao.CreateIterator(NewDataResultSet(nil)), nil
	}

	if ref.localKey == "" || ref.foreignKey == "" {
		return nil, NewReferenceUsageError(
			fmt.Sprintf("To-many reference '%s' without embedded data requires both a local and a foreign key", attributeName), nil,
		)
	}
	ids := make([]interface{}, 0)
	if localValue := record.Data[ref.localKey]; localValue != nil {
		if idList, ok := localValue.([]interface{}); ok {
			ids = idList
		} else {
			ids = append(ids, localValue)
		}
	}
	return foreignDao.CreateIterator(NewKeyListResultSet(foreignDao, ref.foreignKey, ids)), nil
}

//Coerce casts the supplied value to a collection. Anything but nil or a list
//is a coercion error.
func (ref *ToManyReference) Coerce(value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	if values, ok := value.([]interface{}); ok {
		return values, nil
	}
	return nil, NewCoercionError(
		fmt.Sprintf("Value of type '%T' cannot be coerced to a collection", value), value,
	)
}

func (ref *ToManyReference) ExportValue(record *Record, attributeName string) (interface{}, error) {
	return nil, NewReferenceUsageError(
		fmt.Sprintf("To-many reference '%s' is not exportable", attributeName), nil,
	)
}

func isHashList(values []interface{}) bool {
	for _, value := range values {
		if _, ok := value.(map[string]interface{}); !ok {
			return false
		}
	}
	return true
}

func asHashList(values []interface{}) []map[string]interface{} {
	hashes := make([]map[string]interface{}, len(values))
	for i, value := range values {
		hashes[i] = value.(map[string]interface{})
	}
	return hashes
}

func isScalarList(values []interface{}) bool {
	for _, value := range values {
		switch value.(type) {
		case string, float64, float32, int, int32, int64:
		default:
			return false
		}
	}
	return true
}
