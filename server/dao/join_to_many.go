package dao

import (
	"fmt"

	"rincewind/logger"
)

//JoinToManyReference links a record to a collection of foreign entities
//through a join resource. Key roles are inverted relative to the plain
//to-many case: the join side holds the foreign key pointing back at this
//record's key.
type JoinToManyReference struct {
	baseReference
	filterMap map[string]interface{}
}

//NewJoinToManyReference builds a join-mediated to-many reference. localKey
//names the source attribute whose value the join side points back at;
//filterMap optionally restricts the join rows. Join references never
//participate in persistence.
func NewJoinToManyReference(foreignDao interface{}, localKey string, foreignKey string, filterMap map[string]interface{}) *JoinToManyReference {
	if foreignKey == "" {
		foreignKey = "id"
	}
	return &JoinToManyReference{
		baseReference: baseReference{
			foreignDao: foreignDao, localKey: localKey, foreignKey: foreignKey, exportable: false,
		},
		filterMap: filterMap,
	}
}

//the resolved iterator is cached back onto the record by GetReferenced itself
func (ref *JoinToManyReference) cachesOnRecord() bool {
	return false
}

func (ref *JoinToManyReference) GetReferenced(record *Record, attributeName string) (interface{}, error) {
	foreignDao, err := ref.ForeignDao()
	if err != nil {
		return nil, err
	}

	if rawValue, hasData := record.Data[attributeName]; hasData && rawValue != nil {
		switch embedded := rawValue.(type) {
		case []interface{}:
			if !isHashList(embedded) {
				logger.Warn("Embedded data for join reference '%s' of entity '%s' is not a raw collection, returning null", attributeName, ref.owner.description.Name)
				return nil, nil
			}
			iterator := foreignDao.CreateIterator(NewDataResultSet(asHashList(embedded)))
			return record.CacheReference(attributeName, iterator), nil
		case *ResultIterator:
			return embedded, nil
		default:
			logger.Warn("Embedded data for join reference '%s' of entity '%s' has unexpected shape '%T', returning null", attributeName, ref.owner.description.Name, rawValue)
			return nil, nil
		}
	}

	filters := map[string]interface{}{ref.foreignKey: record.Data[ref.localKey]}
	for attribute, value := range ref.filterMap {
		filters[attribute] = value
	}
	iterator, err := foreignDao.GetAll(filters)
	if err != nil {
		return nil, err
	}
	return record.CacheReference(attributeName, iterator), nil
}

//Coerce validates the supplied value as a collection of foreign entity
//identifiers. Any element failing id coercion fails the whole coercion; a
//partially coerced collection is never returned.
func (ref *JoinToManyReference) Coerce(value interface{}) (interface{}, error) {
	values, ok := value.([]interface{})
	if !ok {
		return nil, NewCoercionError(
			fmt.Sprintf("Value of type '%T' cannot be coerced to a collection of foreign ids", value), value,
		)
	}
	foreignDao, err := ref.ForeignDao()
	if err != nil {
		return nil, err
	}
	coerced := make([]interface{}, len(values))
	for i, element := range values {
		id, err := foreignDao.CoerceId(element)
		if err != nil {
			return nil, NewCoercionError(
				fmt.Sprintf("Element %d of the collection cannot be coerced to a foreign id: %v", i, element), value,
			)
		}
		coerced[i] = id
	}
	return coerced, nil
}

func (ref *JoinToManyReference) ExportValue(record *Record, attributeName string) (interface{}, error) {
	return nil, NewReferenceUsageError(
		fmt.Sprintf("Join reference '%s' is never exportable", attributeName), nil,
	)
}
