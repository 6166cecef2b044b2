package dao

import (
	"fmt"
)

//Reference declaratively describes a relationship between a source entity and
//a foreign entity or collection. A Reference is registered on exactly one
//source Dao and is stateless across records; per-record caching of resolved
//results belongs to the Record.
type Reference interface {
	//GetReferenced resolves the relationship for one record: a single domain
	//object for to-one references, a lazy collection handle otherwise.
	GetReferenced(record *Record, attributeName string) (interface{}, error)
	//Coerce normalizes an externally supplied value into the shape the
	//reference expects before storage.
	Coerce(value interface{}) (interface{}, error)
	//Exportable tells whether the reference's value is serialized back to the
	//backing store on save.
	Exportable() bool
	//ExportValue produces the storage-bound value for the reference. Calling
	//it on a non-exportable reference is a usage error.
	ExportValue(record *Record, attributeName string) (interface{}, error)

	bind(owner *Dao)
	cachesOnRecord() bool
}

//baseReference carries the configuration every variant shares. The foreign
//Dao may be given as an instance or as a deferred name; a name is resolved
//once through the owning Dao's creation facility and cached in place.
type baseReference struct {
	owner      *Dao
	foreignDao interface{}
	resolved   *Dao
	localKey   string
	foreignKey string
	exportable bool
}

func (ref *baseReference) bind(owner *Dao) {
	ref.owner = owner
}

func (ref *baseReference) Exportable() bool {
	return ref.exportable
}

//ForeignDao resolves the foreign Dao, once.
func (ref *baseReference) ForeignDao() (*Dao, error) {
	if ref.resolved == nil {
		foreignDao, err := ref.owner.CreateDao(ref.foreignDao)
		if err != nil {
			return nil, err
		}
		ref.resolved = foreignDao
	}
	return ref.resolved, nil
}

//ToOneReference links a record to a single foreign entity via a direct
//foreign key.
type ToOneReference struct {
	baseReference
}

//NewToOneReference builds a to-one reference. foreignDao is a *Dao or a
//registered Dao name; foreignKey defaults to "id". When localKey is empty,
//the reference attribute itself holds the key.
func NewToOneReference(foreignDao interface{}, localKey string, foreignKey string, exportable bool) *ToOneReference {
	if foreignKey == "" {
		foreignKey = "id"
	}
	return &ToOneReference{baseReference{
		foreignDao: foreignDao, localKey: localKey, foreignKey: foreignKey, exportable: exportable,
	}}
}

func (ref *ToOneReference) cachesOnRecord() bool {
	return true
}

func (ref *ToOneReference) GetReferenced(record *Record, attributeName string) (interface{}, error) {
	foreignDao, err := ref.ForeignDao()
	if err != nil {
		return nil, err
	}

	rawValue := record.Data[attributeName]

	//shortcut: the referenced entity's data hash is embedded directly
	if embeddedData, ok := rawValue.(map[string]interface{}); ok {
		return foreignDao.GetObjectFromDatabaseData(embeddedData)
	}

	//the attribute is the key itself unless a local key is configured
	keyValue := rawValue
	if ref.localKey != "" {
		keyValue = record.Data[ref.localKey]
	}
	if keyValue == nil {
		return nil, nil
	}

	rawData, err := foreignDao.fetchRawByKey(ref.foreignKey, keyValue)
	if err != nil {
		return nil, err
	}
	if rawData == nil {
		return nil, nil
	}
	return foreignDao.GetObjectFromDatabaseData(rawData)
}

//Coerce validates a supplied value as a foreign entity identifier.
func (ref *ToOneReference) Coerce(value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	if _, ok := value.(map[string]interface{}); ok {
		//embedded data hash is stored as is
		return value, nil
	}
	foreignDao, err := ref.ForeignDao()
	if err != nil {
		return nil, err
	}
	return foreignDao.CoerceId(value)
}

func (ref *ToOneReference) ExportValue(record *Record, attributeName string) (interface{}, error) {
	if !ref.exportable {
		return nil, NewReferenceUsageError(
			fmt.Sprintf("Reference '%s' is not exportable", attributeName), nil,
		)
	}
	return record.Data[attributeName], nil
}
