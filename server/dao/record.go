package dao

import (
	"fmt"

	"rincewind/server/errors"
)

//Record is a loaded entity instance. It owns its raw attribute data and a
//cache of resolved references. The Dao behind it is a shared dependency, not
//an owned one; a Record is safe only under single-threaded access.
type Record struct {
	dao            *Dao
	Data           map[string]interface{}
	referenceCache map[string]interface{}
}

func NewRecord(dao *Dao, data map[string]interface{}) *Record {
	return &Record{dao: dao, Data: data, referenceCache: make(map[string]interface{})}
}

func (record *Record) Dao() *Dao {
	return record.dao
}

//PkValue returns the value of the record's key attribute.
func (record *Record) PkValue() interface{} {
	return record.Data[record.dao.description.Key]
}

func (record *Record) GetValue(name string) interface{} {
	return record.Data[name]
}

//SetValue coerces the supplied value through the attribute's rules (or the
//registered reference's rules for reference attributes) before storing it.
func (record *Record) SetValue(name string, value interface{}) error {
	if reference, ok := record.dao.references[name]; ok {
		coerced, err := reference.Coerce(value)
		if err != nil {
			return err
		}
		record.Data[name] = coerced
		return nil
	}
	attribute := record.dao.description.FindAttribute(name)
	if attribute == nil {
		return errors.NewFatalError(
			ErrUnknownAttribute, fmt.Sprintf("Entity '%s' has no attribute '%s'", record.dao.description.Name, name), nil,
		)
	}
	coerced, err := attribute.CoerceValue(value)
	if err != nil {
		return err
	}
	record.Data[name] = coerced
	return nil
}

//GetReferenced resolves the reference registered under attributeName. A
//reference is resolved at most once per Record: subsequent calls return the
//cached result until it is explicitly invalidated.
func (record *Record) GetReferenced(attributeName string) (interface{}, error) {
	if cached, ok := record.referenceCache[attributeName]; ok {
		return cached, nil
	}
	reference, ok := record.dao.references[attributeName]
	if !ok {
		return nil, errors.NewFatalError(
			ErrUnknownAttribute,
			fmt.Sprintf("Entity '%s' has no reference registered under '%s'", record.dao.description.Name, attributeName), nil,
		)
	}
	referenced, err := reference.GetReferenced(record, attributeName)
	if err != nil {
		return nil, err
	}
	if reference.cachesOnRecord() {
		return record.CacheReference(attributeName, referenced), nil
	}
	return referenced, nil
}

//CacheReference stores an already-resolved reference result under the
//attribute name and returns it, so resolution sites can cache and return in
//one step.
func (record *Record) CacheReference(attributeName string, value interface{}) interface{} {
	record.referenceCache[attributeName] = value
	return value
}

func (record *Record) CachedReference(attributeName string) (interface{}, bool) {
	cached, ok := record.referenceCache[attributeName]
	return cached, ok
}

func (record *Record) InvalidateReference(attributeName string) {
	delete(record.referenceCache, attributeName)
}
