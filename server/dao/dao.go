package dao

import (
	"fmt"

	"rincewind/logger"
	"rincewind/server/errors"
)

//RecordCache is an optional cross-request cache of raw record data, keyed by
//resource and stringified key. Lookups are best-effort.
type RecordCache interface {
	Get(resource string, key string) (map[string]interface{}, bool)
	Set(resource string, key string, data map[string]interface{})
	Invalidate(resource string, key string)
}

//Dao is the gateway between one entity type and one backing store. It owns
//the attribute name mapping, the per-attribute coercion rules and the
//reference registry for its entity type. A Dao is long-lived and effectively
//read-only after construction; registering a reference after first use is
//unsupported.
type Dao struct {
	description *EntityDescription
	store       Store
	registry    *Registry
	references  map[string]Reference

	importMapping map[string]string
	exportMapping map[string]string

	recordCache RecordCache
}

func NewDao(description *EntityDescription, store Store, registry *Registry) *Dao {
	importMapping := make(map[string]string)
	exportMapping := make(map[string]string)
	for i := range description.Attributes {
		attribute := &description.Attributes[i]
		importMapping[attribute.ColumnName()] = attribute.Name
		exportMapping[attribute.Name] = attribute.ColumnName()
	}
	return &Dao{
		description:   description,
		store:         store,
		registry:      registry,
		references:    make(map[string]Reference),
		importMapping: importMapping,
		exportMapping: exportMapping,
	}
}

func (dao *Dao) Description() *EntityDescription {
	return dao.description
}

func (dao *Dao) SetRecordCache(cache RecordCache) {
	dao.recordCache = cache
}

func (dao *Dao) RegisterReference(attributeName string, reference Reference) {
	reference.bind(dao)
	dao.references[attributeName] = reference
}

func (dao *Dao) Reference(attributeName string) (Reference, bool) {
	reference, ok := dao.references[attributeName]
	return reference, ok
}

//CreateDao returns the argument unchanged if it already is a Dao instance and
//resolves a name through the registry otherwise.
func (dao *Dao) CreateDao(nameOrInstance interface{}) (*Dao, error) {
	switch foreignDao := nameOrInstance.(type) {
	case *Dao:
		return foreignDao, nil
	case string:
		return dao.registry.Get(foreignDao)
	default:
		return nil, errors.NewFatalError(
			ErrDaoNotFound, fmt.Sprintf("Expected a Dao instance or a registered name, got '%T'", nameOrInstance), nil,
		)
	}
}

//ImportAttributeName translates a storage-facing spelling into the
//domain-facing one. Unknown names fail lookup.
func (dao *Dao) ImportAttributeName(storageName string) (string, error) {
	if attributeName, ok := dao.importMapping[storageName]; ok {
		return attributeName, nil
	}
	return "", errors.NewFatalError(
		ErrUnknownAttribute, fmt.Sprintf("Entity '%s' has no attribute stored as '%s'", dao.description.Name, storageName), nil,
	)
}

//ExportAttributeName translates a domain-facing attribute name into its
//storage-facing lexical form, escaped by the store's rules.
func (dao *Dao) ExportAttributeName(name string) (string, error) {
	if storageName, ok := dao.exportMapping[name]; ok {
		return dao.store.ExportName(storageName), nil
	}
	return "", errors.NewFatalError(
		ErrUnknownAttribute, fmt.Sprintf("Entity '%s' has no attribute '%s'", dao.description.Name, name), nil,
	)
}

func (dao *Dao) ExportResourceName() string {
	return dao.store.ExportName(dao.description.Resource)
}

func (dao *Dao) ExportString(value string) string {
	return dao.store.ExportStringValue(value)
}

//GetObjectFromDatabaseData constructs a Record from a raw row, applying
//import-direction name mapping and per-attribute coercion. Columns belonging
//to registered references are carried over untouched for lazy resolution.
func (dao *Dao) GetObjectFromDatabaseData(rawData map[string]interface{}) (*Record, error) {
	data := make(map[string]interface{})
	for storageName, rawValue := range rawData {
		if attributeName, ok := dao.importMapping[storageName]; ok {
			attribute := dao.description.FindAttribute(attributeName)
			value, err := attribute.CoerceValue(rawValue)
			if err != nil {
				return nil, err
			}
			data[attributeName] = value
		} else if _, ok := dao.references[storageName]; ok {
			data[storageName] = rawValue
		} else {
			logger.Debug("Skipping unknown column '%s' of resource '%s'", storageName, dao.description.Resource)
		}
	}
	return NewRecord(dao, data), nil
}

//CreateIterator wraps a store-native result set in the iterator contract.
func (dao *Dao) CreateIterator(resultSet ResultSet) *ResultIterator {
	return newResultIterator(dao, resultSet)
}

//GetLastInsertId returns the identifier generated by the most recent insert
//on this Dao's connection. Undefined if no insert has occurred.
func (dao *Dao) GetLastInsertId() (interface{}, error) {
	return dao.store.LastInsertId()
}

//CoerceId validates a value as an identifier of this Dao's entity type.
func (dao *Dao) CoerceId(value interface{}) (interface{}, error) {
	keyAttribute := dao.description.KeyAttribute()
	if keyAttribute == nil {
		return nil, errors.NewFatalError(
			ErrUnknownAttribute, fmt.Sprintf("Entity '%s' has no key attribute '%s'", dao.description.Name, dao.description.Key), nil,
		)
	}
	return keyAttribute.CoerceValue(value)
}

func (dao *Dao) fetchRawByKey(key string, value interface{}) (map[string]interface{}, error) {
	storageName, ok := dao.exportMapping[key]
	if !ok {
		storageName = key
	}
	return dao.store.Get(dao.description.Resource, storageName, value)
}

//Get fetches a single record by its stringified key.
func (dao *Dao) Get(key string) (*Record, error) {
	keyAttribute := dao.description.KeyAttribute()
	pkValue, err := keyAttribute.ValueFromString(key)
	if err != nil {
		return nil, NewCoercionError(
			fmt.Sprintf("Key '%s' cannot be coerced for entity '%s'", key, dao.description.Name), key,
		)
	}
	if dao.recordCache != nil {
		if rawData, ok := dao.recordCache.Get(dao.description.Resource, key); ok {
			return dao.GetObjectFromDatabaseData(rawData)
		}
	}
	rawData, err := dao.fetchRawByKey(dao.description.Key, pkValue)
	if err != nil {
		return nil, err
	}
	if rawData == nil {
		return nil, nil
	}
	if dao.recordCache != nil {
		dao.recordCache.Set(dao.description.Resource, key, rawData)
	}
	return dao.GetObjectFromDatabaseData(rawData)
}

//GetAll fetches records matching the domain-keyed filters.
func (dao *Dao) GetAll(filters map[string]interface{}) (*ResultIterator, error) {
	storageFilters := make(map[string]interface{})
	for attributeName, value := range filters {
		if storageName, ok := dao.exportMapping[attributeName]; ok {
			storageFilters[storageName] = value
		} else {
			storageFilters[attributeName] = value
		}
	}
	resultSet, err := dao.store.GetAll(dao.description.Resource, storageFilters)
	if err != nil {
		return nil, err
	}
	return dao.CreateIterator(resultSet), nil
}

//GetBulk fetches records matching an RQL filter expression.
func (dao *Dao) GetBulk(rqlFilter string) (*ResultIterator, error) {
	resultSet, err := dao.store.Query(dao.description.Resource, rqlFilter)
	if err != nil {
		return nil, err
	}
	return dao.CreateIterator(resultSet), nil
}

//Insert persists a new record and refreshes it with the stored row, which
//carries generated values.
func (dao *Dao) Insert(record *Record) error {
	data, err := dao.exportData(record)
	if err != nil {
		return err
	}
	storedData, err := dao.store.Insert(dao.description.Resource, data)
	if err != nil {
		return err
	}
	stored, err := dao.GetObjectFromDatabaseData(storedData)
	if err != nil {
		return err
	}
	record.Data = stored.Data
	dao.invalidateCached(record)
	return nil
}

func (dao *Dao) Update(record *Record) error {
	data, err := dao.exportData(record)
	if err != nil {
		return err
	}
	keyColumn := dao.exportMapping[dao.description.Key]
	storedData, err := dao.store.Update(dao.description.Resource, keyColumn, record.PkValue(), data)
	if err != nil {
		return err
	}
	stored, err := dao.GetObjectFromDatabaseData(storedData)
	if err != nil {
		return err
	}
	record.Data = stored.Data
	dao.invalidateCached(record)
	return nil
}

func (dao *Dao) Delete(record *Record) error {
	keyColumn := dao.exportMapping[dao.description.Key]
	if err := dao.store.Delete(dao.description.Resource, keyColumn, record.PkValue()); err != nil {
		return err
	}
	dao.invalidateCached(record)
	return nil
}

//exportData builds the storage-shaped data hash for persistence. References
//participate only when exportable; non-exportable ones are skipped.
func (dao *Dao) exportData(record *Record) (map[string]interface{}, error) {
	data := make(map[string]interface{})
	for name, value := range record.Data {
		if reference, ok := dao.references[name]; ok {
			if !reference.Exportable() {
				continue
			}
			exported, err := reference.ExportValue(record, name)
			if err != nil {
				return nil, err
			}
			data[name] = exported
			continue
		}
		attribute := dao.description.FindAttribute(name)
		if attribute == nil {
			return nil, errors.NewFatalError(
				ErrUnknownAttribute, fmt.Sprintf("Entity '%s' has no attribute '%s'", dao.description.Name, name), nil,
			)
		}
		data[attribute.ColumnName()] = value
	}
	return data, nil
}

func (dao *Dao) invalidateCached(record *Record) {
	if dao.recordCache == nil {
		return
	}
	if pkValue := record.PkValue(); pkValue != nil {
		if key, err := dao.description.KeyAttribute().ValueAsString(pkValue); err == nil {
			dao.recordCache.Invalidate(dao.description.Resource, key)
		}
	}
}
