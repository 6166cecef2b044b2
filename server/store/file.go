package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	pkgerrors "github.com/pkg/errors"

	"rincewind/server/dao"
	"rincewind/server/errors"
)

const ErrFileFailed = "file_failed"

//FileStore backs Daos with one JSON file per resource: an array of raw row
//objects under <root>/<resource>.json. It serves the same backing-store
//contract as the SQL store; no query language is involved, so name and
//literal export are the identity.
type FileStore struct {
	root         string
	mutex        sync.Mutex
	lastInsertId interface{}
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

func (store *FileStore) ExportName(name string) string {
	return name
}

func (store *FileStore) ExportStringValue(value string) string {
	return value
}

func (store *FileStore) LastInsertId() (interface{}, error) {
	return store.lastInsertId, nil
}

func (store *FileStore) resourcePath(resource string) string {
	return filepath.Join(store.root, resource+".json")
}

func (store *FileStore) loadResource(resource string) ([]map[string]interface{}, error) {
	content, err := os.ReadFile(store.resourcePath(resource))
	if os.IsNotExist(err) {
		return make([]map[string]interface{}, 0), nil
	}
	if err != nil {
		return nil, errors.NewFatalError(ErrFileFailed, pkgerrors.Wrapf(err, "reading resource '%s'", resource).Error(), nil)
	}
	rows := make([]map[string]interface{}, 0)
	if err := json.Unmarshal(content, &rows); err != nil {
		return nil, errors.NewFatalError(ErrFileFailed, pkgerrors.Wrapf(err, "decoding resource '%s'", resource).Error(), nil)
	}
	return rows, nil
}

func (store *FileStore) saveResource(resource string, rows []map[string]interface{}) error {
	content, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return errors.NewFatalError(ErrFileFailed, err.Error(), nil)
	}
	if err := os.WriteFile(store.resourcePath(resource), content, 0644); err != nil {
		return errors.NewFatalError(ErrFileFailed, pkgerrors.Wrapf(err, "writing resource '%s'", resource).Error(), nil)
	}
	return nil
}

func (store *FileStore) Get(resource string, key string, value interface{}) (map[string]interface{}, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	rows, err := store.loadResource(resource)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if stringify(row[key]) == stringify(value) {
			return row, nil
		}
	}
	return nil, nil
}

func (store *FileStore) GetAll(resource string, filters map[string]interface{}) (dao.ResultSet, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	rows, err := store.loadResource(resource)
	if err != nil {
		return nil, err
	}
	matched := make([]map[string]interface{}, 0)
	for _, row := range rows {
		if matchesFilters(row, filters) {
			matched = append(matched, row)
		}
	}
	return dao.NewDataResultSet(matched), nil
}

func (store *FileStore) Query(resource string, rqlFilter string) (dao.ResultSet, error) {
	query, err := ParseRqlFilter(rqlFilter)
	if err != nil {
		return nil, err
	}
	store.mutex.Lock()
	defer store.mutex.Unlock()
	rows, err := store.loadResource(resource)
	if err != nil {
		return nil, err
	}
	return dao.NewDataResultSet(query.Apply(rows)), nil
}

func (store *FileStore) Insert(resource string, data map[string]interface{}) (map[string]interface{}, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	rows, err := store.loadResource(resource)
	if err != nil {
		return nil, err
	}
	row := make(map[string]interface{}, len(data))
	for column, value := range data {
		row[column] = value
	}
	if row["id"] == nil {
		row["id"] = nextId(rows)
	}
	rows = append(rows, row)
	if err := store.saveResource(resource, rows); err != nil {
		return nil, err
	}
	store.lastInsertId = row["id"]
	return row, nil
}

func (store *FileStore) Update(resource string, key string, keyValue interface{}, data map[string]interface{}) (map[string]interface{}, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	rows, err := store.loadResource(resource)
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		if stringify(row[key]) == stringify(keyValue) {
			for column, value := range data {
				row[column] = value
			}
			rows[i] = row
			if err := store.saveResource(resource, rows); err != nil {
				return nil, err
			}
			return row, nil
		}
	}
	return nil, errors.NewNotFoundError(ErrFileFailed, fmt.Sprintf("No row of '%s' has %s = '%v'", resource, key, keyValue), nil)
}

func (store *FileStore) Delete(resource string, key string, keyValue interface{}) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	rows, err := store.loadResource(resource)
	if err != nil {
		return err
	}
	remaining := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		if stringify(row[key]) != stringify(keyValue) {
			remaining = append(remaining, row)
		}
	}
	if len(remaining) == len(rows) {
		return errors.NewNotFoundError(ErrFileFailed, fmt.Sprintf("No row of '%s' has %s = '%v'", resource, key, keyValue), nil)
	}
	return store.saveResource(resource, remaining)
}

func matchesFilters(row map[string]interface{}, filters map[string]interface{}) bool {
	for column, value := range filters {
		if stringify(row[column]) != stringify(value) {
			return false
		}
	}
	return true
}

func nextId(rows []map[string]interface{}) float64 {
	maxId := float64(0)
	for _, row := range rows {
		if id, ok := row["id"].(float64); ok && id > maxId {
			maxId = id
		}
	}
	return maxId + 1
}
