package dao

//ResultSet is the raw cursor contract every backing store must satisfy: a
//fixed row count, a rewind-to-start and a row pull returning either a raw row
//(storage column name -> value) or nil when exhausted.
type ResultSet interface {
	NumRows() int
	Reset() error
	FetchRow() (map[string]interface{}, error)
}

//Store is the backing-store contract consumed by a Dao. A concrete store owns
//the connection and the lexical rules of its query language; in particular
//ExportName and ExportStringValue must apply store-correct escaping.
type Store interface {
	Get(resource string, key string, value interface{}) (map[string]interface{}, error)
	GetAll(resource string, filters map[string]interface{}) (ResultSet, error)
	Query(resource string, rqlFilter string) (ResultSet, error)
	Insert(resource string, data map[string]interface{}) (map[string]interface{}, error)
	Update(resource string, key string, keyValue interface{}, data map[string]interface{}) (map[string]interface{}, error)
	Delete(resource string, key string, keyValue interface{}) error
	LastInsertId() (interface{}, error)
	ExportName(name string) string
	ExportStringValue(value string) string
}
