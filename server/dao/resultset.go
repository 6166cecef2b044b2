package dao

//dataResultSet serves rows from an in-memory collection. It backs iterators
//built over embedded reference data and over rows already parsed by a store.
type dataResultSet struct {
	rows       []map[string]interface{}
	currentRow int
}

func NewDataResultSet(rows []map[string]interface{}) ResultSet {
	return &dataResultSet{rows: rows}
}

func (rs *dataResultSet) NumRows() int {
	return len(rs.rows)
}

func (rs *dataResultSet) Reset() error {
	rs.currentRow = 0
	return nil
}

func (rs *dataResultSet) FetchRow() (map[string]interface{}, error) {
	if rs.currentRow >= len(rs.rows) {
		return nil, nil
	}
	row := rs.rows[rs.currentRow]
	rs.currentRow++
	return row, nil
}

//keyListResultSet resolves a list of scalar identifiers against a foreign
//Dao, one store round-trip per pulled row, keyed by the foreign key.
type keyListResultSet struct {
	foreignDao *Dao
	foreignKey string
	ids        []interface{}
	currentRow int
}

func NewKeyListResultSet(foreignDao *Dao, foreignKey string, ids []interface{}) ResultSet {
	return &keyListResultSet{foreignDao: foreignDao, foreignKey: foreignKey, ids: ids}
}

func (rs *keyListResultSet) NumRows() int {
	return len(rs.ids)
}

func (rs *keyListResultSet) Reset() error {
	rs.currentRow = 0
	return nil
}

func (rs *keyListResultSet) FetchRow() (map[string]interface{}, error) {
	if rs.currentRow >= len(rs.ids) {
		return nil, nil
	}
	id := rs.ids[rs.currentRow]
	rs.currentRow++
	return rs.foreignDao.fetchRawByKey(rs.foreignKey, id)
}
