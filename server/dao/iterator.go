package dao

import (
	"rincewind/server/errors"
)

//ResultIterator is a forward cursor over a raw result set which lazily
//materializes one domain Record per row through its owning Dao.
//
//The cursor is pre-advanced on construction: Key() reports 1 before any
//Current() call. Count() is captured at construction and never re-queried.
//Current() asks the Dao for a fresh materialization on every call; callers
//must not assume memoization.
type ResultIterator struct {
	dao         *Dao
	resultSet   ResultSet
	length      int
	currentKey  int
	currentData map[string]interface{}
	arrayMode   bool
	err         error
}

func newResultIterator(dao *Dao, resultSet ResultSet) *ResultIterator {
	iterator := &ResultIterator{dao: dao, resultSet: resultSet, length: resultSet.NumRows()}
	iterator.Next()
	return iterator
}

func (it *ResultIterator) Count() int {
	return it.length
}

func (it *ResultIterator) Key() int {
	return it.currentKey
}

//Valid is true iff the cursor rests on a row and no store failure occurred.
func (it *ResultIterator) Valid() bool {
	return it.err == nil && it.currentData != nil
}

//Err returns the store failure which ended iteration, if any.
func (it *ResultIterator) Err() error {
	return it.err
}

//Next advances the logical key by 1 and pulls exactly one row from the
//underlying store. Returns the iterator itself for chaining.
func (it *ResultIterator) Next() *ResultIterator {
	it.currentKey++
	it.currentData, it.err = it.resultSet.FetchRow()
	return it
}

//Rewind resets the underlying store position and lands the cursor back on
//logical position 1. On an empty result set it is a no-op.
func (it *ResultIterator) Rewind() *ResultIterator {
	if it.length > 0 {
		if err := it.resultSet.Reset(); err != nil {
			it.err = err
			return it
		}
		it.err = nil
		it.currentKey = 0
		it.Next()
	}
	return it
}

//Current materializes the row under the cursor through the owning Dao. With
//array mode set it returns the record's plain attribute mapping instead.
func (it *ResultIterator) Current() (interface{}, error) {
	if it.err != nil {
		return nil, it.err
	}
	if it.currentData == nil {
		return nil, errors.NewFatalError(ErrIteratorNoData, "Current() called on an exhausted iterator", nil)
	}
	record, err := it.dao.GetObjectFromDatabaseData(it.currentData)
	if err != nil {
		return nil, err
	}
	if it.arrayMode {
		return record.Data, nil
	}
	return record, nil
}

//AsArrays makes Current() return plain attribute mappings instead of Records.
func (it *ResultIterator) AsArrays() *ResultIterator {
	it.arrayMode = true
	return it
}

//All drains the iterator from the start and collects every materialized row.
func (it *ResultIterator) All() ([]interface{}, error) {
	result := make([]interface{}, 0, it.length)
	for it.Rewind(); it.Valid(); it.Next() {
		current, err := it.Current()
		if err != nil {
			return nil, err
		}
		result = append(result, current)
	}
	if it.err != nil {
		return nil, it.err
	}
	return result, nil
}
