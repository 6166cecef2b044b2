package dao

import (
	"rincewind/server/errors"
)

const (
	ErrCoercionFailed   = "coercion_failed"
	ErrConversionFailed = "conversion_failed"
	ErrReferenceUsage   = "reference_usage_error"
	ErrUnknownAttribute = "unknown_attribute"
	ErrDaoNotFound      = "dao_not_found"
	ErrIteratorNoData   = "iterator_no_data"
	ErrRecordNotFound   = "record_not_found"
)

//NewCoercionError reports a failed normalization of an externally supplied
//value. The offending value travels with the error, a default is never
//substituted silently.
func NewCoercionError(msg string, value interface{}) *errors.ServerError {
	return errors.NewValidationError(ErrCoercionFailed, msg, value)
}

func IsCoercionError(err error) bool {
	if serverError, ok := err.(*errors.ServerError); ok {
		return serverError.Code == ErrCoercionFailed
	}
	return false
}

//NewReferenceUsageError reports programmer error in reference configuration
//or usage. These fail immediately and are never recovered silently.
func NewReferenceUsageError(msg string, data interface{}) *errors.ServerError {
	return errors.NewFatalError(ErrReferenceUsage, msg, data)
}
