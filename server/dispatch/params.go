package dispatch

import (
	"fmt"
	"strconv"
	"time"
)

//ParamFactory constructs a domain value object from one raw positional
//string parameter. Construction failure is signaled distinctly through the
//error return; the Dispatcher maps it to a bad-request classification.
//
//Action tables only accept ParamFactory entries, so the set of callable
//parameter types is closed by construction, no runtime introspection needed.
type ParamFactory func(raw string) (interface{}, error)

func IntParam(raw string) (interface{}, error) {
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("'%s' is not an integer", raw)
	}
	return value, nil
}

func NumberParam(raw string) (interface{}, error) {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("'%s' is not a number", raw)
	}
	return value, nil
}

func StringParam(raw string) (interface{}, error) {
	return raw, nil
}

func BoolParam(raw string) (interface{}, error) {
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("'%s' is not a boolean", raw)
	}
	return value, nil
}

func DateParam(raw string) (interface{}, error) {
	if _, err := time.Parse("2006-01-02", raw); err != nil {
		return nil, fmt.Errorf("'%s' is not a date", raw)
	}
	return raw, nil
}
