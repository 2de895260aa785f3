package index

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// ValueToString convert a single property value into its textual form
func ValueToString(v interface{}) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case json.Number:
		return string(val), nil
	case bool:
		return strconv.FormatBool(val), nil
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano), nil
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%v", val), nil
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%v", val), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), nil
	default:
		return "", fmt.Errorf("unsupported value type: %T", v)
	}
}

// ValuesToStrings convert a value or a slice of values into strings,
// multi-valued properties arrive as slices from yaml/json decoders
func ValuesToStrings(v interface{}) ([]string, error) {
	if v == nil {
		return nil, nil
	}

	switch val := v.(type) {
	case string, json.Number, bool, time.Time, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float64, float32:
		s, err := ValueToString(val)
		if err != nil {
			return nil, err
		}
		return []string{s}, nil

	case []string:
		return val, nil
	case []interface{}:
		result := make([]string, len(val))
		for i, elem := range val {
			s, err := ValueToString(elem)
			if err != nil {
				return nil, err
			}
			result[i] = s
		}
		return result, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
	result := make([]string, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		s, err := ValueToString(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		result[i] = s
	}
	return result, nil
}
