package util

import (
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONString compact form for log lines, "" when v cannot be encoded
func JSONString(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

// JSONPretty two space indented form for command line output; empty objects
// and arrays stay on one line
func JSONPretty(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	if len(data) <= 2 {
		return string(data)
	}
	if data, err = json.MarshalIndent(v, "", "  "); err != nil {
		return ""
	}
	return string(data)
}
