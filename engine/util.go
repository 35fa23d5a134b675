package engine

import (
	"encoding/json"
	"strconv"
)

func itoa(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// marshalState encodes an audit snapshot map, tolerating nil.
func marshalState(state map[string]any) []byte {
	if state == nil {
		return nil
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return nil
	}
	return raw
}
