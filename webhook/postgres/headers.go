package postgres

import (
	"encoding/json"
)

// Headers are stored verbatim as JSONB; a nil map round-trips as NULL.

func marshalHeaders(headers map[string]string) ([]byte, error) {
	if headers == nil {
		return nil, nil
	}
	return json.Marshal(headers)
}

func unmarshalHeaders(data []byte) (map[string]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var headers map[string]string
	if err := json.Unmarshal(data, &headers); err != nil {
		return nil, err
	}
	return headers, nil
}
