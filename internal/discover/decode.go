package discover

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

var errTrailingData = errors.New("unexpected data after JSON value")

// DecodeJSON decodes a JSON document like json.Unmarshal into interface{},
// except that an object stored under searchRequest.facets becomes an array of
// its values in document order. Go maps drop key order, and facet order is
// significant to the API.
func DecodeJSON(raw []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	v, err := decodeValue(dec, "", "")
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailingData
	}
	return v, nil
}

// decodeValue reads the next value. parent and key are the object keys the
// value sits under; array elements have neither.
func decodeValue(dec *json.Decoder, parent, key string) (interface{}, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '[':
		arr := []interface{}{}
		for dec.More() {
			v, err := decodeValue(dec, "", "")
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil

	case '{':
		keepOrder := parent == "searchRequest" && key == "facets"
		obj := map[string]interface{}{}
		var ordered []interface{}
		position := map[string]int{}

		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			k, _ := kt.(string)
			v, err := decodeValue(dec, key, k)
			if err != nil {
				return nil, err
			}

			if !keepOrder {
				obj[k] = v
				continue
			}
			// a repeated key replaces the earlier value in place
			if i, seen := position[k]; seen {
				ordered[i] = v
				continue
			}
			position[k] = len(ordered)
			ordered = append(ordered, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}

		if keepOrder {
			if ordered == nil {
				ordered = []interface{}{}
			}
			return ordered, nil
		}
		return obj, nil
	}
	return nil, errors.New("unexpected JSON delimiter")
}
