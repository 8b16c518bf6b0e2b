package aggregates

import (
	"encoding/json"

	"gorm.io/datatypes"
)

func emptyObject() datatypes.JSON { return datatypes.JSON([]byte("{}")) }

// jsonObject encodes m, defaulting to {} for nil.
func jsonObject(m map[string]any) (datatypes.JSON, error) {
	if m == nil {
		return emptyObject(), nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, ValidationError("invalid json object: " + err.Error())
	}
	return datatypes.JSON(b), nil
}

// jsonStrings encodes a string list, defaulting to [] for nil.
func jsonStrings(list []string) (datatypes.JSON, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return nil, ValidationError("invalid string list: " + err.Error())
	}
	return datatypes.JSON(b), nil
}

// mergeJSONObject overlays patch onto the stored object; a nil value removes
// the key. A stored value that is not an object is replaced.
func mergeJSONObject(current datatypes.JSON, patch map[string]any) (datatypes.JSON, error) {
	base := map[string]any{}
	if len(current) > 0 {
		if err := json.Unmarshal(current, &base); err != nil || base == nil {
			base = map[string]any{}
		}
	}
	for k, v := range patch {
		if v == nil {
			delete(base, k)
			continue
		}
		base[k] = v
	}
	return jsonObject(base)
}
