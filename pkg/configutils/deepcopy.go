package configutils

// DeepCopy copies a decoded JSON structure. Maps and slices are copied recursively; scalars (including `json.Number`) are shared as they are immutable.
func DeepCopy(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		if x == nil {
			return x
		}
		ret := make(map[string]interface{}, len(x))
		for k, e := range x {
			ret[k] = DeepCopy(e)
		}
		return ret
	case []interface{}:
		if x == nil {
			return x
		}
		ret := make([]interface{}, len(x))
		for i, e := range x {
			ret[i] = DeepCopy(e)
		}
		return ret
	case []string:
		if x == nil {
			return x
		}
		return append([]string(nil), x...)
	default:
		return v
	}
}
