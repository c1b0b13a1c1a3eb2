package domain

import "dario.cat/mergo"

// MergeFields folds a worker's update into the current field map without
// mutating either input. Updates win on conflicting scalar keys and
// slices are appended, so two workers contributing to the same list both
// land.
func MergeFields(current, update map[string]interface{}) (map[string]interface{}, error) {
	merged := make(map[string]interface{}, len(current)+len(update))
	for k, v := range current {
		merged[k] = v
	}
	if err := mergo.Merge(&merged, update, mergo.WithOverride, mergo.WithAppendSlice); err != nil {
		return nil, NewEngineError("state", "merge", err)
	}
	return merged, nil
}
