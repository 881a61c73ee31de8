package config

import "reflect"

// changeEvent describes the transition from old to new, both pointers to
// the same struct type.
func changeEvent(old, new any) Event {
	return Event{
		ChangedKeys: changedFields(reflect.ValueOf(old), reflect.ValueOf(new)),
		OldConfig:   old,
		NewConfig:   new,
	}
}

// changedFields lists the exported top-level fields that differ.
func changedFields(old, new reflect.Value) []string {
	old, new = reflect.Indirect(old), reflect.Indirect(new)
	if old.Kind() != reflect.Struct || new.Kind() != reflect.Struct || old.Type() != new.Type() {
		return nil
	}
	var keys []string
	for _, f := range reflect.VisibleFields(old.Type()) {
		if !f.IsExported() || len(f.Index) > 1 {
			continue
		}
		if !reflect.DeepEqual(old.FieldByIndex(f.Index).Interface(), new.FieldByIndex(f.Index).Interface()) {
			keys = append(keys, f.Name)
		}
	}
	return keys
}
