package config

import "reflect"

// diffEvent compares two configuration snapshots and builds the change
// notification. Changed fields are reported as dotted paths into the struct,
// such as "Server.Addr" or "Loader.MaxParallelism".
func diffEvent(old, new any) Event {
	var changedKeys []string

	if old == nil || new == nil {
		return Event{
			ChangedKeys: changedKeys,
			OldConfig:   old,
			NewConfig:   new,
		}
	}

	oldVal := reflect.ValueOf(old)
	newVal := reflect.ValueOf(new)

	// Dereference pointers if needed
	if oldVal.Kind() == reflect.Ptr {
		oldVal = oldVal.Elem()
	}
	if newVal.Kind() == reflect.Ptr {
		newVal = newVal.Elem()
	}

	// Only compute diffs for structs of the same type
	if oldVal.Kind() == reflect.Struct && newVal.Kind() == reflect.Struct && oldVal.Type() == newVal.Type() {
		changedKeys = appendChangedPaths(changedKeys, "", oldVal, newVal)
	}

	return Event{
		ChangedKeys: changedKeys,
		OldConfig:   old,
		NewConfig:   new,
	}
}

// appendChangedPaths walks exported struct fields recursively. A nested
// struct containing unexported fields is compared as one opaque value, since
// its internals are not part of the configuration surface.
func appendChangedPaths(paths []string, prefix string, oldVal, newVal reflect.Value) []string {
	t := oldVal.Type()
	for i := 0; i < oldVal.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue
		}
		name := field.Name
		if prefix != "" {
			name = prefix + "." + name
		}

		oldField := oldVal.Field(i)
		newField := newVal.Field(i)
		if oldField.Kind() == reflect.Struct && !hasUnexportedFields(oldField.Type()) {
			paths = appendChangedPaths(paths, name, oldField, newField)
			continue
		}
		if !reflect.DeepEqual(oldField.Interface(), newField.Interface()) {
			paths = append(paths, name)
		}
	}
	return paths
}

func hasUnexportedFields(t reflect.Type) bool {
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).PkgPath != "" {
			return true
		}
	}
	return false
}
