package util

import (
	"reflect"

	"github.com/pkg/errors"
)

var ErrStructNil = errors.New("struct is nil")

// IsStructInitialized returns an error naming the first nil or zero field of
// the struct s points to. Fields tagged `wire:"-"` are skipped.
func IsStructInitialized(s any) error {
	v := reflect.ValueOf(s)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return ErrStructNil
		}
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return errors.Errorf("%s is not a struct", v.Kind())
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if field.Tag.Get("wire") == "-" {
			continue
		}

		if v.Field(i).IsZero() {
			return errors.Errorf("struct field %q is not initialized", field.Name)
		}
	}

	return nil
}
