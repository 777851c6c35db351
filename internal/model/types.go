package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringList is an ordered list of names stored as a JSON column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	return string(b), err
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*l = StringList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return err
	}
	if items == nil {
		items = []string{}
	}
	*l = items
	return nil
}

// MarshalJSON renders a nil list as [] so every backend emits the same shape.
func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// Contains reports whether name is in the list.
func (l StringList) Contains(name string) bool {
	for _, item := range l {
		if item == name {
			return true
		}
	}
	return false
}
