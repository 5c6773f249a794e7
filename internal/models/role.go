package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Role is the account type. Older records stored it as an integer code
// (1 admin, 2 customer, 3 meter reader); both forms are accepted on input,
// the string form is always written.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleCustomer    Role = "customer"
	RoleMeterReader Role = "meter_reader"
)

var legacyRoleCodes = map[int]Role{
	1: RoleAdmin,
	2: RoleCustomer,
	3: RoleMeterReader,
}

// ParseRole accepts the role name, a few spellings used by the dashboard,
// or a legacy integer code.
func ParseRole(s string) (Role, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "admin":
		return RoleAdmin, nil
	case "customer":
		return RoleCustomer, nil
	case "meter_reader", "meter-reader", "meterreader":
		return RoleMeterReader, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if r, ok := legacyRoleCodes[n]; ok {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCustomer, RoleMeterReader:
		return true
	}
	return false
}

func (r *Role) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseRole(s)
		if err != nil {
			return err
		}
		*r = parsed
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("role must be a string or an integer code: %w", err)
	}
	parsed, ok := legacyRoleCodes[n]
	if !ok {
		return fmt.Errorf("unknown role code %d", n)
	}
	*r = parsed
	return nil
}

// Scan migrates legacy integer codes as rows are read.
func (r *Role) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*r = ""
		return nil
	case int64:
		parsed, ok := legacyRoleCodes[int(v)]
		if !ok {
			return fmt.Errorf("unknown role code %d", v)
		}
		*r = parsed
		return nil
	case []byte:
		return r.scanString(string(v))
	case string:
		return r.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into Role", value)
	}
}

func (r *Role) scanString(s string) error {
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %q", string(r))
	}
	return string(r), nil
}
