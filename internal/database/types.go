package database

import "strings"

// DbType identifies a database backend
type DbType string

const (
	DbTypePostgres DbType = "postgres"
	DbTypeSQLite   DbType = "sqlite"
	DbTypeMemory   DbType = "memory"
	// Add more database types here as you implement them
)

func (t DbType) String() string {
	return string(t)
}

// IsValid reports whether the type is one the factory knows how to build
func (t DbType) IsValid() bool {
	switch DbType(strings.ToLower(string(t))) {
	case DbTypePostgres, DbTypeSQLite, DbTypeMemory:
		return true
	default:
		return false
	}
}

// DbProviderConfig is the JSON document passed through DB_CONFIG.
//
//	{"db_type":"postgres","extra_details":{"conn_str":"postgres://..."}}
//	{"db_type":"sqlite","extra_details":{"path":"careportal.db"}}
//	{"db_type":"memory","extra_details":{}}
type DbProviderConfig struct {
	DbType       DbType                 `json:"db_type"`
	ExtraDetails map[string]interface{} `json:"extra_details"`
}

func (c DbProviderConfig) stringDetail(key string) (string, bool) {
	v, ok := c.ExtraDetails[key].(string)
	return v, ok && v != ""
}

func (c DbProviderConfig) intDetail(key string, def int) int {
	// encoding/json decodes numbers into float64
	if v, ok := c.ExtraDetails[key].(float64); ok && v > 0 {
		return int(v)
	}
	return def
}
