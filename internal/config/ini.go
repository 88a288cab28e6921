//-------------------------------------------------------------------------
//
// pgEdge Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package config

import (
	"strings"

	"github.com/go-ini/ini"
)

// clusterKeys are the connection keys in the order the Python scripts
// read them from the cluster section.
var clusterKeys = []string{"host", "dbname", "user", "password", "port"}

// clusterAliases maps other common key names onto clusterKeys.
var clusterAliases = map[string]string{
	"db_host":     "host",
	"db_name":     "dbname",
	"db_user":     "user",
	"db_password": "password",
	"db_port":     "port",
}

// readINI loads a legacy INI file as the nested map viper expects:
// sections become sub-maps and keys of the default section land at the
// top level. Section and key names are lowercased.
func readINI(path string) (map[string]any, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		Insensitive: true,
		// Passwords may contain ';' and '#'.
		IgnoreInlineComment: true,
	}, path)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any)
	for _, sec := range f.Sections() {
		keys := sec.Keys()
		if len(keys) == 0 {
			continue
		}

		values := make(map[string]any, len(keys))
		for _, k := range keys {
			values[k.Name()] = k.String()
		}
		if sec.Name() == "cluster" {
			normalizeCluster(values, keys)
		}

		if strings.EqualFold(sec.Name(), ini.DefaultSection) {
			for k, val := range values {
				out[k] = val
			}
			continue
		}
		out[sec.Name()] = values
	}
	return out, nil
}

// normalizeCluster fills the connection keys of the cluster section.
// Aliased names are copied when the key itself is absent. A section of
// exactly five keys with none of the known names is read by position,
// the way the Python scripts read it.
func normalizeCluster(values map[string]any, keys []*ini.Key) {
	for alias, key := range clusterAliases {
		if v, ok := values[alias]; ok {
			if _, set := values[key]; !set {
				values[key] = v
			}
		}
	}

	for _, key := range clusterKeys {
		if _, ok := values[key]; ok {
			return
		}
	}
	if len(keys) != len(clusterKeys) {
		return
	}
	for i, key := range clusterKeys {
		values[key] = keys[i].String()
	}
}
