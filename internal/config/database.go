package config

import "fmt"

// DatabaseConfig selects the backing database. Exactly one of Path (embedded
// SQLite), URL (single connection string), or Server+Name+credentials is
// expected; Path wins for local and test deployments.
type DatabaseConfig struct {
	Path     string `yaml:"path" json:"path"`
	URL      string `yaml:"url" json:"url"`
	Server   string `yaml:"server" json:"server"`
	Name     string `yaml:"name" json:"name"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
}

// DSN resolves the SQLite data source name. Server-based configs map to a
// network filesystem path convention used by ops tooling.
func (d DatabaseConfig) DSN() (string, error) {
	switch {
	case d.URL != "":
		return d.URL, nil
	case d.Path != "":
		return d.Path, nil
	case d.Server != "" && d.Name != "":
		return fmt.Sprintf("//%s/%s.db", d.Server, d.Name), nil
	default:
		return "", fmt.Errorf("no database configured")
	}
}
