package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SeedTenant is one deterministic example tenant used to seed an empty
// registry for admins when both the remote store and the cache are
// unreachable.
type SeedTenant struct {
	ID              string     `yaml:"id"`
	CNPJ            string     `yaml:"cnpj"`
	Name            string     `yaml:"name"`
	Password        string     `yaml:"password"`
	Email           string     `yaml:"email"`
	MaintenanceDate *time.Time `yaml:"maintenance_date"`
}

// Settings is the operator-editable part of the configuration: the
// administrator allow-list and the seed tenants. Loaded from a YAML
// file next to the binary; every field has a code default so a missing
// file is not an error.
type Settings struct {
	AdminEmails []string     `yaml:"admin_emails"`
	SeedTenants []SeedTenant `yaml:"seed_tenants"`
}

// LoadSettings reads the settings file, merging the ADMIN_EMAILS env
// variable (comma-separated) into the allow-list. A missing file yields
// the defaults; a malformed file is an error.
func LoadSettings(path string) (*Settings, error) {
	s := defaultSettings()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// fall through to defaults
	case err != nil:
		return nil, fmt.Errorf("read settings file: %w", err)
	default:
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("parse settings file %s: %w", path, err)
		}
	}

	if extra := os.Getenv("ADMIN_EMAILS"); extra != "" {
		for _, email := range strings.Split(extra, ",") {
			if email = strings.TrimSpace(email); email != "" {
				s.AdminEmails = append(s.AdminEmails, email)
			}
		}
	}

	return s, nil
}

func defaultSettings() *Settings {
	return &Settings{
		SeedTenants: []SeedTenant{
			{
				ID:       "6f1a2d9e-0b6b-4c7a-9a65-3f6f8b1c2d01",
				CNPJ:     "43779205000120",
				Name:     "Empresa Exemplo",
				Password: "senha123",
				Email:    "contato@exemplo.com.br",
			},
			{
				ID:       "6f1a2d9e-0b6b-4c7a-9a65-3f6f8b1c2d02",
				CNPJ:     "61148052000716",
				Name:     "Comercio Modelo",
				Password: "senha123",
			},
		},
	}
}
