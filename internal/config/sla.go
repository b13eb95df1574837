package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"ministry-assetloan/internal/core/domain"

	"gopkg.in/yaml.v3"
)

// slaFile is the on-disk layout of the SLA window table:
//
//	windows:
//	  critical: 4h
//	  high: 8h
type slaFile struct {
	Windows map[string]string `yaml:"windows"`
}

// LoadSLATable reads the SLA window table from path. Priorities missing
// from the file keep their default window. A missing file yields the defaults.
func LoadSLATable(path string) (domain.SLATable, error) {
	table := domain.DefaultSLATable()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("⚠️ SLA config %s not found, using defaults", path)
		return table, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read SLA config: %w", err)
	}

	return ParseSLATable(data)
}

// ParseSLATable parses YAML SLA windows on top of the defaults
func ParseSLATable(data []byte) (domain.SLATable, error) {
	table := domain.DefaultSLATable()

	var file slaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse SLA config: %w", err)
	}

	for key, raw := range file.Windows {
		p := domain.Priority(key)
		if !p.Valid() {
			return nil, fmt.Errorf("SLA config: unknown priority %q", key)
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("SLA config: priority %s: %w", key, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("SLA config: priority %s: window must be positive", key)
		}
		table[p] = d
	}
	return table, nil
}
