package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/zheng/rdecomp/internal/gateway"
	"github.com/zheng/rdecomp/internal/loader"
	"github.com/zheng/rdecomp/internal/storage"
)

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// openGateway serves queries from the export file when one is given and from
// the program database otherwise. The returned func releases the gateway.
func openGateway(exportPath string) (gateway.Gateway, func() error, error) {
	if exportPath != "" {
		prog, err := loader.Load(exportPath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load export: %w", err)
		}
		return gateway.NewMemory(prog), func() error { return nil }, nil
	}

	db, err := openDB()
	if err != nil {
		return nil, nil, err
	}
	return db, db.Close, nil
}

// openDB opens an existing program database; it never creates one
func openDB() (*storage.DB, error) {
	if _, err := os.Stat(cfg.Database); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("program database %s does not exist, run `rdecomp import` first", cfg.Database)
		}
		return nil, err
	}
	db, err := storage.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}
