package zip

import (
	"fmt"

	"github.com/gobeaver/identifile"
)

func init() {
	identifile.RegisterDriver("zip", func(cfg *identifile.Config) (identifile.FileReader, error) {
		// Root names the archive file rather than a directory
		if cfg == nil || cfg.Root == "" {
			return nil, fmt.Errorf("zip driver requires Root to be set to the ZIP file path")
		}

		a, err := Open(cfg.Root)
		if err != nil {
			return nil, err
		}
		return a, nil
	})
}
