package memory

import "github.com/gobeaver/identifile"

func init() {
	identifile.RegisterDriver("memory", func(cfg *identifile.Config) (identifile.FileReader, error) {
		return New(), nil
	})
}
