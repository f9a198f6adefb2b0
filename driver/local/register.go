package local

import "github.com/gobeaver/identifile"

func init() {
	identifile.RegisterDriver("local", func(cfg *identifile.Config) (identifile.FileReader, error) {
		a, err := New(cfg.Root)
		if err != nil {
			return nil, err
		}
		return a, nil
	})
}
