package app

import (
	"io"

	"github.com/specialistvlad/recipegrid/internal/registry"
	"github.com/specialistvlad/recipegrid/modules/command"
	"github.com/specialistvlad/recipegrid/modules/env_vars"
	"github.com/specialistvlad/recipegrid/modules/filesystem"
	"github.com/specialistvlad/recipegrid/modules/grep"
	"github.com/specialistvlad/recipegrid/modules/http_exporter"
	"github.com/specialistvlad/recipegrid/modules/print"
	"github.com/specialistvlad/recipegrid/modules/socketio"
)

// coreModules is the definitive list of all modules that are compiled into
// the recipegrid binary. Exporters that print write to outW.
func coreModules(outW io.Writer) []registry.Registrant {
	return []registry.Registrant{
		&env_vars.Module{},
		&filesystem.Module{},
		&grep.Module{},
		&command.Module{},
		&print.Module{Out: outW},
		&http_exporter.Module{},
		&socketio.Module{},
	}
}
