package app

import (
	"github.com/specialistvlad/scopyflow/internal/registry"
	"github.com/specialistvlad/scopyflow/modules/channel"
	"github.com/specialistvlad/scopyflow/modules/demod"
	"github.com/specialistvlad/scopyflow/modules/filter"
	"github.com/specialistvlad/scopyflow/modules/generator"
	"github.com/specialistvlad/scopyflow/modules/scaleoffset"
	"github.com/specialistvlad/scopyflow/modules/subpath"
)

// coreModules is the definitive list of proxy types compiled into the
// scopyflow binary.
var coreModules = []registry.Module{
	&generator.Module{},
	&scaleoffset.Module{},
	&filter.Module{},
	&demod.Module{},
	&channel.Module{},
	&subpath.Module{},
}
