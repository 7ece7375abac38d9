// Package joint drives time-based changes to live joints: interpolating a
// joint between two configurations and severing joints whose solved
// impulses exceed a threshold.
package joint

import (
	"github.com/san-kum/grapple/internal/logging"
	"github.com/san-kum/grapple/internal/physics"
	"github.com/san-kum/grapple/internal/world"
	"go.uber.org/zap"
)

type System struct {
	World    *world.World
	Engine   physics.Engine
	Commands *physics.Commands
	Log      *zap.Logger

	warned logging.Once
}

func (s *System) logger() *zap.Logger { return logging.OrNop(s.Log) }
