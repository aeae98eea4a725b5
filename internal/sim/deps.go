package sim

import (
	"ghost-lap/server/internal/telemetry"
	"ghost-lap/server/logging"
)

// Deps carries shared infrastructure dependencies required by the loop.
type Deps struct {
	Logger  telemetry.Logger
	Metrics telemetry.Metrics
	Clock   logging.Clock
}
