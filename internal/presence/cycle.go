package presence

import (
	"github.com/beaconloc/presence/internal/location"
	"github.com/beaconloc/presence/internal/scan"
)

// CycleReporter resolves each completed scan cycle and hands the label to a
// Reporter. It implements scan.CycleHandler.
type CycleReporter struct {
	Identity     Identity
	Table        *location.Table
	Reporter     *Reporter
	Availability *Availability
	Logger       Logger
}

// HandleCycle resolves snapshot and reports it.
func (c *CycleReporter) HandleCycle(snapshot scan.Snapshot) {
	label := location.Resolve(snapshot, c.Table)
	available := c.Availability.Available()

	if c.Logger != nil {
		c.Logger.Debug("scan cycle resolved",
			"visible", len(snapshot),
			"room", label.Room,
			"floor", label.Floor,
			"available", available,
		)
	}
	c.Reporter.ReportCycle(c.Identity.ID, c.Identity.Name, label, available)
}

var _ scan.CycleHandler = (*CycleReporter)(nil)
