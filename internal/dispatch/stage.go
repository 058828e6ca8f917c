// Package dispatch runs the two compute stages as external subprocess
// invocations: ingestion pulls a player's matches into the archive, then
// aggregation folds them into the stored recap document. The stages are
// strictly ordered; aggregation never runs after a failed ingestion.
package dispatch

// Stage identifies one of the two ordered compute stages.
type Stage string

const (
	StageIngest    Stage = "ingest"
	StageAggregate Stage = "aggregate"
)

// String implements fmt.Stringer.
func (s Stage) String() string {
	return string(s)
}
