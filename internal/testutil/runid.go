package testutil

// FixedRunIDGenerator generates the same run id every time.
//
// Golden snapshots embed the run id, so tests pin it:
//
//	run_id: "run-00000000-0000-0000-0000-000000000001"
//
// If id is empty, Generate() returns "test-run-default".
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator creates a new fixed run id generator.
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate returns the fixed run id.
//
// Implements harness.RunIDGenerator.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}
