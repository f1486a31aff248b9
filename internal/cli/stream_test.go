package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/canonica-labs/lakequery/internal/stream"
)

// TestCLI_StreamAggregateSum verifies the batch aggregate command accepts a
// sum over a numeric field and reads every record from stdin without error;
// the printed total is not checked.
func TestCLI_StreamAggregateSum(t *testing.T) {
	c := &CLI{quiet: true}

	input := bytes.NewBufferString(
		`{"amount": 10}` + "\n" +
			`{"amount": 20}` + "\n" +
			`{"amount": 5}` + "\n",
	)

	spec := stream.AggregateSpec{Function: stream.AggSum, Column: "amount", Alias: "total"}
	if err := c.runStreamAggregate(input, spec, time.Hour, 1000); err != nil {
		t.Fatalf("runStreamAggregate: %v", err)
	}
}

// TestCLI_StreamAggregateRejectsUnknownFunction verifies an unsupported
// aggregate function is rejected before any record is read, rather than
// silently producing a nil result.
func TestCLI_StreamAggregateRejectsUnknownFunction(t *testing.T) {
	c := &CLI{quiet: true}

	spec := stream.AggregateSpec{Function: "median", Column: "amount", Alias: "total"}
	if err := c.runStreamAggregate(bytes.NewBufferString(""), spec, time.Hour, 1000); err == nil {
		t.Fatal("expected error for unsupported aggregate function")
	}
}

// TestCLI_StreamAggregateRejectsInvalidJSON verifies a malformed input line
// is reported with its line number rather than silently skipped.
func TestCLI_StreamAggregateRejectsInvalidJSON(t *testing.T) {
	c := &CLI{quiet: true}

	input := bytes.NewBufferString(`{"amount": 10}` + "\n" + `not json` + "\n")
	spec := stream.AggregateSpec{Function: stream.AggCount, Alias: "count"}
	if err := c.runStreamAggregate(input, spec, time.Hour, 1000); err == nil {
		t.Fatal("expected error for invalid JSON line")
	}
}
