// Package harness provides conformance testing for entity queries.
//
// A scenario seeds a table with records, runs one query document against
// both executors (the in-memory engine and the SQLite store) and checks
// that they agree before evaluating the scenario's assertions.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: done_recent_first
//	description: "Completed projects, most recent first"
//	table: projects
//	records:
//	  - {id: p1, status: DONE, days_since_started: 3}
//	  - {id: p2, status: NEW, days_since_started: 0}
//	query:
//	  where:
//	    - {column: status, value: DONE}
//	  sort:
//	    - {column: days_since_started, direction: desc}
//	assertions:
//	  - type: ids
//	    ids: [p1]
//	  - type: record
//	    id: p1
//	    expect: {status: DONE}
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - ids: the result holds exactly these ids, in this order
//   - count: the result holds exactly N records
//   - record: the record with the given id is in the result and holds the
//     expected fields (subset match, or full match with exact: true)
//   - absent: none of the given ids are in the result
//
// # Backend Parity
//
// Every record needs a string id. The engine receives the records ordered
// by id, which makes its stable sort break ties the same way the SQL
// backend does. When the query carries a mask, SQL rows are projected with
// engine.ProjectObject before comparison, since SQLite can only select
// whole top-level columns. Records are compared by ir.RecordDigest.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/done_recent_first.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
