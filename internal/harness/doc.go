// Package harness runs offline-cache scenarios end to end.
//
// A scenario fixes what the story API serves, which stories are already on
// the device, and a flow of user steps: saving and deleting stories,
// rendering and closing the home and My Tales views, keeping a remote story
// offline, and publishing. Each run gets a fresh in-memory SQLite store, a
// deterministic clock and sequential media handles, so the trace of rendered
// pages can be compared against a golden file.
//
// # Scenario Format
//
//	name: remote_down_falls_back
//	description: "A failed feed shows local stories"
//	remote:
//	  error: network unreachable
//	setup:
//	  - '{"description": "Harbor at dusk", "photo": "aGFyYm9y"}'
//	flow:
//	  - op: render_home
//	    expect:
//	      origin: local
//	      items: 1
//	  - op: close_home
//	assertions:
//	  - type: outstanding_refs
//	    count: 0
//	  - type: handles_released
//	    step: 0
//
// # Operations
//
//   - save: save the JSON document in data
//   - delete: delete the story with id (coerced like a route parameter)
//   - render_home, render_tales: render a view
//   - delete_tale: delete through the My Tales view and re-render
//   - close_home, close_tales: close a view, releasing its handles
//   - save_offline: keep the remote story with id on the device
//   - publish: post story, queueing it locally when the API fails
//
// # Assertion Types
//
//   - stored_count: number of stored records
//   - outstanding_refs: live media handles across all views
//   - posted_count: stories the stub API accepted
//   - feed_calls: times the remote feed was fetched
//   - handles_released: no handle rendered at step still resolves
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/remote_down.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//	    log.Println(msg)
//	}
package harness
