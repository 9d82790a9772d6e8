// Package client provides the `toyo` command-line client.
//
// The commands talk to a toyo broker over its gRPC endpoint (feeding jobs,
// running workers, raw put/get/done) and read the admin HTTP views for
// inspection. They are meant for people running experiment sweeps from a
// terminal and for scripts that drive them.
//
// # Address configuration
//
// Every command resolves its settings in the same order: built-in defaults,
// then the file named by --config (JSON or YAML), then TOYO_* environment
// variables, then flags. The broker endpoint defaults to
// tcp://127.0.0.1:5151 and the admin URL to http://127.0.0.1:5152.
//
// Usage
//
//	# enqueue one job per JSON line
//	toyo feed --file jobs.jsonl
//
//	# enqueue the product of a YAML grid, one preparation command per job
//	toyo feed --grid sweep.yaml --prepare 'python prepare.py'
//	toyo feed --grid sweep.yaml --dry-run
//
//	# run jobs until the queue drains; the job is on stdin and in $TOYO_JOB
//	toyo worker run --name gpu0 --long-poll-ms 5000 -- python train.py
//
//	# raw commands, printing the reply envelope
//	toyo job put --data '{"name":"x"}'
//	toyo job get --wait-ms 1000
//	toyo job done --data '{"name":"x"}' --delivery 0000018f...
//
//	# inspection over HTTP
//	toyo queue ls --filter 'job.width > 100' --limit 10
//	toyo queue completed
//	toyo queue inflight
//	toyo queue stats
//
// Notes
//
//   - worker run exits 0 when the queue cannot be reached any more, the same
//     way it exits when a job is interrupted with Ctrl-C (after requeueing
//     it). A failing job is requeued and the command exits non-zero.
//   - queue commands print one JSON object per line so their output pipes
//     into jq.
package client
