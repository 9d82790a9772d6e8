// Package jsonfile persists the broker's two pieces of durable state, the
// queue snapshot and the completion log, as JSON arrays of job records.
//
// Files are never patched in place. Every write goes to a temporary file in
// the same directory, is fsynced, then renamed over the target, so a reader
// only ever sees the previous or the new complete array.
//
// A file that exists but does not parse as a JSON array of objects yields
// ErrMalformed. Callers treat that as fatal rather than starting empty.
//
// Example:
//
//	st, err := jsonfile.Open(jsonfile.Options{QueuePath: "queue.json", DonePath: "done.json"})
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//	jobs, _ := st.LoadQueue()
//	_ = st.SaveQueue(jobs)
package jsonfile
