// Package producer feeds jobs into the broker.
//
// A Feeder sends one put per job over a single transport and waits for each
// acknowledgement before advancing, so jobs land in the queue in source
// order. Jobs come from an iter.Seq2 source: FromJSONLines reads one object
// per line, and a Grid expands parameter axes into their Cartesian product.
//
//	grid, _ := producer.LoadGrid("grid.yaml")
//	n, err := producer.New(client).Feed(ctx, grid.Jobs())
package producer
