// Package processing takes care of the logistics around writing records to
// a Target. Not the computation of the records itself.
package processing

import (
	"sync"

	"github.com/go-spatial/geom"
)

type Record interface {
	Columns() []interface{}
	Geometry() geom.Geometry
}

type Target interface {
	WriteRecords(<-chan Record)
}

// WriteRecords streams the records to the target in order and waits for it
// to finish writing.
func WriteRecords(records []Record, target Target) {
	channel := make(chan Record)

	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		target.WriteRecords(channel)
	}()

	for _, record := range records {
		channel <- record
	}
	close(channel)

	wg.Wait()
}
