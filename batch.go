package teximport

import (
	"context"
	"runtime"
	"sync"
)

// BatchResult pairs a request with its outcome. Pixel data is not kept.
type BatchResult struct {
	Request Request
	Info    ArtifactInfo
	Entries []AtlasEntry
	Codec   string
	Err     error
}

// RunBatch imports reqs on up to workers goroutines (0 = GOMAXPROCS).
// ctx is checked before each import starts; a running import is never
// interrupted. Results are returned in request order.
func (p *Pipeline) RunBatch(ctx context.Context, reqs []Request, workers int) []BatchResult {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, len(reqs))

	results := make([]BatchResult, len(reqs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i].Request = reqs[i]
				if err := ctx.Err(); err != nil {
					results[i].Err = err
					continue
				}
				res, err := p.Import(reqs[i])
				if err != nil {
					results[i].Err = err
					continue
				}
				results[i].Info = res.Artifact.Info()
				results[i].Entries = res.Entries
				results[i].Codec = res.Codec
			}
		}()
	}

	for i := range reqs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}
