/*
Copyright 2021 The Kubecc Authors.

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <http://www.gnu.org/licenses/>.
*/

package server

import (
	"context"
	"sync"

	mapset "github.com/deckarep/golang-set"
)

type searchTask struct {
	ctx   context.Context
	query string
	found bool
	err   error
	done  chan struct{}
}

// workerPool bounds the number of reread-mode searches running at once.
type workerPool struct {
	taskQueue  chan *searchTask
	stopQueue  chan struct{}
	workers    mapset.Set // map[*worker]
	workerLock *sync.Mutex
	search     func(ctx context.Context, query string) (bool, error)
}

func newWorkerPool(search func(context.Context, string) (bool, error)) *workerPool {
	return &workerPool{
		taskQueue:  make(chan *searchTask),
		stopQueue:  make(chan struct{}),
		workers:    mapset.NewSet(),
		workerLock: &sync.Mutex{},
		search:     search,
	}
}

func (wp *workerPool) SetWorkerCount(count int) {
	wp.workerLock.Lock()
	defer wp.workerLock.Unlock()
	if numWorkers := wp.workers.Cardinality(); count > numWorkers {
		for i := 0; i < count-numWorkers; i++ {
			w := &worker{
				pool: wp,
			}
			wp.workers.Add(w)
			go func() {
				w.Run()
				wp.workers.Remove(w)
			}()
		}
	} else if count < numWorkers && count >= 0 {
		for i := 0; i < numWorkers-count; i++ {
			wp.stopQueue <- struct{}{}
		}
	}
}

// Submit runs a search on the next free worker and waits for its result.
func (wp *workerPool) Submit(ctx context.Context, query string) (bool, error) {
	task := &searchTask{
		ctx:   ctx,
		query: query,
		done:  make(chan struct{}),
	}
	select {
	case wp.taskQueue <- task:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case <-task.done:
		return task.found, task.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

type worker struct {
	pool *workerPool
}

func (w *worker) Run() {
	for {
		select {
		case <-w.pool.stopQueue:
			return
		case task := <-w.pool.taskQueue:
			task.found, task.err = w.pool.search(task.ctx, task.query)
			close(task.done)
		}
	}
}
