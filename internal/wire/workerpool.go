package wire

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const taskChanSize = 100

// WorkerFunction is the unit of work a WorkerPool dispatches to an idle
// worker goroutine.
type WorkerFunction = func(t *tomb.Tomb, task any) error

// WorkerPool maintains a fixed number of goroutines pulling connections
// off a shared task channel. It exists to bound how many client
// connections are handled concurrently; it has nothing to do with the
// matching engine's own single-worker intake queue, which is
// deliberately not a pool.
type WorkerPool struct {
	n     int
	tasks chan any
	work  WorkerFunction
}

func NewWorkerPool(size int) WorkerPool {
	return WorkerPool{
		tasks: make(chan any, taskChanSize),
		n:     size,
	}
}

// AddTask enqueues a connection (or other task value) for a worker to
// pick up.
func (pool *WorkerPool) AddTask(t any) {
	pool.tasks <- t
}

// Setup keeps the pool full of workers until the tomb starts dying.
func (pool *WorkerPool) Setup(t *tomb.Tomb, work WorkerFunction) {
	pool.work = work
	log.Info().Int("size", pool.n).Msg("starting connection worker pool")
	active := 0
	for {
		select {
		case <-t.Dying():
			return
		default:
			if active < pool.n {
				t.Go(func() error {
					err := pool.worker(t)
					active--
					return err
				})
				active++
			}
		}
	}
}

func (pool *WorkerPool) worker(t *tomb.Tomb) error {
	select {
	case <-t.Dying():
		return nil
	case task := <-pool.tasks:
		if err := pool.work(t, task); err != nil {
			log.Error().Err(err).Msg("connection worker exiting")
			return err
		}
	}
	return nil
}
